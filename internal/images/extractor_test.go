package images

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imgSpec struct {
	w, h   int
	filter string
	data   []byte
}

// makeImagePDF builds a PDF with one page per entry, each page carrying
// the given image XObjects as /Im0, /Im1, ..., with a correct xref table
// so the readers accept it.
func makeImagePDF(t *testing.T, pages [][]imgSpec) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	writeObj(fmt.Sprintf(
		"2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>\nendobj\n",
		strings.Join(kids, " "), len(pages)))

	imgObj := 3 + len(pages)
	for i, imgs := range pages {
		refs := make([]string, len(imgs))
		for j := range imgs {
			refs[j] = fmt.Sprintf("/Im%d %d 0 R", j, imgObj+j)
		}
		writeObj(fmt.Sprintf(
			"%d 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << /XObject << %s >> >> >>\nendobj\n",
			3+i, strings.Join(refs, " ")))
		imgObj += len(imgs)
	}

	imgObj = 3 + len(pages)
	for _, imgs := range pages {
		for _, img := range imgs {
			offsets = append(offsets, buf.Len())
			fmt.Fprintf(&buf,
				"%d 0 obj\n<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
					"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /%s /Length %d >>\nstream\n",
				imgObj, img.w, img.h, img.filter, len(img.data))
			buf.Write(img.data)
			buf.WriteString("\nendstream\nendobj\n")
			imgObj++
		}
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefPos)

	return buf.Bytes()
}

func openReader(t *testing.T, content []byte) *pdf.Reader {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	return r
}

func onePage(imgs ...imgSpec) [][]imgSpec {
	return [][]imgSpec{imgs}
}

func TestPageCandidates(t *testing.T) {
	content := makeImagePDF(t, onePage(
		imgSpec{w: 800, h: 600, filter: "DCTDecode", data: []byte("\xff\xd8\xfffake-jpeg-bytes")},
	))
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	got := e.PageCandidates(openReader(t, content), 0, nil)

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].PageNumber)
	assert.Equal(t, "Im0", got[0].Name)
	assert.Equal(t, 800, got[0].Width)
	assert.Equal(t, 600, got[0].Height)
	assert.Equal(t, "JPEG", got[0].Format)
}

func TestPageCandidatesUsesIndexedContent(t *testing.T) {
	raw := []byte("\xff\xd8\xffraw-frame-bytes")
	content := makeImagePDF(t, onePage(
		imgSpec{w: 800, h: 600, filter: "DCTDecode", data: raw},
	))
	idx := &ContentIndex{byPage: map[int]map[string][]byte{
		0: {"Im0": raw},
	}}
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	got := e.PageCandidates(openReader(t, content), 0, idx)

	require.Len(t, got, 1)
	assert.Equal(t, raw, got[0].Content)
}

func TestPageCandidatesFallsBackToObjectStream(t *testing.T) {
	// Flate streams the page walk can decode itself; no index needed.
	pixels := bytes.Repeat([]byte{0x10, 0x20, 0x30}, 64)
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(pixels)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	content := makeImagePDF(t, onePage(
		imgSpec{w: 800, h: 600, filter: "FlateDecode", data: z.Bytes()},
	))
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	got := e.PageCandidates(openReader(t, content), 0, nil)

	require.Len(t, got, 1)
	assert.Equal(t, pixels, got[0].Content)
}

func TestIndexContentReadsRawStreams(t *testing.T) {
	first := []byte("\xff\xd8\xfffirst-frame")
	second := []byte("\xff\xd8\xffsecond-frame")
	content := makeImagePDF(t, [][]imgSpec{
		{{w: 800, h: 600, filter: "DCTDecode", data: first}},
		{{w: 800, h: 600, filter: "DCTDecode", data: second}},
	})

	idx := IndexContent(content, slog.New(slog.DiscardHandler))

	assert.Equal(t, first, idx.Lookup(0, "Im0"))
	assert.Equal(t, second, idx.Lookup(1, "Im0"))
	assert.Nil(t, idx.Lookup(2, "Im0"))
}

func TestIndexContentGarbageInput(t *testing.T) {
	idx := IndexContent([]byte("not a pdf at all"), slog.New(slog.DiscardHandler))

	require.NotNil(t, idx)
	assert.Nil(t, idx.Lookup(0, "Im0"))
}

// A scan PDF has one full-page JPEG per page, every frame different even
// though they share dimensions. All of them must come out of extraction
// with content bytes and survive the repetition filter.
func TestDistinctSameSizeImagesSurviveFiltering(t *testing.T) {
	const pageCount = 6
	pages := make([][]imgSpec, pageCount)
	for i := range pages {
		pages[i] = []imgSpec{{
			w: 800, h: 600, filter: "DCTDecode",
			data: []byte(fmt.Sprintf("\xff\xd8\xffframe-%d", i)),
		}}
	}
	content := makeImagePDF(t, pages)
	logger := slog.New(slog.DiscardHandler)
	e := NewExtractor(120000, logger)
	idx := IndexContent(content, logger)
	r := openReader(t, content)

	var cands []Candidate
	for p := 0; p < pageCount; p++ {
		cands = append(cands, e.PageCandidates(r, p, idx)...)
	}
	require.Len(t, cands, pageCount)

	got := NewFilter(0.3, DefaultGeometryThresholds()).Apply(cands, pageCount)

	require.Len(t, got, pageCount)
	sigs := make(map[Signature]struct{})
	for _, c := range got {
		assert.NotEmpty(t, c.Content, "page %d candidate has no content", c.PageNumber)
		sigs[SignatureOf(c)] = struct{}{}
	}
	assert.Len(t, sigs, pageCount)
}

func TestPageCandidatesDropsSmallObjects(t *testing.T) {
	content := makeImagePDF(t, onePage(
		imgSpec{w: 50, h: 50, filter: "DCTDecode", data: []byte("icon")},
		imgSpec{w: 900, h: 700, filter: "DCTDecode", data: []byte("radiograph")},
	))
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	got := e.PageCandidates(openReader(t, content), 0, nil)

	require.Len(t, got, 1)
	assert.Equal(t, 900, got[0].Width)
}

func TestPageCandidatesSkipsMalformedObject(t *testing.T) {
	// zero-width object is malformed; the valid one on the same page survives
	content := makeImagePDF(t, onePage(
		imgSpec{w: 0, h: 600, filter: "DCTDecode", data: []byte("broken")},
		imgSpec{w: 800, h: 600, filter: "DCTDecode", data: []byte("good frame")},
	))
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	got := e.PageCandidates(openReader(t, content), 0, nil)

	require.Len(t, got, 1)
	assert.Equal(t, 800, got[0].Width)
}

func TestPageCandidatesNoImages(t *testing.T) {
	content := makeImagePDF(t, onePage())
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	assert.Empty(t, e.PageCandidates(openReader(t, content), 0, nil))
}

func TestPageCandidatesOutOfRangePage(t *testing.T) {
	content := makeImagePDF(t, onePage())
	e := NewExtractor(120000, slog.New(slog.DiscardHandler))

	// out-of-range pages must not panic out of the extractor
	assert.Empty(t, e.PageCandidates(openReader(t, content), 7, nil))
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DCTDecode", "JPEG"},
		{"JPXDecode", "JPEG2000"},
		{"CCITTFaxDecode", "TIFF"},
		{"JBIG2Decode", "JBIG2"},
		{"FlateDecode", "PNG"},
		{"LZWDecode", "LZW"},
		{"RunLengthDecode", "RLE"},
		{"SomethingElse", "SomethingElse"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeFormat(tt.in), "filter %q", tt.in)
	}
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"JPEG", "image/jpeg"},
		{"JPEG2000", "image/jp2"},
		{"PNG", "image/png"},
		{"TIFF", "image/tiff"},
		{"JBIG2", "application/octet-stream"},
		{"unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MimeType(tt.format), "format %q", tt.format)
	}
}
