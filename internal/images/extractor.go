// Package images extracts embedded raster objects from PDF pages and
// filters out decorative noise (logos, letterhead, icons) so that only
// genuine diagnostic images survive.
package images

import (
	"io"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// Candidate is one embedded raster object found on a page, before
// filtering. PageNumber is the zero-based document page index; candidates
// for a page preserve the on-page XObject order. Name is the XObject
// resource name the object was registered under.
type Candidate struct {
	PageNumber int
	Name       string
	Width      int
	Height     int
	Format     string
	Content    []byte
}

// Area returns the pixel area of the candidate.
func (c Candidate) Area() int { return c.Width * c.Height }

// Extractor walks page XObject dictionaries looking for image objects.
type Extractor struct {
	minAreaPx int
	logger    *slog.Logger
}

// NewExtractor creates an extractor. Objects below minAreaPx pixels are
// dropped immediately; they are icon-sized and not worth signature work.
func NewExtractor(minAreaPx int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{minAreaPx: minAreaPx, logger: logger}
}

// PageCandidates extracts image candidates from one page. pageNum is the
// zero-based document page index; contents supplies raw stream bytes and
// may be nil. Malformed objects are skipped and logged; a bad image never
// aborts the page, let alone the document.
func (e *Extractor) PageCandidates(r *pdf.Reader, pageNum int, contents *ContentIndex) []Candidate {
	var candidates []Candidate

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("image extraction panicked, skipping rest of page",
				"page", pageNum, "panic", rec)
		}
	}()

	page := r.Page(pageNum + 1)
	if page.V.IsNull() {
		return candidates
	}

	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return candidates
	}

	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return candidates
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		subtype := obj.Key("Subtype")
		if subtype.IsNull() || subtype.Name() != "Image" {
			continue
		}

		cand, ok := e.candidateFromObject(obj, pageNum, key, contents)
		if !ok {
			continue
		}
		if e.minAreaPx > 0 && cand.Area() < e.minAreaPx {
			continue
		}
		candidates = append(candidates, cand)
	}

	return candidates
}

// candidateFromObject decodes one image XObject. Decode failures are
// per-object: log, skip, continue with the rest of the page.
func (e *Extractor) candidateFromObject(obj pdf.Value, pageNum int, name string, contents *ContentIndex) (cand Candidate, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("skipping malformed embedded image",
				"page", pageNum, "panic", rec)
			ok = false
		}
	}()

	cand = Candidate{PageNumber: pageNum, Name: name, Format: "unknown"}

	if width := obj.Key("Width"); !width.IsNull() {
		cand.Width = int(width.Int64())
	}
	if height := obj.Key("Height"); !height.IsNull() {
		cand.Height = int(height.Int64())
	}
	if cand.Width <= 0 || cand.Height <= 0 {
		return cand, false
	}

	if filter := obj.Key("Filter"); !filter.IsNull() {
		cand.Format = normalizeFormat(filterName(filter))
	}

	// The raw-stream index covers the JPEG/JPX encodings the page walk
	// cannot read itself; the object's own reader handles the rest.
	cand.Content = contents.Lookup(pageNum, name)
	if len(cand.Content) == 0 {
		cand.Content = readStream(obj)
	}
	return cand, true
}

// filterName resolves the Filter entry, which may be a name or an array of
// names; the first filter determines the encoding we report.
func filterName(filter pdf.Value) string {
	if filter.Kind() == pdf.Array && filter.Len() > 0 {
		return filter.Index(0).Name()
	}
	return filter.Name()
}

// readStream reads the object's decoded stream content. Unsupported
// encodings make the underlying reader panic or fail; in that case the
// candidate keeps nil content and the dedup stage falls back to a
// metadata-derived signature.
func readStream(obj pdf.Value) (data []byte) {
	defer func() {
		if recover() != nil {
			data = nil
		}
	}()
	rd := obj.Reader()
	if rd == nil {
		return nil
	}
	defer rd.Close()
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil
	}
	return b
}

// normalizeFormat converts PDF filter names to common image format names.
func normalizeFormat(filterName string) string {
	switch filterName {
	case "DCTDecode":
		return "JPEG"
	case "JPXDecode":
		return "JPEG2000"
	case "CCITTFaxDecode":
		return "TIFF"
	case "JBIG2Decode":
		return "JBIG2"
	case "FlateDecode":
		return "PNG"
	case "LZWDecode":
		return "LZW"
	case "RunLengthDecode":
		return "RLE"
	default:
		if filterName != "" {
			return filterName
		}
		return "unknown"
	}
}

// MimeType maps a normalized format name to a MIME type for storage.
func MimeType(format string) string {
	switch format {
	case "JPEG":
		return "image/jpeg"
	case "JPEG2000":
		return "image/jp2"
	case "PNG":
		return "image/png"
	case "TIFF":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
