package images

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ContentIndex holds the raw stream bytes of every image XObject in a
// document, keyed by zero-based page number and resource name. The page
// walk cannot read DCT/JPX streams through its own reader, and for those
// encodings the raw stream already is the image file, so the index is the
// primary source of candidate content.
type ContentIndex struct {
	byPage map[int]map[string][]byte
}

// IndexContent extracts the raw image streams of the whole document up
// front. Extraction problems degrade to an empty index; candidates then
// fall back to their own stream readers and, failing that, to
// geometry-derived signatures.
func IndexContent(document []byte, logger *slog.Logger) *ContentIndex {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &ContentIndex{byPage: make(map[int]map[string][]byte)}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(document), nil, conf)
	if err != nil {
		logger.Warn("cannot index raw image streams", "error", err)
		return idx
	}

	for _, imgs := range pages {
		for _, img := range imgs {
			if img.Thumb {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}
			pageNum := img.PageNr - 1
			if idx.byPage[pageNum] == nil {
				idx.byPage[pageNum] = make(map[string][]byte)
			}
			idx.byPage[pageNum][img.Name] = data
		}
	}
	return idx
}

// Lookup returns the raw bytes of the named XObject on the zero-based
// page, or nil when the index holds no entry for it.
func (ci *ContentIndex) Lookup(pageNum int, name string) []byte {
	if ci == nil {
		return nil
	}
	return ci.byPage[pageNum][name]
}
