package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFDocument is the immutable input to one pipeline run.
type PDFDocument struct {
	Content   []byte
	PageCount int
}

var pdfSignature = []byte("%PDF-")

// pdfcpuConfig returns the relaxed-validation configuration used for all
// pdfcpu operations. Scanned veterinary reports are frequently produced by
// sloppy generators, so strict validation rejects too many real documents.
func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ValidateDocument checks the raw upload and determines its page count.
// All failures are InvalidDocumentError; none are retryable.
func ValidateDocument(content []byte, maxFileSize int64) (*PDFDocument, error) {
	if len(content) == 0 {
		return nil, &InvalidDocumentError{Reason: "file is empty"}
	}
	if maxFileSize > 0 && int64(len(content)) > maxFileSize {
		return nil, &InvalidDocumentError{
			Reason: fmt.Sprintf("file too large: %d bytes (max: %d bytes)", len(content), maxFileSize),
		}
	}
	if !bytes.HasPrefix(content, pdfSignature) {
		return nil, &InvalidDocumentError{Reason: "file does not appear to be a valid PDF"}
	}

	ctx, err := api.ReadContext(bytes.NewReader(content), pdfcpuConfig())
	if err != nil {
		return nil, &InvalidDocumentError{Reason: fmt.Sprintf("cannot parse PDF: %v", err)}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &InvalidDocumentError{Reason: fmt.Sprintf("cannot determine page count: %v", err)}
	}
	if ctx.PageCount <= 0 {
		return nil, &InvalidDocumentError{Reason: "document has no pages"}
	}

	return &PDFDocument{Content: content, PageCount: ctx.PageCount}, nil
}

const maxFilenameLength = 200

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename strips path components from an uploaded filename,
// replaces unsafe characters and caps the length. An empty or fully
// stripped name falls back to "upload.pdf".
func SanitizeFilename(filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	if name == "" {
		return "upload.pdf"
	}
	return name
}
