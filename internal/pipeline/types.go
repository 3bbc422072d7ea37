package pipeline

import (
	"context"
	"time"

	"github.com/vetscan/report-processor/internal/report"
)

// PageText is the recognized text of a single page. PageNumber is the
// absolute, zero-based page index within the document; the offset transform
// in Chunk.Absolute converts chunk-local numbering on ingestion.
type PageText struct {
	PageNumber int    `json:"page_number" firestore:"pageNumber"`
	Text       string `json:"text" firestore:"text"`
}

// ExtractedImage describes one diagnostic image that survived filtering.
// StorageRef is populated by the ImageStore collaborator and stays empty
// when no store is configured.
type ExtractedImage struct {
	PageNumber int    `json:"page_number" firestore:"pageNumber"`
	Width      int    `json:"width" firestore:"width"`
	Height     int    `json:"height" firestore:"height"`
	MimeType   string `json:"mime_type" firestore:"mimeType"`
	StorageRef string `json:"storage_ref,omitempty" firestore:"storageRef,omitempty"`
}

// ProcessingResult is the single output of one pipeline run. It is
// constructed once by the orchestrator and not mutated after return.
type ProcessingResult struct {
	DocumentID            string           `json:"document_id"`
	Filename              string           `json:"filename"`
	TotalPages            int              `json:"total_pages"`
	FullText              string           `json:"full_text"`
	Pages                 []PageText       `json:"pages"`
	Images                []ExtractedImage `json:"images"`
	ReportInfo            report.Info      `json:"report_info"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
}

// OCRService is the external text-recognition capability. Implementations
// receive the whole document plus the chunk to recognize and return one
// PageText per page in the chunk, numbered chunk-local from zero.
//
// Failures that are worth retrying must be reported as *OCRTransientError;
// anything else is treated as fatal immediately.
type OCRService interface {
	ExtractText(ctx context.Context, document []byte, chunk Chunk) ([]PageText, error)
}

// ImageStore persists one extracted image and returns an opaque storage
// reference for it.
type ImageStore interface {
	Put(ctx context.Context, data []byte, docID string, pageNumber, index int, mimeType string) (string, error)
}

// Clock abstracts wall-clock time for the processing_time_seconds
// measurement.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
