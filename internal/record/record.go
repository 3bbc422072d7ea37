// Package record defines the persisted form of a processed document and the
// store boundary used to save and fetch it.
package record

import (
	"context"
	"time"

	"github.com/vetscan/report-processor/internal/pipeline"
	"github.com/vetscan/report-processor/internal/report"
)

// Record is the full stored form of one processed document.
type Record struct {
	DocumentID            string                    `json:"document_id" firestore:"documentId"`
	Filename              string                    `json:"filename" firestore:"filename"`
	SourceRef             string                    `json:"source_ref,omitempty" firestore:"sourceRef,omitempty"`
	TotalPages            int                       `json:"total_pages" firestore:"totalPages"`
	FullText              string                    `json:"full_text" firestore:"fullText"`
	Pages                 []pipeline.PageText       `json:"pages" firestore:"pages"`
	Images                []pipeline.ExtractedImage `json:"images" firestore:"images"`
	ReportInfo            report.Info               `json:"report_info" firestore:"reportInfo"`
	ProcessingTimeSeconds float64                   `json:"processing_time_seconds" firestore:"processingTimeSeconds"`
	CreatedAt             time.Time                 `json:"created_at" firestore:"createdAt"`
	UploadedBy            string                    `json:"uploaded_by,omitempty" firestore:"uploadedBy,omitempty"`
}

// FromResult builds a Record from a pipeline result.
func FromResult(res *pipeline.ProcessingResult, sourceRef, uploadedBy string, createdAt time.Time) *Record {
	return &Record{
		DocumentID:            res.DocumentID,
		Filename:              res.Filename,
		SourceRef:             sourceRef,
		TotalPages:            res.TotalPages,
		FullText:              res.FullText,
		Pages:                 res.Pages,
		Images:                res.Images,
		ReportInfo:            res.ReportInfo,
		ProcessingTimeSeconds: res.ProcessingTimeSeconds,
		CreatedAt:             createdAt,
		UploadedBy:            uploadedBy,
	}
}

// Store persists processed documents.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	// Get returns nil, nil when no record exists for the ID.
	Get(ctx context.Context, documentID string) (*Record, error)
}
