// Package ocr implements the pipeline's text-recognition boundary on top of
// Google Document AI.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vetscan/report-processor/internal/pipeline"
)

// DocumentAI is a pipeline.OCRService backed by a Document AI OCR
// processor. Each ExtractText call trims the requested chunk out of the
// document and submits it as one process request.
type DocumentAI struct {
	client        *documentai.DocumentProcessorClient
	processorName string
	logger        *slog.Logger
}

// NewDocumentAI creates the adapter against the regional Document AI
// endpoint for location.
func NewDocumentAI(ctx context.Context, projectID, location, processorID string, logger *slog.Logger) (*DocumentAI, error) {
	if projectID == "" || location == "" || processorID == "" {
		return nil, fmt.Errorf("projectID, location and processorID must all be set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}

	return &DocumentAI{
		client: client,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			projectID, location, processorID),
		logger: logger,
	}, nil
}

// Close releases the underlying client.
func (d *DocumentAI) Close() error {
	return d.client.Close()
}

// ExtractText recognizes one chunk and returns chunk-local page texts,
// numbered from zero. Retry-worthy service failures are wrapped in
// pipeline.OCRTransientError; everything else is fatal.
func (d *DocumentAI) ExtractText(ctx context.Context, document []byte, chunk pipeline.Chunk) ([]pipeline.PageText, error) {
	chunkBytes, err := trimChunk(document, chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to extract chunk pages %d-%d: %w", chunk.Start, chunk.End-1, err)
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  chunkBytes,
				MimeType: "application/pdf",
			},
		},
	}

	d.logger.Debug("submitting chunk to Document AI",
		"chunkStart", chunk.Start, "chunkEnd", chunk.End, "bytes", len(chunkBytes))

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		if isTransient(err) {
			return nil, &pipeline.OCRTransientError{Err: err}
		}
		return nil, fmt.Errorf("Document AI processing failed: %w", err)
	}

	doc := resp.GetDocument()
	pages := make([]pipeline.PageText, 0, len(doc.GetPages()))
	for i, page := range doc.GetPages() {
		pages = append(pages, pipeline.PageText{
			PageNumber: i,
			Text:       pageText(doc.GetText(), page),
		})
	}
	return pages, nil
}

// trimChunk extracts the chunk's pages into a standalone PDF.
func trimChunk(document []byte, chunk pipeline.Chunk) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(document), &buf, chunk.PageSelection(), conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pageText reconstructs one page's text from its layout anchors into the
// document-wide text blob.
func pageText(fullText string, page *documentaipb.Document_Page) string {
	layout := page.GetLayout()
	if layout == nil || layout.GetTextAnchor() == nil {
		return ""
	}

	var b bytes.Buffer
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start := int(seg.GetStartIndex())
		end := int(seg.GetEndIndex())
		if start < 0 || end > len(fullText) || start > end {
			continue
		}
		b.WriteString(fullText[start:end])
	}
	return b.String()
}

// isTransient classifies gRPC failures worth retrying.
func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
