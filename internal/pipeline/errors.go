package pipeline

import (
	"errors"
	"fmt"
)

// InvalidDocumentError indicates the input bytes are not a processable PDF
// (bad signature, zero pages, oversized). Never retried.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document: %s", e.Reason)
}

// OCRTransientError wraps a failure worth retrying (timeout, temporary
// service unavailability). The OCR adapter is responsible for the
// transient-vs-fatal classification; the orchestrator only checks the type.
type OCRTransientError struct {
	Err error
}

func (e *OCRTransientError) Error() string {
	return fmt.Sprintf("transient OCR failure: %v", e.Err)
}

func (e *OCRTransientError) Unwrap() error { return e.Err }

// OCRFatalError is returned once a chunk has exhausted its retry budget or
// hit a non-retryable failure.
type OCRFatalError struct {
	Chunk    Chunk
	Attempts int
	Err      error
}

func (e *OCRFatalError) Error() string {
	return fmt.Sprintf("OCR failed for pages %d-%d after %d attempt(s): %v",
		e.Chunk.Start, e.Chunk.End-1, e.Attempts, e.Err)
}

func (e *OCRFatalError) Unwrap() error { return e.Err }

// ReassemblyError indicates the merged OCR results violate the adapter
// contract: missing, duplicated or out-of-range page numbers. Always fatal,
// never repaired silently.
type ReassemblyError struct {
	Reason string
}

func (e *ReassemblyError) Error() string {
	return fmt.Sprintf("reassembly failed: %s", e.Reason)
}

// StorageWriteError reports a failed upload of one extracted image. The
// orchestrator treats it as per-image non-fatal: the image is dropped and
// document processing continues.
type StorageWriteError struct {
	PageNumber int
	Index      int
	Err        error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("failed to store image %d on page %d: %v", e.Index, e.PageNumber, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// IsTransientOCR reports whether err should be retried by the chunk retry loop.
func IsTransientOCR(err error) bool {
	var te *OCRTransientError
	return errors.As(err, &te)
}
