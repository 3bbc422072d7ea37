// Package gcp wraps the Google Cloud collaborators the pipeline delegates
// to: Cloud Storage for file and image objects, Firestore for processed
// records.
package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Storage stores source PDFs and extracted images in a GCS bucket. It
// implements pipeline.ImageStore.
type Storage struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

// NewStorage creates the storage collaborator for bucket.
func NewStorage(ctx context.Context, bucket string, logger *slog.Logger) (*Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Storage{client: client, bucket: bucket, logger: logger}, nil
}

// Close releases the underlying client.
func (s *Storage) Close() error {
	return s.client.Close()
}

// UploadPDF stores the source document under uploads/ and returns its
// gs:// URI.
func (s *Storage) UploadPDF(ctx context.Context, content []byte, filename, docID string) (string, error) {
	timestamp := time.Now().UTC().Format("20060102150405")
	objectName := fmt.Sprintf("uploads/%s_%s_%s", timestamp, docID, filename)
	if err := s.write(ctx, objectName, content, "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}
	return s.uri(objectName), nil
}

// Put stores one extracted image and returns its gs:// URI. It satisfies
// pipeline.ImageStore.
func (s *Storage) Put(ctx context.Context, data []byte, docID string, pageNumber, index int, mimeType string) (string, error) {
	ext := "bin"
	if i := strings.LastIndex(mimeType, "/"); i >= 0 && i < len(mimeType)-1 {
		ext = mimeType[i+1:]
	}
	objectName := fmt.Sprintf("extracted_images/%s/page%d_img%d.%s", docID, pageNumber, index, ext)
	if err := s.write(ctx, objectName, data, mimeType); err != nil {
		return "", err
	}
	return s.uri(objectName), nil
}

// write uploads one object with bounded retries; transient GCS hiccups
// during a batch of image writes should not cost the whole image.
func (s *Storage) write(ctx context.Context, objectName string, data []byte, contentType string) error {
	const maxRetries = 3
	backoff := time.Second
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
			defer cancel()

			w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(writeCtx)
			w.ContentType = contentType
			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return fmt.Errorf("write to GCS failed: %w", err)
			}
			// Close finalizes the upload.
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to finalize GCS write: %w", err)
			}
			return nil
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		s.logger.Warn("GCS write failed, will retry",
			"object", objectName, "attempt", attempt, "maxRetries", maxRetries,
			"backoff", backoff.String(), "error", err)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("write for %s failed after all retries: %w", objectName, lastErr)
}

func (s *Storage) uri(objectName string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName)
}
