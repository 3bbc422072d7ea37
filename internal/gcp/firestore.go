package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vetscan/report-processor/internal/record"
)

// RecordStore persists processed document records in Firestore. It
// implements record.Store.
type RecordStore struct {
	client     *firestore.Client
	collection string
}

// NewRecordStore creates the Firestore collaborator.
func NewRecordStore(ctx context.Context, projectID, collection string) (*RecordStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided")
	}
	if collection == "" {
		collection = "pdf_records"
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &RecordStore{client: client, collection: collection}, nil
}

// Close releases the underlying client.
func (r *RecordStore) Close() error {
	return r.client.Close()
}

// Save writes the record keyed by its document ID.
func (r *RecordStore) Save(ctx context.Context, rec *record.Record) error {
	_, err := r.client.Collection(r.collection).Doc(rec.DocumentID).Set(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.DocumentID, err)
	}
	return nil
}

// Get fetches a record by document ID, returning nil when none exists.
func (r *RecordStore) Get(ctx context.Context, documentID string) (*record.Record, error) {
	snap, err := r.client.Collection(r.collection).Doc(documentID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", documentID, err)
	}
	var rec record.Record
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", documentID, err)
	}
	return &rec, nil
}
