package history

import "context"

// Repository defines the interface for prediction record persistence.
type Repository interface {
	// Save stores a record and drops the oldest beyond MaxRecords.
	// A record without ID or CreatedAt gets them assigned.
	Save(ctx context.Context, record *Record) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*Record, error)

	// Latest returns the newest record or ErrNoRecords.
	Latest(ctx context.Context) (*Record, error)
}
