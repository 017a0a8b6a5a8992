package persistence

import "context"

// DocumentRepository stores stage and live roster documents. Every write is a
// single compare-and-swap on the document's UpdatedAt token and reports
// ErrConflict when the condition fails.
type DocumentRepository interface {
	GetDocument(ctx context.Context, kind Kind, key Key) (Document, error)
	SaveDocument(ctx context.Context, doc Document, cond WriteCondition) (Document, error)
	PublishDocument(ctx context.Context, req PublishRequest) (PublishOutcome, error)
	ListDocumentKeys(ctx context.Context, kind Kind) ([]Key, error)
}

// SnapshotRepository archives documents.
type SnapshotRepository interface {
	CreateSnapshot(ctx context.Context, snapshot Snapshot) error
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	ListSnapshots(ctx context.Context, key Key) ([]Snapshot, error)
}

// Store is the full persistence surface used by the roster service.
type Store interface {
	DocumentRepository
	SnapshotRepository
	Close() error
}
