package domain

import "context"

// Snapshot is the full persisted state of one broker's book.
type Snapshot struct {
	Open   map[string]Position
	Closed []ClosedPosition
}

// SnapshotStore persists one snapshot per broker. A missing snapshot is not
// an error: Load returns an empty Snapshot so a fresh deployment starts
// clean. Save must overwrite atomically.
type SnapshotStore interface {
	Load(ctx context.Context, broker string) (Snapshot, error)
	Save(ctx context.Context, broker string, snap Snapshot) error
}

// TradeJournal is an optional append-only record of closed positions kept
// outside the snapshot files (e.g. in Postgres) so fills survive snapshot
// rotation and can be queried.
type TradeJournal interface {
	Record(ctx context.Context, closed ClosedPosition) error
	ListRecent(ctx context.Context, broker string, limit int) ([]ClosedPosition, error)
}
