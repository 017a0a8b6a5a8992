package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/shift-roster/internal/persistence"
)

// createdAtLayout is fixed width so created_at sorts chronologically as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// CreateSnapshot archives a roster week.
func (s *Storage) CreateSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("%w: snapshot id is required", persistence.ErrConstraintViolation)
	}
	body, err := encodeWeek(snapshot.Week)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO roster_snapshots (id, kind, week_start, tz_id, title, source_updated_at, created_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		snapshot.ID,
		string(snapshot.Kind),
		snapshot.WeekStart,
		snapshot.TZID,
		snapshot.Title,
		snapshot.SourceUpdatedAt,
		snapshot.CreatedAt.UTC().Format(createdAtLayout),
		body,
	)
	return translateError(err)
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Storage) GetSnapshot(ctx context.Context, id string) (persistence.Snapshot, error) {
	query := `
		SELECT id, kind, week_start, tz_id, title, source_updated_at, created_at, body
		FROM roster_snapshots
		WHERE id = ?
	`
	return scanSnapshot(s.db.QueryRowContext(ctx, query, id))
}

// ListSnapshots returns the snapshots of key, oldest first.
func (s *Storage) ListSnapshots(ctx context.Context, key persistence.Key) ([]persistence.Snapshot, error) {
	query := `
		SELECT id, kind, week_start, tz_id, title, source_updated_at, created_at, body
		FROM roster_snapshots
		WHERE week_start = ? AND tz_id = ?
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, key.WeekStart, key.TZID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	snapshots := make([]persistence.Snapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (persistence.Snapshot, error) {
	var snap persistence.Snapshot
	var kind, createdAt, body string
	err := row.Scan(&snap.ID, &kind, &snap.WeekStart, &snap.TZID, &snap.Title, &snap.SourceUpdatedAt, &createdAt, &body)
	if err != nil {
		return persistence.Snapshot{}, translateError(err)
	}
	snap.Kind = persistence.Kind(kind)
	if snap.CreatedAt, err = time.Parse(createdAtLayout, createdAt); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("failed to parse snapshot created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &snap.Week); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	snap.Week.EnsureSlices()
	return snap, nil
}
