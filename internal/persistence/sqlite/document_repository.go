package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
)

type documentHeader struct {
	exists    bool
	updatedAt string
	revision  int64
}

func (h documentHeader) previous() *persistence.Document {
	if !h.exists {
		return nil
	}
	return &persistence.Document{UpdatedAt: h.updatedAt, Revision: h.revision}
}

// GetDocument loads a stage or live document.
func (s *Storage) GetDocument(ctx context.Context, kind persistence.Kind, key persistence.Key) (persistence.Document, error) {
	query := `
		SELECT updated_at, base_live_updated_at, revision, body
		FROM roster_documents
		WHERE kind = ? AND week_start = ? AND tz_id = ?
	`

	doc := persistence.Document{Kind: kind, WeekStart: key.WeekStart, TZID: key.TZID}
	var body string
	err := s.db.QueryRowContext(ctx, query, string(kind), key.WeekStart, key.TZID).
		Scan(&doc.UpdatedAt, &doc.BaseLiveUpdatedAt, &doc.Revision, &body)
	if err != nil {
		return persistence.Document{}, translateError(err)
	}
	if err := json.Unmarshal([]byte(body), &doc.Week); err != nil {
		return persistence.Document{}, fmt.Errorf("decode %s document %s: %w", kind, key, err)
	}
	doc.EnsureSlices()
	return doc, nil
}

// SaveDocument writes doc when cond holds. The token read and the write share
// one immediate transaction.
func (s *Storage) SaveDocument(ctx context.Context, doc persistence.Document, cond persistence.WriteCondition) (persistence.Document, error) {
	if !doc.Kind.Valid() {
		return persistence.Document{}, fmt.Errorf("%w: unknown kind %q", persistence.ErrConstraintViolation, doc.Kind)
	}

	var stored persistence.Document
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		header, err := readHeader(ctx, tx, doc.Kind, doc.Key())
		if err != nil {
			return err
		}
		if err := cond.Check(header.exists, header.updatedAt); err != nil {
			return err
		}
		stored = persistence.Stamp(doc, header.previous(), s.now())
		return writeDocument(ctx, tx, stored)
	})
	if err != nil {
		return persistence.Document{}, translateError(err)
	}
	return stored, nil
}

// PublishDocument writes the live copy and the rebased stage in one
// transaction, after checking both conditions.
func (s *Storage) PublishDocument(ctx context.Context, req persistence.PublishRequest) (persistence.PublishOutcome, error) {
	key := req.Stage.Key()

	var outcome persistence.PublishOutcome
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		liveHeader, err := readHeader(ctx, tx, persistence.KindLive, key)
		if err != nil {
			return err
		}
		if err := req.Live.Check(liveHeader.exists, liveHeader.updatedAt); err != nil {
			return fmt.Errorf("live: %w", err)
		}
		stageHeader, err := readHeader(ctx, tx, persistence.KindStage, key)
		if err != nil {
			return err
		}
		if err := req.StageCondition.Check(stageHeader.exists, stageHeader.updatedAt); err != nil {
			return fmt.Errorf("stage: %w", err)
		}

		now := s.now()
		live := req.Stage.Clone()
		live.Kind = persistence.KindLive
		outcome.Live = persistence.Stamp(live, liveHeader.previous(), now)
		if err := writeDocument(ctx, tx, outcome.Live); err != nil {
			return err
		}

		stage := req.Stage.Clone()
		stage.Kind = persistence.KindStage
		stage.BaseLiveUpdatedAt = outcome.Live.UpdatedAt
		outcome.Stage = persistence.Stamp(stage, stageHeader.previous(), now)
		return writeDocument(ctx, tx, outcome.Stage)
	})
	if err != nil {
		return persistence.PublishOutcome{}, translateError(err)
	}
	return outcome, nil
}

// ListDocumentKeys returns the keys holding a document of kind.
func (s *Storage) ListDocumentKeys(ctx context.Context, kind persistence.Kind) ([]persistence.Key, error) {
	query := `
		SELECT week_start, tz_id
		FROM roster_documents
		WHERE kind = ?
		ORDER BY week_start, tz_id
	`

	rows, err := s.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	keys := make([]persistence.Key, 0)
	for rows.Next() {
		var key persistence.Key
		if err := rows.Scan(&key.WeekStart, &key.TZID); err != nil {
			return nil, fmt.Errorf("failed to scan document key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document keys: %w", err)
	}
	return keys, nil
}

func readHeader(ctx context.Context, tx *sql.Tx, kind persistence.Kind, key persistence.Key) (documentHeader, error) {
	query := `
		SELECT updated_at, revision
		FROM roster_documents
		WHERE kind = ? AND week_start = ? AND tz_id = ?
	`

	var h documentHeader
	err := tx.QueryRowContext(ctx, query, string(kind), key.WeekStart, key.TZID).Scan(&h.updatedAt, &h.revision)
	if errors.Is(err, sql.ErrNoRows) {
		return documentHeader{}, nil
	}
	if err != nil {
		return documentHeader{}, err
	}
	h.exists = true
	return h, nil
}

func writeDocument(ctx context.Context, tx *sql.Tx, doc persistence.Document) error {
	body, err := encodeWeek(doc.Week)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO roster_documents (kind, week_start, tz_id, updated_at, base_live_updated_at, revision, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, week_start, tz_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			base_live_updated_at = excluded.base_live_updated_at,
			revision = excluded.revision,
			body = excluded.body
	`
	_, err = tx.ExecContext(ctx, query,
		string(doc.Kind),
		doc.WeekStart,
		doc.TZID,
		doc.UpdatedAt,
		doc.BaseLiveUpdatedAt,
		doc.Revision,
		body,
	)
	return err
}

func encodeWeek(week roster.Week) (string, error) {
	week.EnsureSlices()
	body, err := json.Marshal(week)
	if err != nil {
		return "", fmt.Errorf("encode roster week: %w", err)
	}
	return string(body), nil
}
