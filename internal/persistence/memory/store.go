// Package memory provides an in-process implementation of the roster
// persistence interfaces for tests and single-node development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/shift-roster/internal/persistence"
)

type docKey struct {
	kind persistence.Kind
	key  persistence.Key
}

// Storage keeps documents and snapshots in maps guarded by a single mutex, so
// every conditional write is atomic.
type Storage struct {
	mu        sync.RWMutex
	documents map[docKey]persistence.Document
	snapshots map[string]persistence.Snapshot
	now       func() time.Time
}

// Open returns an empty Storage. now defaults to time.Now.
func Open(now func() time.Time) *Storage {
	if now == nil {
		now = time.Now
	}
	return &Storage{
		documents: make(map[docKey]persistence.Document),
		snapshots: make(map[string]persistence.Snapshot),
		now:       now,
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// --- DocumentRepository implementation ---

// GetDocument returns a copy of the stored document.
func (s *Storage) GetDocument(ctx context.Context, kind persistence.Kind, key persistence.Key) (persistence.Document, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[docKey{kind: kind, key: key}]
	if !ok {
		return persistence.Document{}, persistence.ErrNotFound
	}
	return doc.Clone(), nil
}

// SaveDocument writes doc when cond holds against the stored version.
func (s *Storage) SaveDocument(ctx context.Context, doc persistence.Document, cond persistence.WriteCondition) (persistence.Document, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Document{}, err
	}
	if !doc.Kind.Valid() {
		return persistence.Document{}, fmt.Errorf("%w: unknown kind %q", persistence.ErrConstraintViolation, doc.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(doc, cond)
}

func (s *Storage) saveLocked(doc persistence.Document, cond persistence.WriteCondition) (persistence.Document, error) {
	k := docKey{kind: doc.Kind, key: doc.Key()}
	current, exists := s.documents[k]
	if err := cond.Check(exists, current.UpdatedAt); err != nil {
		return persistence.Document{}, err
	}
	var prev *persistence.Document
	if exists {
		prev = &current
	}
	stored := persistence.Stamp(doc, prev, s.now())
	s.documents[k] = stored
	return stored.Clone(), nil
}

// PublishDocument copies the stage into live and rebases the stage, checking
// both conditions before writing either document.
func (s *Storage) PublishDocument(ctx context.Context, req persistence.PublishRequest) (persistence.PublishOutcome, error) {
	if err := ctx.Err(); err != nil {
		return persistence.PublishOutcome{}, err
	}
	key := req.Stage.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	live, liveExists := s.documents[docKey{kind: persistence.KindLive, key: key}]
	if err := req.Live.Check(liveExists, live.UpdatedAt); err != nil {
		return persistence.PublishOutcome{}, fmt.Errorf("live: %w", err)
	}
	stage, stageExists := s.documents[docKey{kind: persistence.KindStage, key: key}]
	if err := req.StageCondition.Check(stageExists, stage.UpdatedAt); err != nil {
		return persistence.PublishOutcome{}, fmt.Errorf("stage: %w", err)
	}

	liveDoc := req.Stage.Clone()
	liveDoc.Kind = persistence.KindLive
	newLive, err := s.saveLocked(liveDoc, persistence.WriteCondition{Force: true})
	if err != nil {
		return persistence.PublishOutcome{}, err
	}

	stageDoc := req.Stage.Clone()
	stageDoc.Kind = persistence.KindStage
	stageDoc.BaseLiveUpdatedAt = newLive.UpdatedAt
	newStage, err := s.saveLocked(stageDoc, persistence.WriteCondition{Force: true})
	if err != nil {
		return persistence.PublishOutcome{}, err
	}
	return persistence.PublishOutcome{Live: newLive, Stage: newStage}, nil
}

// ListDocumentKeys returns the keys holding a document of kind, ordered by
// week start then timezone.
func (s *Storage) ListDocumentKeys(ctx context.Context, kind persistence.Kind) ([]persistence.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]persistence.Key, 0)
	for k := range s.documents {
		if k.kind == kind {
			keys = append(keys, k.key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].WeekStart == keys[j].WeekStart {
			return keys[i].TZID < keys[j].TZID
		}
		return keys[i].WeekStart < keys[j].WeekStart
	})
	return keys, nil
}

// --- SnapshotRepository implementation ---

// CreateSnapshot stores a new snapshot.
func (s *Storage) CreateSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[snapshot.ID]; ok {
		return fmt.Errorf("%w: snapshot %s", persistence.ErrDuplicate, snapshot.ID)
	}
	snapshot.Week = snapshot.Week.Clone()
	s.snapshots[snapshot.ID] = snapshot
	return nil
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Storage) GetSnapshot(ctx context.Context, id string) (persistence.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return persistence.Snapshot{}, persistence.ErrNotFound
	}
	snap.Week = snap.Week.Clone()
	return snap, nil
}

// ListSnapshots returns the snapshots of key ordered by CreatedAt ascending.
func (s *Storage) ListSnapshots(ctx context.Context, key persistence.Key) ([]persistence.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Snapshot, 0)
	for _, snap := range s.snapshots {
		if snap.Key() != key {
			continue
		}
		snap.Week = snap.Week.Clone()
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
