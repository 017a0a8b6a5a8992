package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/notify"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/scheduler"
	"github.com/example/shift-roster/internal/stage"
)

const serviceName = "RosterService"

// RosterServiceDeps wires the collaborators of a RosterService. Only Store is
// required.
type RosterServiceDeps struct {
	Store       persistence.Store
	Publisher   notify.Publisher
	Metrics     *metrics.Metrics
	Laws        *compliance.LawsConfig
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger

	// SnapshotOnPublish archives every published live document.
	SnapshotOnPublish  bool
	ComplianceCacheTTL time.Duration
}

// RosterService is the boundary through which roster weeks are read, edited,
// published and archived.
type RosterService struct {
	store             persistence.Store
	publisher         notify.Publisher
	metrics           *metrics.Metrics
	laws              *compliance.LawsConfig
	idGenerator       func() string
	now               func() time.Time
	logger            *slog.Logger
	snapshotOnPublish bool
	cache             *complianceCache
}

// NewRosterService constructs a RosterService.
func NewRosterService(deps RosterServiceDeps) *RosterService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = notify.Noop{}
	}
	return &RosterService{
		store:             deps.Store,
		publisher:         publisher,
		metrics:           deps.Metrics,
		laws:              deps.Laws,
		idGenerator:       idGen,
		now:               now,
		logger:            defaultLogger(deps.Logger),
		snapshotOnPublish: deps.SnapshotOnPublish,
		cache:             newComplianceCache(deps.ComplianceCacheTTL, 0, now),
	}
}

func (s *RosterService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, serviceName, operation, attrs...)
}

func (s *RosterService) ready() error {
	if s == nil {
		return fmt.Errorf("RosterService is nil")
	}
	if s.store == nil {
		return ErrNotConfigured
	}
	return nil
}

// load reads one document; a missing document is reported as nil.
func (s *RosterService) load(ctx context.Context, kind persistence.Kind, key persistence.Key) (*persistence.Document, error) {
	start := time.Now()
	doc, err := s.store.GetDocument(ctx, kind, key)
	s.metrics.ObserveStore("get_"+string(kind), start, err)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *RosterService) loadBoth(ctx context.Context, key persistence.Key) (WeekDocs, error) {
	stageDoc, err := s.load(ctx, persistence.KindStage, key)
	if err != nil {
		return WeekDocs{}, err
	}
	liveDoc, err := s.load(ctx, persistence.KindLive, key)
	if err != nil {
		return WeekDocs{}, err
	}
	return WeekDocs{Stage: stageDoc, Live: liveDoc}, nil
}

// Get returns the stage and live documents of a week.
func (s *RosterService) Get(ctx context.Context, key persistence.Key) (docs WeekDocs, err error) {
	if err := s.ready(); err != nil {
		return WeekDocs{}, err
	}
	logger := s.loggerWith(ctx, "Get", "week", key.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load week", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := validateKey(key); err != nil {
		return WeekDocs{}, err
	}
	docs, err = s.loadBoth(ctx, key)
	if err != nil {
		return WeekDocs{}, err
	}
	logger.DebugContext(ctx, "week loaded", "has_stage", docs.Stage != nil, "has_live", docs.Live != nil)
	return docs, nil
}

// prepare validates doc and returns a normalized copy of the given kind.
func prepare(doc persistence.Document, kind persistence.Kind) (persistence.Document, error) {
	if err := validateKey(doc.Key()); err != nil {
		return persistence.Document{}, err
	}
	if doc.Kind != "" && doc.Kind != kind {
		return persistence.Document{}, invalid("kind", fmt.Sprintf("expected %s document, got %s", kind, doc.Kind))
	}
	out := doc.Clone()
	out.Kind = kind
	if err := out.Week.Validate(); err != nil {
		return persistence.Document{}, err
	}
	normalized, err := roster.NormalizeShifts(out.Shifts)
	if err != nil {
		return persistence.Document{}, err
	}
	out.Shifts = normalized
	out.EnsureSlices()
	return out, nil
}

// SaveStage writes doc as the stage copy of its week when expectedUpdatedAt
// matches the stored token. An empty expectedUpdatedAt only creates. A stale
// token yields Conflict without writing.
func (s *RosterService) SaveStage(ctx context.Context, doc persistence.Document, expectedUpdatedAt string) (result WriteResult, err error) {
	if err := s.ready(); err != nil {
		return WriteResult{}, err
	}
	logger := s.loggerWith(ctx, "SaveStage", "week", doc.Key().String(), "expected_updated_at", expectedUpdatedAt)
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "failed to save stage", "error", err, "error_kind", ErrorKind(err))
		case result.Conflict:
			logger.WarnContext(ctx, "stage save rejected by stale token")
		default:
			logger.InfoContext(ctx, "stage saved", "updated_at", result.UpdatedAt, "warnings", len(result.Warnings))
		}
	}()

	prepared, err := prepare(doc, persistence.KindStage)
	if err != nil {
		return WriteResult{}, err
	}
	return s.writeStage(ctx, prepared, persistence.WriteCondition{ExpectedUpdatedAt: expectedUpdatedAt})
}

func (s *RosterService) writeStage(ctx context.Context, doc persistence.Document, cond persistence.WriteCondition) (WriteResult, error) {
	start := time.Now()
	saved, err := s.store.SaveDocument(ctx, doc, cond)
	s.metrics.ObserveStore("save_stage", start, err)
	if errors.Is(err, persistence.ErrConflict) {
		return WriteResult{Conflict: true, Warnings: []Warning{}}, nil
	}
	if err != nil {
		return WriteResult{}, mapRepoError(err)
	}

	warnings := overlapWarnings(saved.Shifts)
	live, err := s.load(ctx, persistence.KindLive, saved.Key())
	if err != nil {
		// The write already happened; only the staleness hint is lost.
		s.loggerWith(ctx, "SaveStage").WarnContext(ctx, "could not compare stage with live", "error", err)
	} else if stage.IsBehind(saved, live) {
		warnings = append(warnings, Warning{
			Code:    WarningStageBehind,
			Message: fmt.Sprintf("live was published at %s after this stage was branched", live.UpdatedAt),
		})
	}

	return WriteResult{
		OK:        true,
		UpdatedAt: saved.UpdatedAt,
		Revision:  saved.Revision,
		Document:  &saved,
		Warnings:  warnings,
	}, nil
}

// overlapWarnings reports each overlapping pair once.
func overlapWarnings(shifts []roster.Shift) []Warning {
	warnings := make([]Warning, 0)
	for i, candidate := range shifts {
		for _, c := range scheduler.Conflicts(candidate, shifts[i+1:]) {
			warnings = append(warnings, Warning{
				Code:    WarningOverlap,
				ShiftID: candidate.ID,
				Message: fmt.Sprintf("%s overlaps %s for %s on %s", candidate.ID, c.WithShiftID, c.Person, c.Day),
			})
		}
	}
	return warnings
}

// ResetStage discards local edits by overwriting the stage with a clone of
// live. A week that has never been published resets to an empty stage.
func (s *RosterService) ResetStage(ctx context.Context, key persistence.Key) (doc persistence.Document, err error) {
	if err := s.ready(); err != nil {
		return persistence.Document{}, err
	}
	logger := s.loggerWith(ctx, "ResetStage", "week", key.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reset stage", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "stage reset", "base_live_updated_at", doc.BaseLiveUpdatedAt)
	}()

	if err := validateKey(key); err != nil {
		return persistence.Document{}, err
	}
	live, err := s.load(ctx, persistence.KindLive, key)
	if err != nil {
		return persistence.Document{}, err
	}
	fresh := stage.Empty(key)
	if live != nil {
		fresh = stage.CloneFromLive(*live)
	}

	start := time.Now()
	saved, err := s.store.SaveDocument(ctx, fresh, persistence.WriteCondition{Force: true})
	s.metrics.ObserveStore("save_stage", start, err)
	if err != nil {
		return persistence.Document{}, mapRepoError(err)
	}
	return saved, nil
}

// Publish copies stageDoc into live and rebases the stored stage onto the new
// live version in one atomic step. The live token is compared against
// opts.ExpectedLiveUpdatedAt, or stageDoc.BaseLiveUpdatedAt when that is
// empty; the stored stage must still carry stageDoc.UpdatedAt. Any mismatch
// yields Conflict and nothing is written.
func (s *RosterService) Publish(ctx context.Context, stageDoc persistence.Document, opts PublishOptions) (result PublishResult, err error) {
	if err := s.ready(); err != nil {
		return PublishResult{}, err
	}
	expected := opts.ExpectedLiveUpdatedAt
	if expected == "" {
		expected = stageDoc.BaseLiveUpdatedAt
	}
	logger := s.loggerWith(ctx, "Publish",
		"week", stageDoc.Key().String(),
		"expected_live_updated_at", expected,
		"force", opts.Force)
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "failed to publish", "error", err, "error_kind", ErrorKind(err))
		case result.Conflict:
			logger.WarnContext(ctx, "publish rejected by stale token")
		default:
			logger.InfoContext(ctx, "stage published", "updated_at", result.UpdatedAt, "snapshot_id", result.SnapshotID)
		}
	}()

	prepared, err := prepare(stageDoc, persistence.KindStage)
	if err != nil {
		return PublishResult{}, err
	}
	req := persistence.PublishRequest{
		Stage:          prepared,
		Live:           persistence.WriteCondition{ExpectedUpdatedAt: expected, Force: opts.Force},
		StageCondition: persistence.WriteCondition{ExpectedUpdatedAt: prepared.UpdatedAt, Force: opts.Force},
	}

	start := time.Now()
	outcome, err := s.store.PublishDocument(ctx, req)
	s.metrics.ObserveStore("publish", start, err)
	if errors.Is(err, persistence.ErrConflict) {
		return PublishResult{Conflict: true}, nil
	}
	if err != nil {
		return PublishResult{}, mapRepoError(err)
	}
	s.metrics.IncPublishes()
	s.cache.forget(prepared.Key())

	result = PublishResult{
		OK:        true,
		UpdatedAt: outcome.Live.UpdatedAt,
		Live:      &outcome.Live,
		Stage:     &outcome.Stage,
	}

	if err := s.publisher.PublishLive(ctx, notify.EventFor(outcome.Live, s.now())); err != nil {
		logger.WarnContext(ctx, "failed to announce publish", "error", err)
	}

	if s.snapshotOnPublish {
		title := opts.SnapshotTitle
		if title == "" {
			title = "published " + outcome.Live.UpdatedAt
		}
		snap, snapErr := s.archive(ctx, outcome.Live, title)
		if snapErr != nil {
			logger.WarnContext(ctx, "failed to archive published week", "error", snapErr)
		} else {
			result.SnapshotID = snap.ID
		}
	}
	return result, nil
}

// Snapshot archives the current stage or live document of a week.
func (s *RosterService) Snapshot(ctx context.Context, key persistence.Key, kind persistence.Kind, title string) (result SnapshotResult, err error) {
	if err := s.ready(); err != nil {
		return SnapshotResult{}, err
	}
	logger := s.loggerWith(ctx, "Snapshot", "week", key.String(), "kind", kind)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to snapshot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "snapshot created", "snapshot_id", result.ID)
	}()

	if err := validateKey(key); err != nil {
		return SnapshotResult{}, err
	}
	if !kind.Valid() {
		return SnapshotResult{}, invalid("kind", fmt.Sprintf("unknown document kind %q", kind))
	}
	doc, err := s.load(ctx, kind, key)
	if err != nil {
		return SnapshotResult{}, err
	}
	if doc == nil {
		return SnapshotResult{}, fmt.Errorf("%w: no %s document for %s", ErrNotFound, kind, key)
	}
	snap, err := s.archive(ctx, *doc, title)
	if err != nil {
		return SnapshotResult{}, err
	}
	return SnapshotResult{OK: true, ID: snap.ID}, nil
}

func (s *RosterService) archive(ctx context.Context, doc persistence.Document, title string) (persistence.Snapshot, error) {
	snap := persistence.Snapshot{
		ID:              s.idGenerator(),
		Kind:            doc.Kind,
		WeekStart:       doc.WeekStart,
		TZID:            doc.TZID,
		Title:           title,
		SourceUpdatedAt: doc.UpdatedAt,
		CreatedAt:       s.now().UTC(),
		Week:            doc.Week.Clone(),
	}
	start := time.Now()
	err := s.store.CreateSnapshot(ctx, snap)
	s.metrics.ObserveStore("create_snapshot", start, err)
	if err != nil {
		return persistence.Snapshot{}, mapRepoError(err)
	}
	return snap, nil
}

// ListSnapshots returns the archived copies of a week, oldest first.
func (s *RosterService) ListSnapshots(ctx context.Context, key persistence.Key) ([]persistence.Snapshot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	start := time.Now()
	snaps, err := s.store.ListSnapshots(ctx, key)
	s.metrics.ObserveStore("list_snapshots", start, err)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return snaps, nil
}

// GetSnapshot returns one archived copy.
func (s *RosterService) GetSnapshot(ctx context.Context, id string) (persistence.Snapshot, error) {
	if err := s.ready(); err != nil {
		return persistence.Snapshot{}, err
	}
	if id == "" {
		return persistence.Snapshot{}, invalid("id", "snapshot id is required")
	}
	start := time.Now()
	snap, err := s.store.GetSnapshot(ctx, id)
	s.metrics.ObserveStore("get_snapshot", start, err)
	if err != nil {
		return persistence.Snapshot{}, mapRepoError(err)
	}
	return snap, nil
}

// ListWeeks returns the keys of every stored week of the given kind.
func (s *RosterService) ListWeeks(ctx context.Context, kind persistence.Kind) ([]persistence.Key, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, invalid("kind", fmt.Sprintf("unknown document kind %q", kind))
	}
	keys, err := s.store.ListDocumentKeys(ctx, kind)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return keys, nil
}
