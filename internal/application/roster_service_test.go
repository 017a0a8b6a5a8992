package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/notify"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/stage"
	"github.com/example/shift-roster/internal/testfixtures"
	"github.com/example/shift-roster/internal/timegrid"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) PublishLive(ctx context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func newService(t *testing.T, deps testfixtures.RosterServiceDeps) (*application.RosterService, *testfixtures.ServiceFactory) {
	t.Helper()
	factory := testfixtures.NewServiceFactory()
	return factory.NewRosterService(deps), factory
}

// publishWeek stores and publishes a week so tests start from a live baseline.
func publishWeek(t *testing.T, svc *application.RosterService, doc persistence.Document) application.PublishResult {
	t.Helper()
	result, err := svc.Publish(context.Background(), doc, application.PublishOptions{})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected publish to succeed, got %+v", result)
	}
	return result
}

func TestRosterService_GetEmptyWeek(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	docs, err := svc.Get(context.Background(), testfixtures.ReferenceKey())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if docs.Stage != nil || docs.Live != nil {
		t.Fatalf("expected no documents, got %+v", docs)
	}

	_, err = svc.Get(context.Background(), persistence.Key{WeekStart: "not-a-date", TZID: "UTC"})
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for malformed key, got %v", err)
	}
}

func TestRosterService_NilStore(t *testing.T) {
	t.Parallel()

	svc := application.NewRosterService(application.RosterServiceDeps{})
	if _, err := svc.Get(context.Background(), testfixtures.ReferenceKey()); !errors.Is(err, application.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestRosterService_SaveStageConcurrency(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()
	doc := testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(testfixtures.NewShift()))

	first, err := svc.SaveStage(ctx, doc, "")
	if err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}
	if !first.OK || first.UpdatedAt == "" {
		t.Fatalf("expected created stage with token, got %+v", first)
	}

	// A second create-only write must conflict.
	again, err := svc.SaveStage(ctx, doc, "")
	if err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}
	if !again.Conflict || again.OK {
		t.Fatalf("expected create-only conflict, got %+v", again)
	}

	// Two writers branch from the same token; only the first wins.
	editA := first.Document.Clone()
	editA.Shifts[0].Notes = "writer A"
	editB := first.Document.Clone()
	editB.Shifts[0].Notes = "writer B"

	won, err := svc.SaveStage(ctx, editA, first.UpdatedAt)
	if err != nil || !won.OK {
		t.Fatalf("expected first writer to win, got %+v err=%v", won, err)
	}
	lost, err := svc.SaveStage(ctx, editB, first.UpdatedAt)
	if err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}
	if !lost.Conflict {
		t.Fatalf("expected stale writer to conflict, got %+v", lost)
	}

	docs, err := svc.Get(ctx, testfixtures.ReferenceKey())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got := docs.Stage.Shifts[0].Notes; got != "writer A" {
		t.Fatalf("expected first write to be kept, got %q", got)
	}
	if docs.Stage.UpdatedAt != won.UpdatedAt {
		t.Fatalf("expected stored token %s, got %s", won.UpdatedAt, docs.Stage.UpdatedAt)
	}
}

func TestRosterService_SaveStageValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	bad := testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(
		testfixtures.NewShift(testfixtures.Between("25:00", "26:00")),
	))

	_, err := svc.SaveStage(context.Background(), bad, "")
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["shifts[0].start"]; !ok {
		t.Fatalf("expected indexed field error, got %v", vErr.FieldErrors)
	}

	live := testfixtures.NewDocument(persistence.KindLive, testfixtures.NewWeek())
	if _, err := svc.SaveStage(context.Background(), live, ""); !errors.As(err, &vErr) {
		t.Fatalf("expected kind mismatch to be rejected, got %v", err)
	}
}

func TestRosterService_SaveStageNormalizesOvernight(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	doc := testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(
		testfixtures.NewShift(testfixtures.OnDay(timegrid.Sat), testfixtures.Between("22:00", "06:00")),
	))

	result, err := svc.SaveStage(context.Background(), doc, "")
	if err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}
	endDay := result.Document.Shifts[0].EndDay
	if endDay == nil || *endDay != timegrid.Sun {
		t.Fatalf("expected overnight Sat shift to end on Sun, got %v", endDay)
	}
}

func TestRosterService_SaveStageWarnings(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()
	published := publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(testfixtures.NewShift())))

	// A draft branched from an older live version and carrying an overlap.
	draft := published.Stage.Clone()
	draft.BaseLiveUpdatedAt = "2000-01-01T00:00:00Z"
	draft.Shifts = append(draft.Shifts, testfixtures.NewShift(testfixtures.Between("16:00", "20:00")))

	result, err := svc.SaveStage(ctx, draft, published.Stage.UpdatedAt)
	if err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}
	codes := map[string]int{}
	for _, w := range result.Warnings {
		codes[w.Code]++
	}
	if codes[application.WarningOverlap] != 1 || codes[application.WarningStageBehind] != 1 {
		t.Fatalf("expected one overlap and one behind warning, got %+v", result.Warnings)
	}
}

func TestRosterService_ResetStage(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()

	empty, err := svc.ResetStage(ctx, testfixtures.ReferenceKey())
	if err != nil {
		t.Fatalf("ResetStage returned error: %v", err)
	}
	if len(empty.Shifts) != 0 || empty.BaseLiveUpdatedAt != "" {
		t.Fatalf("expected empty stage for unpublished week, got %+v", empty)
	}

	// The reset wrote a stage, so publishing must present its token.
	doc := testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(testfixtures.NewShift()))
	doc.UpdatedAt = empty.UpdatedAt
	published := publishWeek(t, svc, doc)

	draft := published.Stage.Clone()
	draft.Shifts = nil
	if _, err := svc.SaveStage(ctx, draft, published.Stage.UpdatedAt); err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}

	reset, err := svc.ResetStage(ctx, testfixtures.ReferenceKey())
	if err != nil {
		t.Fatalf("ResetStage returned error: %v", err)
	}
	if len(reset.Shifts) != 1 {
		t.Fatalf("expected live shifts restored, got %d", len(reset.Shifts))
	}
	if reset.BaseLiveUpdatedAt != published.UpdatedAt {
		t.Fatalf("expected base %s, got %s", published.UpdatedAt, reset.BaseLiveUpdatedAt)
	}
	if reset.Kind != persistence.KindStage {
		t.Fatalf("expected stage kind, got %s", reset.Kind)
	}
}

func TestRosterService_Publish(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	m := metrics.New()
	svc, _ := newService(t, testfixtures.RosterServiceDeps{Publisher: publisher, Metrics: m, SnapshotOnPublish: true})
	ctx := context.Background()

	first := publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(testfixtures.NewShift())))
	if first.Stage.BaseLiveUpdatedAt != first.UpdatedAt {
		t.Fatalf("expected stage rebased onto live %s, got %s", first.UpdatedAt, first.Stage.BaseLiveUpdatedAt)
	}
	if first.SnapshotID == "" {
		t.Fatalf("expected snapshot on publish")
	}
	if len(publisher.events) != 1 || publisher.events[0].UpdatedAt != first.UpdatedAt {
		t.Fatalf("expected one live event, got %+v", publisher.events)
	}

	// Another editor publishes in between.
	other := first.Stage.Clone()
	other.Shifts[0].Notes = "other editor"
	second, err := svc.Publish(ctx, other, application.PublishOptions{})
	if err != nil || !second.OK {
		t.Fatalf("expected second publish to succeed, got %+v err=%v", second, err)
	}

	// A stale draft based on the first live version conflicts on live.
	stale := first.Stage.Clone()
	stale.UpdatedAt = second.Stage.UpdatedAt
	stale.Shifts[0].Notes = "stale"
	conflict, err := svc.Publish(ctx, stale, application.PublishOptions{})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if !conflict.Conflict || conflict.OK {
		t.Fatalf("expected conflict, got %+v", conflict)
	}

	docs, _ := svc.Get(ctx, testfixtures.ReferenceKey())
	if docs.Live.Shifts[0].Notes != "other editor" || docs.Live.UpdatedAt != second.UpdatedAt {
		t.Fatalf("expected live untouched by the conflicting publish, got %+v", docs.Live)
	}

	// An explicit expected token overrides the stage base.
	explicit, err := svc.Publish(ctx, stale, application.PublishOptions{ExpectedLiveUpdatedAt: second.UpdatedAt})
	if err != nil || !explicit.OK {
		t.Fatalf("expected publish with explicit token to succeed, got %+v err=%v", explicit, err)
	}

	// Force skips both checks.
	forced := first.Stage.Clone()
	forced.Shifts[0].Notes = "forced"
	result, err := svc.Publish(ctx, forced, application.PublishOptions{Force: true})
	if err != nil || !result.OK {
		t.Fatalf("expected forced publish to succeed, got %+v err=%v", result, err)
	}

	if got := testutil.ToFloat64(m.Publishes); got != 4 {
		t.Fatalf("expected 4 publishes counted, got %v", got)
	}
	snaps, err := svc.ListSnapshots(ctx, testfixtures.ReferenceKey())
	if err != nil {
		t.Fatalf("ListSnapshots returned error: %v", err)
	}
	if len(snaps) != 4 {
		t.Fatalf("expected a snapshot per publish, got %d", len(snaps))
	}
}

func TestRosterService_PublishIgnoresNotifyFailure(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{err: errors.New("redis down")}
	svc, _ := newService(t, testfixtures.RosterServiceDeps{Publisher: publisher})
	result := publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(testfixtures.NewShift())))
	if result.SnapshotID != "" {
		t.Fatalf("expected no snapshot when disabled, got %s", result.SnapshotID)
	}
}

func TestRosterService_Snapshot(t *testing.T) {
	t.Parallel()

	svc, factory := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()

	if _, err := svc.Snapshot(ctx, testfixtures.ReferenceKey(), persistence.KindLive, "none yet"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing live, got %v", err)
	}
	var vErr *application.ValidationError
	if _, err := svc.Snapshot(ctx, testfixtures.ReferenceKey(), persistence.Kind("draft"), ""); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}

	saved, err := svc.SaveStage(ctx, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(testfixtures.NewShift())), "")
	if err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}
	result, err := svc.Snapshot(ctx, testfixtures.ReferenceKey(), persistence.KindStage, "before review")
	if err != nil || !result.OK {
		t.Fatalf("expected snapshot, got %+v err=%v", result, err)
	}
	snap, err := svc.GetSnapshot(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetSnapshot returned error: %v", err)
	}
	if snap.Title != "before review" || snap.SourceUpdatedAt != saved.UpdatedAt || len(snap.Week.Shifts) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected snapshot time %v, got %v", factory.Clock.Now(), snap.CreatedAt)
	}
	if _, err := svc.GetSnapshot(ctx, "missing"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRosterService_DiffScenario(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()

	a := testfixtures.NewShift(testfixtures.WithShiftID("a"), testfixtures.Between("09:00", "17:00"))
	b := testfixtures.NewShift(testfixtures.WithShiftID("b"), testfixtures.OnDay(timegrid.Tue))
	published := publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(a, b)))

	noChange, err := svc.Diff(ctx, testfixtures.ReferenceKey(), stage.Options{})
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if !noChange.Empty() {
		t.Fatalf("expected no changes right after publish, got %+v", noChange)
	}

	draft := published.Stage.Clone()
	draft.Shifts[0].End = "18:00"
	draft.Shifts = append(draft.Shifts[:1], testfixtures.NewShift(testfixtures.WithShiftID("c"), testfixtures.OnDay(timegrid.Wed)))
	if _, err := svc.SaveStage(ctx, draft, published.Stage.UpdatedAt); err != nil {
		t.Fatalf("SaveStage returned error: %v", err)
	}

	diff, err := svc.Diff(ctx, testfixtures.ReferenceKey(), stage.Options{})
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if len(diff.Shifts.Added) != 1 || diff.Shifts.Added[0].ID != "c" {
		t.Fatalf("expected c added, got %+v", diff.Shifts.Added)
	}
	if len(diff.Shifts.Updated) != 1 || diff.Shifts.Updated[0].ID != "a" {
		t.Fatalf("expected a updated, got %+v", diff.Shifts.Updated)
	}
	if len(diff.Shifts.Removed) != 1 || diff.Shifts.Removed[0].ID != "b" {
		t.Fatalf("expected b removed, got %+v", diff.Shifts.Removed)
	}
}

func TestRosterService_Compliance(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	svc, _ := newService(t, testfixtures.RosterServiceDeps{Metrics: m})
	ctx := context.Background()

	if _, err := svc.Compliance(ctx, testfixtures.ReferenceKey(), persistence.KindLive, application.ComplianceOptions{}); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before publish, got %v", err)
	}

	long := testfixtures.NewShift(
		testfixtures.Between("09:00", "17:01"),
		testfixtures.WithSegments(testfixtures.Segment("task-break", 240, 30)),
	)
	publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(long)))

	report, err := svc.Compliance(ctx, testfixtures.ReferenceKey(), persistence.KindLive, application.ComplianceOptions{})
	if err != nil {
		t.Fatalf("Compliance returned error: %v", err)
	}
	found := false
	for _, issue := range report.Issues {
		if issue.Rule == compliance.RuleDailyOT {
			found = true
		}
		if issue.Rule == compliance.RuleMealMissing {
			t.Fatalf("expected the 30 minute break to satisfy the meal rule, got %+v", issue)
		}
	}
	if !found {
		t.Fatalf("expected daily overtime issue, got %+v", report.Issues)
	}
	if report.Soft == 0 {
		t.Fatalf("expected soft issues counted, got %+v", report)
	}

	// The second call is served from the cache and does not re-run the gauges.
	if _, err := svc.Compliance(ctx, testfixtures.ReferenceKey(), persistence.KindLive, application.ComplianceOptions{}); err != nil {
		t.Fatalf("Compliance returned error: %v", err)
	}
	if got := testutil.ToFloat64(m.ComplianceRuns); got != 1 {
		t.Fatalf("expected one evaluation, got %v", got)
	}
}

func TestRosterService_ComplianceSuppressMealBreaks(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()
	publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(
		testfixtures.NewShift(testfixtures.Between("09:00", "17:00")),
	)))

	hasMeal := func(report application.ComplianceReport) bool {
		for _, issue := range report.Issues {
			if issue.Rule == compliance.RuleMealMissing {
				return true
			}
		}
		return false
	}

	full, err := svc.Compliance(ctx, testfixtures.ReferenceKey(), persistence.KindLive, application.ComplianceOptions{})
	if err != nil {
		t.Fatalf("Compliance returned error: %v", err)
	}
	if !hasMeal(full) || full.Hard == 0 {
		t.Fatalf("expected a hard meal issue, got %+v", full)
	}

	// A cached unsuppressed result must not answer the suppressed query.
	suppressed, err := svc.Compliance(ctx, testfixtures.ReferenceKey(), persistence.KindLive, application.ComplianceOptions{SuppressMealBreaks: true})
	if err != nil {
		t.Fatalf("Compliance returned error: %v", err)
	}
	if hasMeal(suppressed) || !suppressed.SuppressMealBreaks {
		t.Fatalf("expected meal rules skipped, got %+v", suppressed)
	}
}

func TestRosterService_CoverageAndListWeeks(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, testfixtures.RosterServiceDeps{})
	ctx := context.Background()
	publishWeek(t, svc, testfixtures.NewDocument(persistence.KindStage, testfixtures.NewWeek(
		testfixtures.NewShift(),
		testfixtures.NewShift(testfixtures.WithPerson("agent-002"), testfixtures.Between("12:00", "20:00")),
	)))

	report, err := svc.Coverage(ctx, testfixtures.ReferenceKey(), persistence.KindLive, 60)
	if err != nil {
		t.Fatalf("Coverage returned error: %v", err)
	}
	if len(report.Bins) != 7*24 {
		t.Fatalf("expected hourly bins, got %d", len(report.Bins))
	}
	if len(report.Peak) != 5 || report.Peak[0].Count != 2 {
		t.Fatalf("expected 12:00-17:00 peak of 2, got %+v", report.Peak)
	}

	var vErr *application.ValidationError
	if _, err := svc.Coverage(ctx, testfixtures.ReferenceKey(), persistence.KindLive, 7); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for bad bin width, got %v", err)
	}

	keys, err := svc.ListWeeks(ctx, persistence.KindLive)
	if err != nil {
		t.Fatalf("ListWeeks returned error: %v", err)
	}
	if len(keys) != 1 || keys[0] != testfixtures.ReferenceKey() {
		t.Fatalf("expected reference week, got %+v", keys)
	}
}
