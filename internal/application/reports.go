package application

import (
	"context"
	"fmt"

	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/coverage"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/stage"
)

// DefaultBinMinutes is the coverage bin width used when none is given.
const DefaultBinMinutes = 30

// Diff compares the stored stage against live. A week without a stage
// compares live with itself.
func (s *RosterService) Diff(ctx context.Context, key persistence.Key, opts stage.Options) (stage.WeekDiff, error) {
	if err := s.ready(); err != nil {
		return stage.WeekDiff{}, err
	}
	if err := validateKey(key); err != nil {
		return stage.WeekDiff{}, err
	}
	docs, err := s.loadBoth(ctx, key)
	if err != nil {
		s.loggerWith(ctx, "Diff", "week", key.String()).
			ErrorContext(ctx, "failed to load week", "error", err, "error_kind", ErrorKind(err))
		return stage.WeekDiff{}, err
	}
	draft := stage.Empty(key)
	switch {
	case docs.Stage != nil:
		draft = *docs.Stage
	case docs.Live != nil:
		draft = stage.CloneFromLive(*docs.Live)
	}
	return stage.DiffDocuments(docs.Live, draft, opts), nil
}

func (s *RosterService) required(ctx context.Context, kind persistence.Kind, key persistence.Key) (persistence.Document, error) {
	if err := validateKey(key); err != nil {
		return persistence.Document{}, err
	}
	if !kind.Valid() {
		return persistence.Document{}, invalid("kind", fmt.Sprintf("unknown document kind %q", kind))
	}
	doc, err := s.load(ctx, kind, key)
	if err != nil {
		return persistence.Document{}, err
	}
	if doc == nil {
		return persistence.Document{}, fmt.Errorf("%w: no %s document for %s", ErrNotFound, kind, key)
	}
	return *doc, nil
}

// Compliance evaluates the labor rules against a stored document. Results
// are cached per document version and options.
func (s *RosterService) Compliance(ctx context.Context, key persistence.Key, kind persistence.Kind, opts ComplianceOptions) (ComplianceReport, error) {
	if err := s.ready(); err != nil {
		return ComplianceReport{}, err
	}
	logger := s.loggerWith(ctx, "Compliance", "week", key.String(), "kind", kind, "suppress_meal_breaks", opts.SuppressMealBreaks)

	doc, err := s.required(ctx, kind, key)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load document", "error", err, "error_kind", ErrorKind(err))
		return ComplianceReport{}, err
	}

	issues, ok := s.cache.lookup(doc, opts)
	if !ok {
		issues, err = compliance.Evaluate(compliance.Input{
			WeekStart:    doc.WeekStart,
			BaseTZ:       doc.TZID,
			Shifts:       doc.Shifts,
			Agents:       doc.Agents,
			Tasks:        doc.Tasks,
			CalendarSegs: doc.CalendarSegs,
			PTO:          doc.PTO,
			Laws:         s.laws,

			SuppressMealBreaks: opts.SuppressMealBreaks,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to evaluate compliance", "error", err)
			return ComplianceReport{}, err
		}
		s.cache.remember(doc, opts, issues)
		s.metrics.SetComplianceIssues(issueCounts(issues))
	}

	hard, soft := compliance.Counts(issues)
	logger.DebugContext(ctx, "compliance evaluated", "hard", hard, "soft", soft, "cached", ok)
	return ComplianceReport{
		Kind:      doc.Kind,
		Key:       key,
		UpdatedAt: doc.UpdatedAt,
		Issues:    issues,
		Hard:      hard,
		Soft:      soft,

		SuppressMealBreaks: opts.SuppressMealBreaks,
	}, nil
}

func issueCounts(issues []compliance.Issue) []metrics.IssueCount {
	type bucket struct{ rule, severity string }
	counts := make(map[bucket]int)
	order := make([]bucket, 0)
	for _, i := range issues {
		b := bucket{rule: i.Rule, severity: string(i.Severity)}
		if _, seen := counts[b]; !seen {
			order = append(order, b)
		}
		counts[b]++
	}
	out := make([]metrics.IssueCount, 0, len(order))
	for _, b := range order {
		out = append(out, metrics.IssueCount{Rule: b.rule, Severity: b.severity, Count: counts[b]})
	}
	return out
}

// Coverage bins a stored document's shifts. binMinutes of zero uses
// DefaultBinMinutes.
func (s *RosterService) Coverage(ctx context.Context, key persistence.Key, kind persistence.Kind, binMinutes int) (CoverageReport, error) {
	if err := s.ready(); err != nil {
		return CoverageReport{}, err
	}
	if binMinutes == 0 {
		binMinutes = DefaultBinMinutes
	}
	doc, err := s.required(ctx, kind, key)
	if err != nil {
		return CoverageReport{}, err
	}
	bins, err := coverage.Bins(doc.Shifts, binMinutes)
	if err != nil {
		return CoverageReport{}, invalid("binMinutes", err.Error())
	}
	return CoverageReport{
		Kind:       doc.Kind,
		Key:        key,
		BinMinutes: binMinutes,
		Bins:       bins,
		Peak:       coverage.Peak(bins),
		Gaps:       coverage.Gaps(bins),
	}, nil
}
