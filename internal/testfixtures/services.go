package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/notify"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/persistence/memory"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// RosterServiceDeps captures dependencies for constructing a roster service.
// A nil Store is replaced by an in-memory store driven by the factory clock.
type RosterServiceDeps struct {
	Store             persistence.Store
	Publisher         notify.Publisher
	Metrics           *metrics.Metrics
	Laws              *compliance.LawsConfig
	SnapshotOnPublish bool
	Logger            *slog.Logger
}

// NewRosterService builds a roster service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewRosterService(deps RosterServiceDeps) *application.RosterService {
	store := deps.Store
	if store == nil {
		store = memory.Open(f.Clock.NowFunc())
	}
	logger := deps.Logger
	if logger == nil {
		logger = DiscardLogger()
	}
	return application.NewRosterService(application.RosterServiceDeps{
		Store:             store,
		Publisher:         deps.Publisher,
		Metrics:           deps.Metrics,
		Laws:              deps.Laws,
		IDGenerator:       f.IDGenerator.NextFunc(),
		Now:               f.Clock.NowFunc(),
		Logger:            logger,
		SnapshotOnPublish: deps.SnapshotOnPublish,
	})
}

// NewSQLiteRosterService builds a roster service on a migrated temporary
// SQLite store.
func (f *ServiceFactory) NewSQLiteRosterService(tb testing.TB, deps RosterServiceDeps) *application.RosterService {
	tb.Helper()
	deps.Store = NewSQLiteHarness(tb, f.Clock).Store
	return f.NewRosterService(deps)
}
