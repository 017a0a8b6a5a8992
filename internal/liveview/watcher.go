// Package liveview keeps a local view of one roster week current while an
// editor holds unsaved stage edits.
package liveview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/notify"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/stage"
)

// Triggers recorded for refreshes.
const (
	TriggerPoll   = "poll"
	TriggerPush   = "push"
	TriggerManual = "manual"
)

// DefaultPollInterval is used when Options.PollInterval is not positive.
const DefaultPollInterval = 30 * time.Second

// Loader reads both documents of a week. *application.RosterService
// satisfies it.
type Loader interface {
	Get(ctx context.Context, key persistence.Key) (application.WeekDocs, error)
}

// View is a consistent copy of the watcher state.
type View struct {
	Live  *persistence.Document
	Stage *persistence.Document
	// Dirty is set while the stage holds local edits not yet saved.
	Dirty bool
	// Behind is set when live was published after the stage was branched.
	Behind bool
}

// Options configures a Watcher.
type Options struct {
	PollInterval time.Duration
	// Events delivers push notifications; nil disables push refreshes.
	Events <-chan notify.Event
	// OnChange is called after a refresh changed the view.
	OnChange func(View)
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Watcher refreshes live state periodically and on push events. A refresh
// replaces the local stage only while it is clean; dirty edits are never
// overwritten.
type Watcher struct {
	loader   Loader
	key      persistence.Key
	interval time.Duration
	events   <-chan notify.Event
	onChange func(View)
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	live  *persistence.Document
	stage *persistence.Document
	dirty bool
}

// NewWatcher builds a watcher for key. Call Refresh or Run to load state.
func NewWatcher(loader Loader, key persistence.Key, opts Options) *Watcher {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		loader:   loader,
		key:      key,
		interval: interval,
		events:   opts.Events,
		onChange: opts.OnChange,
		logger:   logger.With("component", "liveview", "week", key.String()),
		metrics:  opts.Metrics,
	}
}

// Run refreshes once, then on every tick and on every push event for the
// watched week, until ctx ends. Refresh failures are logged and retried on the
// next trigger.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Refresh(ctx, TriggerManual); err != nil {
		w.logger.WarnContext(ctx, "initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	events := w.events
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Refresh(ctx, TriggerPoll); err != nil {
				w.logger.WarnContext(ctx, "poll refresh failed", "error", err)
			}
		case ev, ok := <-events:
			if !ok {
				// Push channel gone; polling continues.
				events = nil
				continue
			}
			if ev.Key() != w.key || !w.newerThanLive(ev.UpdatedAt) {
				continue
			}
			if err := w.Refresh(ctx, TriggerPush); err != nil {
				w.logger.WarnContext(ctx, "push refresh failed", "error", err)
			}
		}
	}
}

func (w *Watcher) newerThanLive(token string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.live == nil || w.live.UpdatedAt != token
}

// Refresh reloads the week now.
func (w *Watcher) Refresh(ctx context.Context, trigger string) error {
	docs, err := w.loader.Get(ctx, w.key)
	w.metrics.ObserveLiveRefresh(trigger, err)
	if err != nil {
		return err
	}

	w.mu.Lock()
	changed := token(w.live) != token(docs.Live)
	w.live = docs.Live
	if !w.dirty && token(w.stage) != token(docs.Stage) {
		w.stage = docs.Stage
		changed = true
	}
	view := w.viewLocked()
	w.mu.Unlock()

	if changed {
		w.logger.DebugContext(ctx, "view refreshed", "trigger", trigger, "live_updated_at", token(view.Live), "dirty", view.Dirty)
		if w.onChange != nil {
			w.onChange(view)
		}
	}
	return nil
}

func token(doc *persistence.Document) string {
	if doc == nil {
		return ""
	}
	return doc.UpdatedAt
}

// View returns copies of the current documents.
func (w *Watcher) View() View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.viewLocked()
}

func (w *Watcher) viewLocked() View {
	view := View{Dirty: w.dirty}
	if w.live != nil {
		live := w.live.Clone()
		view.Live = &live
	}
	if w.stage != nil {
		st := w.stage.Clone()
		view.Stage = &st
		view.Behind = stage.IsBehind(st, view.Live)
	}
	return view
}

// Edit applies fn to the local stage and marks it dirty. A week without a
// stage starts from a branch of live, or from an empty week.
func (w *Watcher) Edit(fn func(doc *persistence.Document)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var draft persistence.Document
	switch {
	case w.stage != nil:
		draft = w.stage.Clone()
	case w.live != nil:
		draft = stage.CloneFromLive(*w.live)
	default:
		draft = stage.Empty(w.key)
	}
	fn(&draft)
	w.stage = &draft
	w.dirty = true
}

// MarkSaved records that doc, as returned by the store, now backs the local
// stage.
func (w *Watcher) MarkSaved(doc persistence.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	saved := doc.Clone()
	w.stage = &saved
	w.dirty = false
}

// Discard drops local edits; the next refresh reloads the stored stage.
func (w *Watcher) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = false
	w.stage = nil
}
