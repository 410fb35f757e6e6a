// Package stats keeps live per-user counters: questions asked today,
// questions asked total, reports submitted and notes created. Counters are
// recomputed in full on every change notification; no deltas are applied, so
// overlapping refreshes are harmless (last write wins).
package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// refreshTimeout bounds the count queries run for one refresh.
const refreshTimeout = 10 * time.Second

// watchedTables are the collections whose changes invalidate the counters.
var watchedTables = []string{"message", "reported_question", "note"}

// Counters is one consistent snapshot of the four displayed values.
type Counters struct {
	QuestionsToday int
	QuestionsTotal int
	Reports        int
	Notes          int
}

// Source is the slice of the database client the aggregator queries.
type Source interface {
	CountUserMessages(ctx context.Context, userID string, since, until *time.Time) (int, error)
	CountReports(ctx context.Context, userID string) (int, error)
	CountNotes(ctx context.Context, userID string) (int, error)
}

// Subscription is a live change feed on one table.
type Subscription interface {
	Events() <-chan struct{}
	Close(ctx context.Context) error
}

// ChangeFeed starts table subscriptions.
type ChangeFeed interface {
	Watch(ctx context.Context, table string) (Subscription, error)
}

// Aggregator derives and caches the counters for one user.
type Aggregator struct {
	src    Source
	feed   ChangeFeed
	logger *slog.Logger
	userID string
	now    func() time.Time

	onUpdate func(Counters)

	mu       sync.Mutex
	counters Counters

	subs []Subscription
	wg   sync.WaitGroup
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithOnUpdate registers a callback invoked (on the refreshing goroutine)
// after every successful refresh.
func WithOnUpdate(fn func(Counters)) Option {
	return func(a *Aggregator) {
		a.onUpdate = fn
	}
}

// withClock overrides time.Now for tests.
func withClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates an aggregator. feed may be nil when live updates aren't wanted
// (one-shot CLI display).
func New(src Source, feed ChangeFeed, userID string, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		src:    src,
		feed:   feed,
		logger: logger,
		userID: userID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns the last successfully computed counters.
func (a *Aggregator) Snapshot() Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters
}

// todayBounds returns [start of local day, start of next day).
func (a *Aggregator) todayBounds() (time.Time, time.Time) {
	now := a.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}

// Refresh recomputes all four counters. Any query failure is logged and the
// previous snapshot is kept: stale-but-available beats blocking the display.
func (a *Aggregator) Refresh(ctx context.Context) error {
	since, until := a.todayBounds()

	today, err := a.src.CountUserMessages(ctx, a.userID, &since, &until)
	if err != nil {
		a.logger.Warn("stats refresh failed, keeping previous counters", "error", err)
		return err
	}
	total, err := a.src.CountUserMessages(ctx, a.userID, nil, nil)
	if err != nil {
		a.logger.Warn("stats refresh failed, keeping previous counters", "error", err)
		return err
	}
	reports, err := a.src.CountReports(ctx, a.userID)
	if err != nil {
		a.logger.Warn("stats refresh failed, keeping previous counters", "error", err)
		return err
	}
	notes, err := a.src.CountNotes(ctx, a.userID)
	if err != nil {
		a.logger.Warn("stats refresh failed, keeping previous counters", "error", err)
		return err
	}

	counters := Counters{
		QuestionsToday: today,
		QuestionsTotal: total,
		Reports:        reports,
		Notes:          notes,
	}

	a.mu.Lock()
	a.counters = counters
	a.mu.Unlock()

	if a.onUpdate != nil {
		a.onUpdate(counters)
	}
	return nil
}

// Subscribe starts live subscriptions on the watched tables and refreshes on
// every change tick. Call Close to tear the subscriptions down; leaking them
// accumulates duplicate refreshes.
func (a *Aggregator) Subscribe(ctx context.Context) error {
	if a.feed == nil {
		return nil
	}

	for _, table := range watchedTables {
		sub, err := a.feed.Watch(ctx, table)
		if err != nil {
			// Roll back the ones that did start.
			a.closeSubs(ctx)
			return err
		}
		a.subs = append(a.subs, sub)

		a.wg.Add(1)
		go func(sub Subscription) {
			defer a.wg.Done()
			for range sub.Events() {
				refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
				_ = a.Refresh(refreshCtx)
				cancel()
			}
		}(sub)
	}
	return nil
}

// Close kills all live subscriptions and waits for the refresh pumps.
func (a *Aggregator) Close(ctx context.Context) error {
	err := a.closeSubs(ctx)
	a.wg.Wait()
	return err
}

func (a *Aggregator) closeSubs(ctx context.Context) error {
	var firstErr error
	for _, sub := range a.subs {
		if err := sub.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.subs = nil
	return firstErr
}
