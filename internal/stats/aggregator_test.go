package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu sync.Mutex

	today   int
	total   int
	reports int
	notes   int
	err     error

	lastSince *time.Time
	lastUntil *time.Time
	calls     int
}

func (s *fakeSource) CountUserMessages(ctx context.Context, userID string, since, until *time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	if since != nil || until != nil {
		s.lastSince = since
		s.lastUntil = until
		return s.today, nil
	}
	return s.total, nil
}

func (s *fakeSource) CountReports(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.reports, nil
}

func (s *fakeSource) CountNotes(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.notes, nil
}

func (s *fakeSource) set(today, total, reports, notes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.today, s.total, s.reports, s.notes = today, total, reports, notes
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type fakeSub struct {
	events chan struct{}
	closed bool
}

func (s *fakeSub) Events() <-chan struct{} { return s.events }

func (s *fakeSub) Close(ctx context.Context) error {
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

type fakeFeed struct {
	mu      sync.Mutex
	subs    map[string]*fakeSub
	failOn  string
	watched []string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[string]*fakeSub)}
}

func (f *fakeFeed) Watch(ctx context.Context, table string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if table == f.failOn {
		return nil, errors.New("live query refused")
	}
	sub := &fakeSub{events: make(chan struct{}, 8)}
	f.subs[table] = sub
	f.watched = append(f.watched, table)
	return sub, nil
}

func TestRefreshComputesAllCounters(t *testing.T) {
	src := &fakeSource{}
	src.set(3, 12, 2, 5)
	agg := New(src, nil, "student-1", nil)

	require.NoError(t, agg.Refresh(context.Background()))

	assert.Equal(t, Counters{
		QuestionsToday: 3,
		QuestionsTotal: 12,
		Reports:        2,
		Notes:          5,
	}, agg.Snapshot())
}

func TestRefreshUsesLocalDayBounds(t *testing.T) {
	src := &fakeSource{}
	fixed := time.Date(2026, time.March, 14, 15, 9, 26, 0, time.Local)
	agg := New(src, nil, "student-1", nil, withClock(func() time.Time { return fixed }))

	require.NoError(t, agg.Refresh(context.Background()))

	require.NotNil(t, src.lastSince)
	require.NotNil(t, src.lastUntil)
	assert.Equal(t, time.Date(2026, time.March, 14, 0, 0, 0, 0, time.Local), *src.lastSince)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.Local), *src.lastUntil)
}

func TestRefreshIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	src.set(3, 12, 2, 5)
	agg := New(src, nil, "student-1", nil)

	require.NoError(t, agg.Refresh(context.Background()))
	first := agg.Snapshot()
	require.NoError(t, agg.Refresh(context.Background()))

	// Recount, not delta application: repeating a refresh never drifts.
	assert.Equal(t, first, agg.Snapshot())
}

func TestRefreshFailureKeepsPreviousCounters(t *testing.T) {
	src := &fakeSource{}
	src.set(3, 12, 2, 5)
	agg := New(src, nil, "student-1", nil)

	require.NoError(t, agg.Refresh(context.Background()))
	src.fail(errors.New("db down"))

	err := agg.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Counters{QuestionsToday: 3, QuestionsTotal: 12, Reports: 2, Notes: 5}, agg.Snapshot())
}

func TestOnUpdateFiresOnSuccessOnly(t *testing.T) {
	src := &fakeSource{}
	src.set(1, 1, 0, 0)

	var got []Counters
	agg := New(src, nil, "student-1", nil, WithOnUpdate(func(c Counters) {
		got = append(got, c)
	}))

	require.NoError(t, agg.Refresh(context.Background()))
	src.fail(errors.New("db down"))
	_ = agg.Refresh(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, Counters{QuestionsToday: 1, QuestionsTotal: 1}, got[0])
}

func TestSubscribeRefreshesOnChangeTicks(t *testing.T) {
	src := &fakeSource{}
	src.set(1, 1, 0, 0)
	feed := newFakeFeed()

	updates := make(chan Counters, 8)
	agg := New(src, feed, "student-1", nil, WithOnUpdate(func(c Counters) {
		updates <- c
	}))

	require.NoError(t, agg.Subscribe(context.Background()))
	assert.ElementsMatch(t, []string{"message", "reported_question", "note"}, feed.watched)

	src.set(2, 2, 0, 0)
	feed.subs["message"].events <- struct{}{}

	select {
	case c := <-updates:
		assert.Equal(t, Counters{QuestionsToday: 2, QuestionsTotal: 2}, c)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after change tick")
	}

	require.NoError(t, agg.Close(context.Background()))
	for table, sub := range feed.subs {
		assert.True(t, sub.closed, "subscription for %s should be closed", table)
	}
}

func TestSubscribeRollsBackOnPartialFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.failOn = "note"
	agg := New(&fakeSource{}, feed, "student-1", nil)

	err := agg.Subscribe(context.Background())
	require.Error(t, err)

	for table, sub := range feed.subs {
		assert.True(t, sub.closed, "subscription for %s should be rolled back", table)
	}
	require.NoError(t, agg.Close(context.Background()))
}

func TestSubscribeWithoutFeedIsNoop(t *testing.T) {
	agg := New(&fakeSource{}, nil, "student-1", nil)
	require.NoError(t, agg.Subscribe(context.Background()))
	require.NoError(t, agg.Close(context.Background()))
}
