package countdown

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"untilbot/internal/channel"
	"untilbot/internal/forecast"
	"untilbot/internal/state"
)

const testChannelID int64 = -1001234567890

func fixedClock(t *testing.T, day string) func() time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatal(err)
	}
	return func() time.Time { return parsed }
}

func newTestJob(t *testing.T, today string, initial state.State) (*Job, *state.FileStore, *channel.Mock) {
	t.Helper()

	store := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"), slog.Default())
	if err := store.Save(initial); err != nil {
		t.Fatal(err)
	}

	mock := channel.NewMock()
	job := NewJob(Config{
		ChannelID:     testChannelID,
		Anchor:        "00:00",
		RetryInterval: time.Millisecond,
		Logger:        slog.Default(),
		Now:           fixedClock(t, today),
	}, store, mock, nil)

	return job, store, mock
}

func datePtr(t *testing.T, s string) *state.Date {
	t.Helper()
	d, err := state.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return &d
}

func TestJob_FirstTrigger(t *testing.T) {
	t.Parallel()

	// Target is today and no event was ever recorded: last event is set,
	// target cleared, no interval appended.
	job, store, mock := newTestJob(t, "2026-09-01", state.State{
		Intervals:  []int{},
		TargetDate: datePtr(t, "2026-09-01"),
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	s := store.Load()
	if len(s.Intervals) != 0 {
		t.Errorf("first event must not append an interval: %v", s.Intervals)
	}
	if s.TargetDate != nil {
		t.Error("target must be cleared on trigger")
	}
	if s.LastEventDate == nil || s.LastEventDate.String() != "2026-09-01" {
		t.Errorf("last event date not set: %v", s.LastEventDate)
	}

	sent := mock.Sent()
	if len(sent) != 1 || sent[0].Text != "0" || sent[0].ChatID != testChannelID {
		t.Errorf("unexpected posts: %+v", sent)
	}
}

func TestJob_TriggerRecordsInterval(t *testing.T) {
	t.Parallel()

	// Last event 15 days ago: the trigger appends a 15-day interval.
	job, store, _ := newTestJob(t, "2026-09-16", state.State{
		Intervals:     []int{10},
		LastEventDate: datePtr(t, "2026-09-01"),
		TargetDate:    datePtr(t, "2026-09-16"),
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	s := store.Load()
	if len(s.Intervals) != 2 || s.Intervals[1] != 15 {
		t.Errorf("interval not recorded: %v", s.Intervals)
	}
	if s.TargetDate != nil {
		t.Error("target must be cleared on trigger")
	}
	if s.LastEventDate.String() != "2026-09-16" {
		t.Errorf("last event not advanced: %v", s.LastEventDate)
	}
}

func TestJob_SameDayRepeatTriggerSkips(t *testing.T) {
	t.Parallel()

	// Two ticks on the same calendar day: the second must not append a
	// second interval or post again.
	job, store, mock := newTestJob(t, "2026-09-16", state.State{
		Intervals:     []int{},
		LastEventDate: datePtr(t, "2026-09-01"),
		TargetDate:    datePtr(t, "2026-09-16"),
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Re-arm the target as if the tick fired twice before midnight.
	err := store.Update(func(s *state.State) error {
		s.TargetDate = datePtr(t, "2026-09-16")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	s := store.Load()
	if len(s.Intervals) != 1 {
		t.Errorf("repeat tick double-counted: %v", s.Intervals)
	}
	if len(mock.Sent()) != 1 {
		t.Errorf("repeat tick posted again: %+v", mock.Sent())
	}
}

func TestJob_CountingPostsDaysLeft(t *testing.T) {
	t.Parallel()

	job, store, mock := newTestJob(t, "2026-09-01", state.State{
		Intervals:  []int{},
		TargetDate: datePtr(t, "2026-09-11"),
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 || sent[0].Text != "10" {
		t.Errorf("unexpected posts: %+v", sent)
	}

	s := store.Load()
	if s.TargetDate == nil {
		t.Error("counting tick must not clear the target")
	}
}

func TestJob_CountingClampsAtZero(t *testing.T) {
	t.Parallel()

	// A missed trigger leaves the target in the past; the countdown is
	// clamped rather than going negative.
	job, _, mock := newTestJob(t, "2026-09-20", state.State{
		Intervals:  []int{},
		TargetDate: datePtr(t, "2026-09-11"),
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 || sent[0].Text != "0" {
		t.Errorf("unexpected posts: %+v", sent)
	}
}

func TestJob_IdlePostsForecast(t *testing.T) {
	t.Parallel()

	job, _, mock := newTestJob(t, "2026-09-01", state.State{
		Intervals: []int{10, 20, 30},
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	res, _ := forecast.Compute([]int{10, 20, 30})
	sent := mock.Sent()
	if len(sent) != 1 || sent[0].Text != res.Summary() {
		t.Errorf("unexpected posts: %+v", sent)
	}
}

func TestJob_IdleNoHistoryPostsNoData(t *testing.T) {
	t.Parallel()

	job, _, mock := newTestJob(t, "2026-09-01", state.State{Intervals: []int{}})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 || sent[0].Text != forecast.NoDataMessage {
		t.Errorf("unexpected posts: %+v", sent)
	}
}

func TestJob_DeliveryFailureDoesNotFailTheTick(t *testing.T) {
	t.Parallel()

	job, store, mock := newTestJob(t, "2026-09-16", state.State{
		Intervals:     []int{},
		LastEventDate: datePtr(t, "2026-09-01"),
		TargetDate:    datePtr(t, "2026-09-16"),
	})
	mock.Fail(errors.New("telegram down"))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("delivery failure must not fail the tick: %v", err)
	}

	// The event is still recorded even though the post never went out.
	s := store.Load()
	if len(s.Intervals) != 1 || s.Intervals[0] != 15 {
		t.Errorf("event not recorded despite delivery failure: %v", s.Intervals)
	}
}

// flakyStore fails Update a fixed number of times before delegating.
type flakyStore struct {
	inner    state.Store
	failures int
	calls    int
}

func (f *flakyStore) Load() state.State        { return f.inner.Load() }
func (f *flakyStore) Save(s state.State) error { return f.inner.Save(s) }

func (f *flakyStore) Update(fn func(*state.State) error) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("disk hiccup")
	}
	return f.inner.Update(fn)
}

func TestJob_RetriesUnexpectedFailure(t *testing.T) {
	t.Parallel()

	inner := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"), slog.Default())
	if err := inner.Save(state.State{Intervals: []int{5}}); err != nil {
		t.Fatal(err)
	}
	flaky := &flakyStore{inner: inner, failures: 2}

	mock := channel.NewMock()
	job := NewJob(Config{
		ChannelID:     testChannelID,
		RetryInterval: time.Millisecond,
		MaxRetries:    3,
		Logger:        slog.Default(),
		Now:           fixedClock(t, "2026-09-01"),
	}, flaky, mock, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run should recover from transient failures: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", flaky.calls)
	}
	if len(mock.Sent()) != 1 {
		t.Errorf("post not sent after recovery: %+v", mock.Sent())
	}
}

func TestJob_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	inner := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"), slog.Default())
	flaky := &flakyStore{inner: inner, failures: 100}

	job := NewJob(Config{
		ChannelID:     testChannelID,
		RetryInterval: time.Millisecond,
		MaxRetries:    2,
		Logger:        slog.Default(),
		Now:           fixedClock(t, "2026-09-01"),
	}, flaky, channel.NewMock(), nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if flaky.calls != 3 { // initial attempt + 2 retries
		t.Errorf("expected 3 attempts, got %d", flaky.calls)
	}
}

func TestJob_ClearThenRetriggerUsesPostClearBaseline(t *testing.T) {
	t.Parallel()

	// Trigger, clear, set again, trigger. The second trigger must not
	// compute an interval back to the pre-clear marker.
	store := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"), slog.Default())
	if err := store.Save(state.State{
		Intervals:     []int{},
		LastEventDate: datePtr(t, "2026-01-01"),
		TargetDate:    datePtr(t, "2026-02-01"),
	}); err != nil {
		t.Fatal(err)
	}
	mock := channel.NewMock()

	runOn := func(day string) {
		t.Helper()
		job := NewJob(Config{
			ChannelID:     testChannelID,
			RetryInterval: time.Millisecond,
			Logger:        slog.Default(),
			Now:           fixedClock(t, day),
		}, store, mock, nil)
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("run on %s failed: %v", day, err)
		}
	}

	// Trigger: records a 31-day interval.
	runOn("2026-02-01")
	if s := store.Load(); len(s.Intervals) != 1 || s.Intervals[0] != 31 {
		t.Fatalf("first trigger wrong: %v", s.Intervals)
	}

	// Manual clear: the authoritative rule nulls last_event_date too.
	err := store.Update(func(s *state.State) error {
		s.TargetDate = nil
		s.LastEventDate = nil
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// New target, next trigger: this is a first event from the post-clear
	// baseline, so no interval may be appended.
	err = store.Update(func(s *state.State) error {
		s.TargetDate = datePtr(t, "2026-03-01")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	runOn("2026-03-01")

	s := store.Load()
	if len(s.Intervals) != 1 {
		t.Fatalf("post-clear trigger computed a spurious interval: %v", s.Intervals)
	}
	if s.LastEventDate.String() != "2026-03-01" {
		t.Errorf("baseline not advanced: %v", s.LastEventDate)
	}
}
