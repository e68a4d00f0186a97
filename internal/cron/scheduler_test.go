package cron

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.UTC, slog.Default())

	if err := s.RegisterJob(&simpleJob{name: "daily", schedule: "0 0 * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&simpleJob{name: "daily", schedule: "0 0 * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.UTC, slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "bad", schedule: "invalid"})

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.UTC, slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "0 0 * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilDefaults(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil) // should not panic
	if err := s.RegisterJob(&simpleJob{name: "noop", schedule: "0 0 * * *"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_ = s.Stop(context.Background())
}

func TestAnchorSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		anchor  string
		want    string
		wantErr bool
	}{
		{anchor: "00:00", want: "0 0 * * *"},
		{anchor: "08:30", want: "30 8 * * *"},
		{anchor: "23:59", want: "59 23 * * *"},
		{anchor: "24:00", wantErr: true},
		{anchor: "12:60", wantErr: true},
		{anchor: "noon", wantErr: true},
		{anchor: "", wantErr: true},
		{anchor: "-1:00", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.anchor, func(t *testing.T) {
			t.Parallel()
			got, err := AnchorSpec(tt.anchor)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("AnchorSpec(%q) should fail", tt.anchor)
				}
				return
			}
			if err != nil {
				t.Fatalf("AnchorSpec(%q) failed: %v", tt.anchor, err)
			}
			if got != tt.want {
				t.Errorf("AnchorSpec(%q) = %q, want %q", tt.anchor, got, tt.want)
			}
		})
	}
}
