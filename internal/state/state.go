// Package state holds the bot's persisted document: the recorded interval
// history, the last event date, and the current countdown target. It is the
// single source of truth shared by the command handlers and the daily
// scheduler tick.
package state

import (
	"errors"
	"fmt"
)

// State is the persisted document. Intervals are days between consecutive
// recorded events in chronological order. LastEventDate and TargetDate are
// nil when unset.
//
// Invariant: a reached target is cleared in the same update that records
// the event — the file never holds a resolved target alongside a stale
// last-event marker.
type State struct {
	Intervals     []int `json:"intervals"`
	LastEventDate *Date `json:"last_event_date"`
	TargetDate    *Date `json:"target_date"`
}

// Default returns the zero-value document written on first run.
func Default() State {
	return State{Intervals: []int{}}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Intervals = make([]int, len(s.Intervals))
	copy(out.Intervals, s.Intervals)
	if s.LastEventDate != nil {
		d := *s.LastEventDate
		out.LastEventDate = &d
	}
	if s.TargetDate != nil {
		d := *s.TargetDate
		out.TargetDate = &d
	}
	return out
}

// Validate checks the structural validity of a document. Used both when
// loading the file and when accepting an overwrite from a command.
func Validate(s State) error {
	var errs []error
	if s.Intervals == nil {
		errs = append(errs, errors.New("state: intervals must be a list"))
	}
	for i, v := range s.Intervals {
		if v < 0 {
			errs = append(errs, fmt.Errorf("state: intervals[%d] is negative: %d", i, v))
		}
	}
	if s.LastEventDate != nil && s.LastEventDate.IsZero() {
		errs = append(errs, errors.New("state: last_event_date is set but empty"))
	}
	if s.TargetDate != nil && s.TargetDate.IsZero() {
		errs = append(errs, errors.New("state: target_date is set but empty"))
	}
	return errors.Join(errs...)
}
