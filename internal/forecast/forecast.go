// Package forecast estimates the timing of the next event from the recorded
// history of intervals between past events, modelled as a Poisson process.
package forecast

import (
	"fmt"
	"math"
)

// NoDataMessage is posted when no intervals have been recorded yet. The ∞
// mirrors what the bot posts when nothing can be said about the future.
const NoDataMessage = "∞ — no event history yet, nothing to forecast."

// Horizons are the day horizons the forecast is evaluated at.
var Horizons = [4]int{1, 7, 30, 365}

// Result is the forecast derived from the interval history. Probabilities
// are percentages. It is recomputed on every invocation and never persisted.
type Result struct {
	ExpectedDays int
	ProbTomorrow float64
	ProbWeek     float64
	ProbMonth    float64
	ProbYear     float64
}

// Compute derives a Result from the interval history. The second return
// value is false when the history is empty, in which case the caller should
// emit NoDataMessage instead of a numeric summary.
//
// With mean interval μ the event rate is λ = 1/μ and the probability of at
// least one event within d days is 1 - e^(-λd). A zero mean (only reachable
// via zero-length intervals) degenerates to λ = 0 and all probabilities 0.
func Compute(intervals []int) (Result, bool) {
	if len(intervals) == 0 {
		return Result{}, false
	}

	sum := 0
	for _, v := range intervals {
		sum += v
	}
	mean := float64(sum) / float64(len(intervals))

	var lambda float64
	if mean > 0 {
		lambda = 1 / mean
	}

	probs := [4]float64{}
	for i, d := range Horizons {
		probs[i] = (1 - math.Exp(-lambda*float64(d))) * 100
	}

	return Result{
		ExpectedDays: int(math.Floor(mean)),
		ProbTomorrow: probs[0],
		ProbWeek:     probs[1],
		ProbMonth:    probs[2],
		ProbYear:     probs[3],
	}, true
}

// Summary formats the forecast as the daily channel post.
func (r Result) Summary() string {
	return fmt.Sprintf(
		"Next event expected in %d days. Chance of it happening: %.2f%% within a day, %.2f%% within a week, %.2f%% within a month, %.2f%% within a year.",
		r.ExpectedDays, r.ProbTomorrow, r.ProbWeek, r.ProbMonth, r.ProbYear,
	)
}
