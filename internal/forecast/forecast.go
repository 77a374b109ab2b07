// Package forecast turns reported progress into remaining durations for the
// second, progress-adjusted scheduling pass.
package forecast

import (
	"math"

	"github.com/joshharrison/siteplan/internal/model"
)

// ProgressSummary reports how progress records were applied.
type ProgressSummary struct {
	Applied   int      // tasks whose percent_complete came from a record
	Clamped   int      // governing records outside [0,100]
	Unmatched []string // record task_ids with no matching task, first-seen order
}

// Latest picks the governing record per task: the one with the latest
// observation date. Among records sharing that date the first one in input
// order wins.
func Latest(records []model.ProgressRecord) map[string]model.ProgressRecord {
	latest := make(map[string]model.ProgressRecord, len(records))
	for _, r := range records {
		prev, ok := latest[r.TaskID]
		if !ok || model.Date(r.ObservationDate).After(model.Date(prev.ObservationDate)) {
			latest[r.TaskID] = r
		}
	}
	return latest
}

// ApplyProgress returns copies of tasks with percent_complete taken from the
// governing progress record. Out-of-range percentages are clamped to [0,100]
// rather than rejected. The input slice is not modified.
func ApplyProgress(tasks []model.Task, records []model.ProgressRecord) ([]model.Task, ProgressSummary) {
	var summary ProgressSummary
	latest := Latest(records)

	known := make(map[string]bool, len(tasks))
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		known[t.TaskID] = true
		out[i] = t.Input()
		if r, ok := latest[t.TaskID]; ok {
			pct := Clamp(r.PercentComplete)
			if pct != r.PercentComplete {
				summary.Clamped++
			}
			out[i].PercentComplete = pct
			summary.Applied++
		} else {
			out[i].PercentComplete = Clamp(t.PercentComplete)
		}
	}

	seen := make(map[string]bool)
	for _, r := range records {
		if !known[r.TaskID] && !seen[r.TaskID] {
			seen[r.TaskID] = true
			summary.Unmatched = append(summary.Unmatched, r.TaskID)
		}
	}
	return out, summary
}

// Clamp bounds a percentage to [0,100]. NaN is treated as 0.
func Clamp(pct float64) float64 {
	switch {
	case math.IsNaN(pct), pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// RemainingDays estimates the days left on a task at the given progress.
// A partially complete task with positive duration always keeps at least one
// day of remaining work.
func RemainingDays(durationDays int, percentComplete float64) int {
	pct := Clamp(percentComplete)
	remaining := int(math.RoundToEven(float64(durationDays) * (1 - pct/100)))
	if remaining < 0 {
		remaining = 0
	}
	if durationDays > 0 && pct > 0 && pct < 100 && remaining == 0 {
		remaining = 1
	}
	return remaining
}

// Clone returns new task records whose duration is the remaining duration.
// Dependencies, resource and percent_complete are carried over; computed
// fields are left empty.
func Clone(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Input()
		out[i].DurationDays = RemainingDays(t.DurationDays, t.PercentComplete)
	}
	return out
}
