package cpm

import (
	"time"

	"github.com/joshharrison/siteplan/internal/model"
)

// PassResult holds the outcome of one forward/backward pass. Offsets are
// whole calendar days from ProjectStart.
type PassResult struct {
	ProjectStart  time.Time
	Tasks         map[string]*TaskSchedule
	CriticalPath  []string // zero-float task IDs in topological order
	TotalDuration int      // project finish offset
	Waves         []Wave   // tasks grouped by early start
	TopoOrder     []string
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string
	Duration   int
	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	Slack      int
	IsCritical bool
	Wave       int // which early-start group this belongs to
}

// Wave is a group of tasks sharing the same early start.
type Wave struct {
	Index      int
	Offset     int
	TaskIDs    []string
	IsCritical bool // true if wave contains critical path tasks
}

// ProjectFinish is ProjectStart plus the total duration.
func (r *PassResult) ProjectFinish() time.Time {
	return model.AddDays(r.ProjectStart, r.TotalDuration)
}

// Date converts a day offset into a calendar date.
func (r *PassResult) Date(offset int) time.Time {
	return model.AddDays(r.ProjectStart, offset)
}
