package model

import "time"

// Task is a schedulable unit of work in the WBS.
type Task struct {
	TaskID          string   `json:"task_id"`
	Name            string   `json:"name"`
	DurationDays    int      `json:"duration_days"`
	Dependencies    []string `json:"dependencies,omitempty"` // predecessors; must finish before this task starts
	Resource        string   `json:"resource,omitempty"`     // informational only
	PercentComplete float64  `json:"percent_complete"`

	// Populated by the engine, never by callers.
	EarlyStart     time.Time `json:"early_start"`
	EarlyFinish    time.Time `json:"early_finish"`
	LateStart      time.Time `json:"late_start"`
	LateFinish     time.Time `json:"late_finish"`
	TotalFloatDays int       `json:"total_float_days"`
	ForecastStart  time.Time `json:"forecast_start"`
	ForecastFinish time.Time `json:"forecast_finish"`
}

// IsCritical reports whether the task carries zero float.
func (t Task) IsCritical() bool {
	return t.TotalFloatDays == 0
}

// Input returns a copy of the task carrying only caller-supplied fields.
func (t Task) Input() Task {
	return Task{
		TaskID:          t.TaskID,
		Name:            t.Name,
		DurationDays:    t.DurationDays,
		Dependencies:    append([]string(nil), t.Dependencies...),
		Resource:        t.Resource,
		PercentComplete: t.PercentComplete,
	}
}

// ProgressRecord is one observation from a daily progress report (DPR).
type ProgressRecord struct {
	TaskID          string    `json:"task_id"`
	ObservationDate time.Time `json:"date"`
	PercentComplete float64   `json:"percent_complete"`
}

// ProjectSchedule is the assembled output of a scheduling run.
type ProjectSchedule struct {
	ProjectStart time.Time `json:"project_start"`
	Tasks        []Task    `json:"tasks"`
	// CriticalPath holds every zero-float task in topological order. With
	// parallel zero-float chains this is a set of tasks, not a single path.
	CriticalPath []string `json:"critical_path"`
}

// TaskByID indexes the schedule's tasks by id.
func (s *ProjectSchedule) TaskByID() map[string]*Task {
	out := make(map[string]*Task, len(s.Tasks))
	for i := range s.Tasks {
		out[s.Tasks[i].TaskID] = &s.Tasks[i]
	}
	return out
}

// ProjectFinish returns the latest baseline early finish.
func (s *ProjectSchedule) ProjectFinish() time.Time {
	return latest(s.Tasks, func(t Task) time.Time { return t.EarlyFinish })
}

// ForecastFinish returns the latest forecast finish.
func (s *ProjectSchedule) ForecastFinish() time.Time {
	return latest(s.Tasks, func(t Task) time.Time { return t.ForecastFinish })
}

func latest(tasks []Task, get func(Task) time.Time) time.Time {
	var out time.Time
	for _, t := range tasks {
		if d := get(t); d.After(out) {
			out = d
		}
	}
	return out
}
