// Package schedule assembles the baseline and progress-adjusted forecast
// passes into one ProjectSchedule.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joshharrison/siteplan/internal/cpm"
	"github.com/joshharrison/siteplan/internal/forecast"
	"github.com/joshharrison/siteplan/internal/graph"
	"github.com/joshharrison/siteplan/internal/model"
)

// ErrForecastMismatch means a baseline task has no forecast counterpart.
var ErrForecastMismatch = errors.New("forecast result missing task")

// Compute produces a ProjectSchedule from tasks, progress records and a
// project start. Baseline dates come from the planned durations; forecast
// dates, float and the critical path come from a second pass over clones
// carrying remaining durations. Inputs are never mutated.
func Compute(tasks []model.Task, progress []model.ProgressRecord, projectStart time.Time) (*model.ProjectSchedule, error) {
	r, err := compute(tasks, progress, projectStart)
	if err != nil {
		return nil, err
	}
	return r.schedule, nil
}

type run struct {
	schedule *model.ProjectSchedule
	progress forecast.ProgressSummary
	waves    []cpm.Wave // forecast early-start groups
}

func compute(tasks []model.Task, progress []model.ProgressRecord, projectStart time.Time) (*run, error) {
	if len(tasks) == 0 {
		return nil, &graph.Error{Kind: graph.ErrInvalidTaskData, Msg: "no tasks"}
	}
	if projectStart.IsZero() {
		return nil, &graph.Error{Kind: graph.ErrInvalidTaskData, Msg: "project start is required"}
	}
	start := model.Date(projectStart)

	updated, summary := forecast.ApplyProgress(tasks, progress)
	clones := forecast.Clone(updated)

	// The passes read disjoint task sets and share nothing.
	var baseline, fc *cpm.PassResult
	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		baseline, err = cpm.RunPass(updated, start)
		if err != nil {
			return fmt.Errorf("baseline pass: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		fc, err = cpm.RunPass(clones, start)
		if err != nil {
			return fmt.Errorf("forecast pass: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sched, err := Assemble(updated, baseline, fc)
	if err != nil {
		return nil, err
	}
	return &run{schedule: sched, progress: summary, waves: fc.Waves}, nil
}

// Assemble merges the baseline and forecast pass results by task_id into
// fresh Task records in input order.
func Assemble(tasks []model.Task, baseline, fc *cpm.PassResult) (*model.ProjectSchedule, error) {
	sched := &model.ProjectSchedule{
		ProjectStart: baseline.ProjectStart,
		Tasks:        make([]model.Task, len(tasks)),
		CriticalPath: append([]string{}, fc.CriticalPath...),
	}
	for i, t := range tasks {
		b, ok := baseline.Tasks[t.TaskID]
		if !ok {
			return nil, fmt.Errorf("baseline result missing task %q", t.TaskID)
		}
		f, ok := fc.Tasks[t.TaskID]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrForecastMismatch, t.TaskID)
		}

		out := t.Input()
		out.EarlyStart = baseline.Date(b.ES)
		out.EarlyFinish = baseline.Date(b.EF)
		out.LateStart = baseline.Date(b.LS)
		out.LateFinish = baseline.Date(b.LF)
		out.ForecastStart = fc.Date(f.ES)
		out.ForecastFinish = fc.Date(f.EF)
		out.TotalFloatDays = f.Slack
		sched.Tasks[i] = out
	}
	return sched, nil
}
