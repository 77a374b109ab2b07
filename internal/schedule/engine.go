package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshharrison/siteplan/internal/cpm"
	"github.com/joshharrison/siteplan/internal/forecast"
	"github.com/joshharrison/siteplan/internal/logger"
	"github.com/joshharrison/siteplan/internal/metrics"
	"github.com/joshharrison/siteplan/internal/model"
)

// Result is one scheduling run as seen by the CLI and HTTP layers.
type Result struct {
	RunID    string
	Schedule *model.ProjectSchedule
	Progress forecast.ProgressSummary
	Waves    []cpm.Wave
}

// Engine runs Compute with logging and metrics. It holds no per-run state
// and is safe for concurrent use.
type Engine struct {
	log     logger.Logger
	metrics *metrics.Recorder
}

// NewEngine creates an Engine. A nil logger discards output; a nil recorder
// records nothing.
func NewEngine(log logger.Logger, rec *metrics.Recorder) *Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{log: log, metrics: rec}
}

// Run computes a schedule and tags it with a fresh run id.
func (e *Engine) Run(tasks []model.Task, progress []model.ProgressRecord, projectStart time.Time) (*Result, error) {
	runID := uuid.NewString()
	began := time.Now()

	e.log.Debugw("scheduling run started", map[string]any{
		"run_id":        runID,
		"tasks":         len(tasks),
		"records":       len(progress),
		"project_start": model.FormatDate(projectStart),
	})

	r, err := compute(tasks, progress, projectStart)
	elapsed := time.Since(began)
	if err != nil {
		e.metrics.ObserveFailure(elapsed)
		e.log.Errorf("run %s failed: %v", runID, err)
		return nil, err
	}

	if n := len(r.progress.Unmatched); n > 0 {
		e.log.Warnf("run %s: %d progress task ids match no task: %s", runID, n, strings.Join(r.progress.Unmatched, ", "))
	}
	if r.progress.Clamped > 0 {
		e.log.Warnf("run %s: clamped %d progress values to [0,100]", runID, r.progress.Clamped)
	}

	e.metrics.ObserveRun(elapsed, len(r.schedule.Tasks), len(r.schedule.CriticalPath))
	e.log.Infof("run %s: %d tasks, %d critical, forecast finish %s (%s)",
		runID, len(r.schedule.Tasks), len(r.schedule.CriticalPath),
		model.FormatDate(r.schedule.ForecastFinish()), elapsed.Truncate(time.Microsecond))

	return &Result{
		RunID:    runID,
		Schedule: r.schedule,
		Progress: r.progress,
		Waves:    r.waves,
	}, nil
}
