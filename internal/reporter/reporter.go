// Package reporter turns an assembled schedule into rows, look-ahead
// windows, files and terminal output.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joshharrison/siteplan/internal/cpm"
	"github.com/joshharrison/siteplan/internal/model"
	"github.com/joshharrison/siteplan/internal/ui"
)

// Row is the flat, reportable view of one scheduled task.
type Row struct {
	TaskID          string
	Name            string
	Resource        string
	DurationDays    int
	PercentComplete float64
	EarlyStart      time.Time
	EarlyFinish     time.Time
	LateStart       time.Time
	LateFinish      time.Time
	TotalFloatDays  int
	ForecastStart   time.Time
	ForecastFinish  time.Time
	IsCritical      bool
}

// Start is the forecast start, falling back to the baseline early start.
func (r Row) Start() time.Time {
	if !r.ForecastStart.IsZero() {
		return r.ForecastStart
	}
	return r.EarlyStart
}

// Finish is the forecast finish, falling back to the baseline early finish.
func (r Row) Finish() time.Time {
	if !r.ForecastFinish.IsZero() {
		return r.ForecastFinish
	}
	return r.EarlyFinish
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TaskID          string  `json:"task_id"`
		Name            string  `json:"name"`
		Resource        string  `json:"resource"`
		DurationDays    int     `json:"duration_days"`
		PercentComplete float64 `json:"percent_complete"`
		EarlyStart      string  `json:"early_start"`
		EarlyFinish     string  `json:"early_finish"`
		LateStart       string  `json:"late_start"`
		LateFinish      string  `json:"late_finish"`
		TotalFloatDays  int     `json:"total_float_days"`
		ForecastStart   string  `json:"forecast_start"`
		ForecastFinish  string  `json:"forecast_finish"`
		IsCritical      bool    `json:"is_critical"`
	}{
		r.TaskID, r.Name, r.Resource, r.DurationDays, r.PercentComplete,
		model.FormatDate(r.EarlyStart), model.FormatDate(r.EarlyFinish),
		model.FormatDate(r.LateStart), model.FormatDate(r.LateFinish),
		r.TotalFloatDays,
		model.FormatDate(r.ForecastStart), model.FormatDate(r.ForecastFinish),
		r.IsCritical,
	})
}

// Rows flattens a schedule, ordered by start date then task id.
func Rows(sched *model.ProjectSchedule) []Row {
	rows := make([]Row, 0, len(sched.Tasks))
	for _, t := range sched.Tasks {
		rows = append(rows, Row{
			TaskID:          t.TaskID,
			Name:            t.Name,
			Resource:        t.Resource,
			DurationDays:    t.DurationDays,
			PercentComplete: math.Round(t.PercentComplete*100) / 100,
			EarlyStart:      t.EarlyStart,
			EarlyFinish:     t.EarlyFinish,
			LateStart:       t.LateStart,
			LateFinish:      t.LateFinish,
			TotalFloatDays:  t.TotalFloatDays,
			ForecastStart:   t.ForecastStart,
			ForecastFinish:  t.ForecastFinish,
			IsCritical:      t.IsCritical(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		si, sj := rows[i].Start(), rows[j].Start()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return rows[i].TaskID < rows[j].TaskID
	})
	return rows
}

// LookaheadRow is a task active inside a look-ahead window.
type LookaheadRow struct {
	TaskID          string
	Name            string
	Resource        string
	PercentComplete float64
	ForecastStart   time.Time
	ForecastFinish  time.Time
	IsCritical      bool
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (r LookaheadRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TaskID          string  `json:"task_id"`
		Name            string  `json:"name"`
		Resource        string  `json:"resource"`
		PercentComplete float64 `json:"percent_complete"`
		ForecastStart   string  `json:"forecast_start"`
		ForecastFinish  string  `json:"forecast_finish"`
		IsCritical      bool    `json:"is_critical"`
	}{
		r.TaskID, r.Name, r.Resource, r.PercentComplete,
		model.FormatDate(r.ForecastStart), model.FormatDate(r.ForecastFinish),
		r.IsCritical,
	})
}

// Lookahead selects the rows whose forecast window intersects
// [from, from+horizonDays). Results are ordered by start, critical first,
// then task id.
func Lookahead(rows []Row, from time.Time, horizonDays int) []LookaheadRow {
	from = model.Date(from)
	end := model.AddDays(from, horizonDays)

	var out []LookaheadRow
	for _, r := range rows {
		start, finish := r.Start(), r.Finish()
		if start.IsZero() || finish.IsZero() {
			continue
		}
		if !(start.Before(end) && !finish.Before(from)) {
			continue
		}
		out = append(out, LookaheadRow{
			TaskID:          r.TaskID,
			Name:            r.Name,
			Resource:        r.Resource,
			PercentComplete: r.PercentComplete,
			ForecastStart:   start,
			ForecastFinish:  finish,
			IsCritical:      r.IsCritical,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ForecastStart.Equal(b.ForecastStart) {
			return a.ForecastStart.Before(b.ForecastStart)
		}
		if a.IsCritical != b.IsCritical {
			return a.IsCritical
		}
		return a.TaskID < b.TaskID
	})
	return out
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{
	"task_id", "name", "resource", "duration_days", "percent_complete",
	"early_start", "early_finish", "late_start", "late_finish",
	"total_float_days", "forecast_start", "forecast_finish", "is_critical",
}

// WriteCSV writes rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.TaskID, r.Name, r.Resource,
			strconv.Itoa(r.DurationDays),
			strconv.FormatFloat(r.PercentComplete, 'f', -1, 64),
			model.FormatDate(r.EarlyStart), model.FormatDate(r.EarlyFinish),
			model.FormatDate(r.LateStart), model.FormatDate(r.LateFinish),
			strconv.Itoa(r.TotalFloatDays),
			model.FormatDate(r.ForecastStart), model.FormatDate(r.ForecastFinish),
			strconv.FormatBool(r.IsCritical),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.TaskID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// PrintTable writes a terminal table of the schedule grouped by wave. With no
// waves every task is printed in one group.
func PrintTable(w io.Writer, sched *model.ProjectSchedule, waves []cpm.Wave) {
	byID := sched.TaskByID()
	if len(waves) == 0 {
		ids := make([]string, 0, len(sched.Tasks))
		for _, r := range Rows(sched) {
			ids = append(ids, r.TaskID)
		}
		waves = []cpm.Wave{{TaskIDs: ids}}
	}

	fmt.Fprintf(w, "%s %s, forecast finish %s\n\n",
		ui.Bold("Schedule"),
		fmt.Sprintf("%d tasks from %s", len(sched.Tasks), model.FormatDate(sched.ProjectStart)),
		ui.BoldCyan(model.FormatDate(sched.ForecastFinish())))

	for _, wave := range waves {
		start := model.AddDays(sched.ProjectStart, wave.Offset)
		fmt.Fprintf(w, "  🌊 %s %d  %s  (%d tasks)\n",
			ui.BoldWhite("WAVE"), wave.Index+1, ui.Dim(model.FormatDate(start)), len(wave.TaskIDs))
		for _, id := range wave.TaskIDs {
			if t, ok := byID[id]; ok {
				printTask(w, t)
			}
		}
		fmt.Fprintln(w)
	}
}

func printTask(w io.Writer, t *model.Task) {
	name := t.Name
	if len(name) > 32 {
		name = name[:29] + "..."
	}
	fmt.Fprintf(w, "    %s %-8s %-32s %s  %s → %s  float %s %s  %s\n",
		ui.ProgressIcon(t.PercentComplete),
		ui.BoldMagenta(t.TaskID),
		name,
		ui.Dim(fmt.Sprintf("%5.1f%%", t.PercentComplete)),
		model.FormatDate(t.ForecastStart),
		model.FormatDate(t.ForecastFinish),
		ui.Float(t.TotalFloatDays),
		ui.CriticalMark(t.IsCritical()),
		ui.Resource(t.Resource))
}

// Summary returns the critical path and the planned and forecast finish
// dates.
func Summary(sched *model.ProjectSchedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project start:   %s\n", model.FormatDate(sched.ProjectStart))
	fmt.Fprintf(&b, "Planned finish:  %s\n", model.FormatDate(sched.ProjectFinish()))
	fmt.Fprintf(&b, "Forecast finish: %s\n", ui.Bold(model.FormatDate(sched.ForecastFinish())))
	if len(sched.CriticalPath) > 0 {
		fmt.Fprintf(&b, "Critical:        %s\n", ui.BoldYellow("⚡ "+strings.Join(sched.CriticalPath, " → ")))
	} else {
		fmt.Fprintf(&b, "Critical:        %s\n", ui.Dim("none"))
	}
	return b.String()
}
