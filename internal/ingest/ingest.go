// Package ingest reads WBS task lists and daily progress reports (DPR) from
// CSV, Excel, JSON and YAML files into engine records.
package ingest

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joshharrison/siteplan/internal/model"
)

// Required columns per input kind.
var (
	WBSColumns = []string{"task_id", "name", "duration_days"}
	DPRColumns = []string{"date", "task_id", "percent_complete"}
)

// excelEpoch is day zero for spreadsheet serial dates.
var excelEpoch = model.NewDate(1899, time.December, 30)

// ReadWBS reads a task list from path; the format follows the extension.
func ReadWBS(path string) ([]model.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	tasks, err := ReadWBSFrom(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", filepath.Base(path), err)
	}
	return tasks, nil
}

// ReadWBSFrom reads a task list in the format named by ext.
func ReadWBSFrom(r io.Reader, ext string) ([]model.Task, error) {
	t, err := readTable(r, ext)
	if err != nil {
		return nil, err
	}
	if err := t.require(WBSColumns...); err != nil {
		return nil, fmt.Errorf("wbs: %w", err)
	}

	tasks := make([]model.Task, 0, len(t.rows))
	for i, row := range t.rows {
		duration, err := parseDuration(row["duration_days"])
		if err != nil {
			return nil, fmt.Errorf("row %d: duration_days %q: %w", i+1, row["duration_days"], err)
		}
		// Unreadable WBS progress is treated as not started.
		pct, err := strconv.ParseFloat(row["percent_complete"], 64)
		if err != nil {
			pct = 0
		}
		tasks = append(tasks, model.Task{
			TaskID:          row["task_id"],
			Name:            row["name"],
			DurationDays:    duration,
			Dependencies:    ParseDependencies(row["dependencies"]),
			Resource:        row["resource"],
			PercentComplete: pct,
		})
	}
	return tasks, nil
}

// ReadDPR reads progress records from path; the format follows the extension.
func ReadDPR(path string) ([]model.ProgressRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	records, err := ReadDPRFrom(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ReadDPRFrom reads progress records in the format named by ext.
func ReadDPRFrom(r io.Reader, ext string) ([]model.ProgressRecord, error) {
	t, err := readTable(r, ext)
	if err != nil {
		return nil, err
	}
	if err := t.require(DPRColumns...); err != nil {
		return nil, fmt.Errorf("dpr: %w", err)
	}

	records := make([]model.ProgressRecord, 0, len(t.rows))
	for i, row := range t.rows {
		date, err := ParseDate(row["date"])
		if err != nil {
			return nil, fmt.Errorf("row %d: date %q: %w", i+1, row["date"], err)
		}
		pct, err := strconv.ParseFloat(row["percent_complete"], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: percent_complete %q: %w", i+1, row["percent_complete"], err)
		}
		records = append(records, model.ProgressRecord{
			TaskID:          row["task_id"],
			ObservationDate: date,
			PercentComplete: pct,
		})
	}
	return records, nil
}

// ParseDependencies splits a dependency cell on commas or semicolons and
// drops empty entries.
func ParseDependencies(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	var deps []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			deps = append(deps, f)
		}
	}
	return deps
}

// ParseDate accepts an ISO date, an ISO date-time, or a spreadsheet serial
// day number.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{model.DateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Date(t), nil
		}
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported date value")
	}
	return model.AddDays(excelEpoch, int(serial)), nil
}

func parseDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return int(f), nil
}

// DefaultProjectStart is the earliest observation date, or today when there
// are no records.
func DefaultProjectStart(records []model.ProgressRecord, today time.Time) time.Time {
	if len(records) == 0 {
		return model.Date(today)
	}
	start := model.Date(records[0].ObservationDate)
	for _, r := range records[1:] {
		if d := model.Date(r.ObservationDate); d.Before(start) {
			start = d
		}
	}
	return start
}
