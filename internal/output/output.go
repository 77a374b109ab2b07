// Package output writes the report bundle of a scheduling run to a
// directory and records it in a manifest.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joshharrison/siteplan/internal/logger"
	"github.com/joshharrison/siteplan/internal/model"
	"github.com/joshharrison/siteplan/internal/reporter"
	"github.com/joshharrison/siteplan/internal/schedule"
)

// Bundle file names.
const (
	ScheduleJSON = "schedule.json"
	ScheduleCSV  = "schedule.csv"
	GanttHTML    = "gantt.html"
	ManifestFile = "manifest.json"
)

// LookaheadFile names the look-ahead report for a horizon.
func LookaheadFile(days int) string {
	return fmt.Sprintf("lookahead_%dd.json", days)
}

// Manifest describes one written bundle.
type Manifest struct {
	RunID          string    `json:"run_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	ProjectStart   string    `json:"project_start"`
	ForecastFinish string    `json:"forecast_finish"`
	CriticalPath   []string  `json:"critical_path"`
	LookaheadFrom  string    `json:"lookahead_from"`
	Files          []string  `json:"files"`
}

// Writer writes bundles into Dir.
type Writer struct {
	Dir string
	log logger.Logger
	now func() time.Time
}

// NewWriter creates a Writer for dir. A nil logger discards output.
func NewWriter(dir string, log logger.Logger) *Writer {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Writer{Dir: dir, log: log, now: time.Now}
}

// WriteBundle writes the schedule, one look-ahead per horizon starting at
// today, the Gantt chart and the manifest. Existing files are overwritten.
func (w *Writer) WriteBundle(res *schedule.Result, horizons []int, today time.Time) (*Manifest, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	sched := res.Schedule
	rows := reporter.Rows(sched)
	today = model.Date(today)

	m := &Manifest{
		RunID:          res.RunID,
		GeneratedAt:    w.now().UTC(),
		ProjectStart:   model.FormatDate(sched.ProjectStart),
		ForecastFinish: model.FormatDate(sched.ForecastFinish()),
		CriticalPath:   sched.CriticalPath,
		LookaheadFrom:  model.FormatDate(today),
	}

	if err := w.writeJSON(m, ScheduleJSON, rows); err != nil {
		return nil, err
	}
	if err := w.writeFile(m, ScheduleCSV, func(f *os.File) error {
		return reporter.WriteCSV(f, rows)
	}); err != nil {
		return nil, err
	}

	hs := append([]int(nil), horizons...)
	sort.Ints(hs)
	for _, h := range hs {
		la := reporter.Lookahead(rows, today, h)
		if la == nil {
			la = []reporter.LookaheadRow{}
		}
		if err := w.writeJSON(m, LookaheadFile(h), la); err != nil {
			return nil, err
		}
	}

	html, err := reporter.GanttHTML(rows, "")
	if err != nil {
		return nil, err
	}
	if err := w.writeFile(m, GanttHTML, func(f *os.File) error {
		_, err := f.WriteString(html)
		return err
	}); err != nil {
		return nil, err
	}

	if err := w.Save(m); err != nil {
		return nil, err
	}
	w.log.Infof("wrote %d files to %s", len(m.Files)+1, w.Dir)
	return m, nil
}

// Save persists the manifest.
func (w *Writer) Save(m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(w.Dir, ManifestFile), data, 0644)
}

// LoadManifest reads the manifest of a previously written bundle.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Exists reports whether dir holds a bundle manifest.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestFile))
	return err == nil
}

func (w *Writer) writeJSON(m *Manifest, name string, v any) error {
	return w.writeFile(m, name, func(f *os.File) error {
		return reporter.WriteJSON(f, v)
	})
}

func (w *Writer) writeFile(m *Manifest, name string, fill func(*os.File) error) error {
	path := filepath.Join(w.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	w.log.Debugf("wrote %s", path)
	m.Files = append(m.Files, name)
	return nil
}
