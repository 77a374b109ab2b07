package reporter

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/joshharrison/siteplan/internal/model"
)

// Bar colors.
const (
	CriticalColor = "#d62728"
	NormalColor   = "#1f77b4"
)

// DefaultGanttTitle is used when GanttHTML gets an empty title.
const DefaultGanttTitle = "Updated Schedule Gantt"

type ganttBar struct {
	Label  string
	Hover  string
	Color  string
	Left   float64 // percent of the chart width
	Width  float64
	Start  string
	Finish string
}

type ganttPage struct {
	Title  string
	From   string
	To     string
	Days   int
	Bars   []ganttBar
	Height int
}

var ganttTmpl = template.Must(template.New("gantt").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #222; }
h1 { font-size: 20px; }
.axis { display: flex; justify-content: space-between; font-size: 12px; color: #666; margin-left: 220px; }
.row { display: flex; align-items: center; height: 24px; }
.label { width: 220px; font-size: 13px; overflow: hidden; white-space: nowrap; text-overflow: ellipsis; }
.track { position: relative; flex: 1; height: 18px; background: #f4f4f4; }
.bar { position: absolute; top: 0; height: 18px; border-radius: 2px; min-width: 2px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="axis"><span>{{.From}}</span><span>{{.Days}} days</span><span>{{.To}}</span></div>
<div class="chart" style="min-height: {{.Height}}px">
{{- range .Bars}}
<div class="row">
  <div class="label" title="{{.Label}}">{{.Label}}</div>
  <div class="track"><div class="bar" title="{{.Hover}}" data-start="{{.Start}}" data-finish="{{.Finish}}" style="left: {{printf "%.2f" .Left}}%; width: {{printf "%.2f" .Width}}%; background: {{.Color}}"></div></div>
</div>
{{- end}}
</div>
</body>
</html>
`))

// GanttHTML renders rows as a standalone HTML Gantt chart. Bars span the
// forecast window, falling back to baseline dates, and are red for critical
// tasks.
func GanttHTML(rows []Row, title string) (string, error) {
	if title == "" {
		title = DefaultGanttTitle
	}

	var lo, hi time.Time
	for _, r := range rows {
		s, f := r.Start(), r.Finish()
		if s.IsZero() || f.IsZero() {
			continue
		}
		if lo.IsZero() || s.Before(lo) {
			lo = s
		}
		if f.After(hi) {
			hi = f
		}
	}
	span := model.DaysBetween(lo, hi)
	if span < 1 {
		span = 1
	}

	page := ganttPage{Title: title, From: model.FormatDate(lo), To: model.FormatDate(hi), Days: span}
	for _, r := range rows {
		s, f := r.Start(), r.Finish()
		if s.IsZero() || f.IsZero() {
			continue
		}
		color := NormalColor
		if r.IsCritical {
			color = CriticalColor
		}
		page.Bars = append(page.Bars, ganttBar{
			Label: r.Name,
			Hover: fmt.Sprintf("Task: %s\nResource: %s\nProgress: %g%%\nFloat: %dd",
				r.TaskID, r.Resource, r.PercentComplete, r.TotalFloatDays),
			Color:  color,
			Left:   100 * float64(model.DaysBetween(lo, s)) / float64(span),
			Width:  100 * float64(model.DaysBetween(s, f)) / float64(span),
			Start:  model.FormatDate(s),
			Finish: model.FormatDate(f),
		})
	}
	page.Height = 24 * len(page.Bars)

	var buf bytes.Buffer
	if err := ganttTmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("render gantt: %w", err)
	}
	return buf.String(), nil
}
