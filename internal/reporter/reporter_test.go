package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/joshharrison/siteplan/internal/cpm"
	"github.com/joshharrison/siteplan/internal/model"
	"github.com/joshharrison/siteplan/internal/schedule"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func day(d int) time.Time { return model.NewDate(2025, time.January, d) }

func makeTasks() []model.Task {
	return []model.Task{
		{TaskID: "T1", Name: "Site clearance", DurationDays: 5, Resource: "Civil"},
		{TaskID: "T2", Name: "Excavation", DurationDays: 10, Dependencies: []string{"T1"}},
		{TaskID: "T3", Name: "Footings", DurationDays: 7, Dependencies: []string{"T2"}},
		{TaskID: "T4", Name: "Fencing", DurationDays: 3, Dependencies: []string{"T1"}, Resource: "Crew D"},
	}
}

func makeSchedule(t *testing.T) *model.ProjectSchedule {
	t.Helper()
	sched, err := schedule.Compute(makeTasks(), nil, day(1))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return sched
}

func ids(rows []LookaheadRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.TaskID
	}
	return out
}

func TestRows(t *testing.T) {
	rows := Rows(makeSchedule(t))

	var got []string
	for _, r := range rows {
		got = append(got, r.TaskID)
	}
	if strings.Join(got, ",") != "T1,T2,T4,T3" {
		t.Fatalf("row order = %v, want T1,T2,T4,T3", got)
	}
	if !rows[0].IsCritical {
		t.Error("T1 should be critical")
	}
	if rows[2].IsCritical || rows[2].TotalFloatDays != 14 {
		t.Errorf("T4: critical=%v float=%d, want false/14", rows[2].IsCritical, rows[2].TotalFloatDays)
	}
}

func TestRowsRoundsPercent(t *testing.T) {
	sched := &model.ProjectSchedule{Tasks: []model.Task{{TaskID: "A", PercentComplete: 33.3333}}}
	if got := Rows(sched)[0].PercentComplete; got != 33.33 {
		t.Errorf("percent = %v, want 33.33", got)
	}
}

func TestLookahead(t *testing.T) {
	rows := Rows(makeSchedule(t))

	got := ids(Lookahead(rows, day(8), 7))
	if strings.Join(got, ",") != "T2,T4" {
		t.Errorf("lookahead from 01-08 = %v, want [T2 T4] (critical first)", got)
	}

	// A task finishing on the window start is still active.
	got = ids(Lookahead(rows, day(9), 7))
	if strings.Join(got, ",") != "T2,T4" {
		t.Errorf("lookahead from 01-09 = %v, want [T2 T4]", got)
	}

	// A task starting on the window end is excluded.
	got = ids(Lookahead(rows, day(2), 4))
	if strings.Join(got, ",") != "T1" {
		t.Errorf("lookahead from 01-02 = %v, want [T1]", got)
	}

	if got := Lookahead(rows, day(30), 14); len(got) != 0 {
		t.Errorf("expected nothing after project finish, got %v", ids(got))
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Rows(makeSchedule(t))); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(decoded))
	}
	first := decoded[0]
	if first["early_start"] != "2025-01-01" || first["forecast_finish"] != "2025-01-06" {
		t.Errorf("unexpected dates: %v / %v", first["early_start"], first["forecast_finish"])
	}
	if first["is_critical"] != true {
		t.Errorf("expected T1 critical, got %v", first["is_critical"])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Rows(makeSchedule(t))); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(CSVHeader, ",") {
		t.Errorf("header = %v", records[0])
	}
	t4 := records[3]
	if t4[0] != "T4" || t4[9] != "14" || t4[12] != "false" {
		t.Errorf("unexpected T4 record %v", t4)
	}
}

func TestGanttHTML(t *testing.T) {
	html, err := GanttHTML(Rows(makeSchedule(t)), "")
	if err != nil {
		t.Fatalf("GanttHTML: %v", err)
	}
	if !strings.Contains(html, "<title>"+DefaultGanttTitle+"</title>") {
		t.Error("expected default title")
	}
	if strings.Count(html, `class="bar"`) != 4 {
		t.Errorf("expected 4 bars, got %d", strings.Count(html, `class="bar"`))
	}
	if !strings.Contains(html, CriticalColor) || !strings.Contains(html, NormalColor) {
		t.Error("expected both critical and normal bar colors")
	}
	if !strings.Contains(html, "Float: 14d") {
		t.Error("expected hover text with float")
	}
}

func TestGanttHTMLEscapes(t *testing.T) {
	rows := []Row{{TaskID: "X", Name: "<script>", EarlyStart: day(1), EarlyFinish: day(2)}}
	html, err := GanttHTML(rows, "Plan")
	if err != nil {
		t.Fatalf("GanttHTML: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("task names must be escaped")
	}
}

func TestPrintTable(t *testing.T) {
	sched := makeSchedule(t)
	pass, err := cpm.RunPass(makeTasks(), day(1))
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	var buf bytes.Buffer
	PrintTable(&buf, sched, pass.Waves)
	output := buf.String()

	for _, want := range []string{"WAVE 1", "WAVE 3", "Fencing", "Crew D", "2025-01-23", "⚡"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(output, "WAVE 4") {
		t.Error("expected exactly three waves")
	}
}

func TestPrintTableWithoutWaves(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, makeSchedule(t), nil)
	if !strings.Contains(buf.String(), "WAVE 1") || !strings.Contains(buf.String(), "Footings") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestSummary(t *testing.T) {
	s := Summary(makeSchedule(t))
	if !strings.Contains(s, "T1 → T2 → T3") {
		t.Errorf("expected joined critical path, got:\n%s", s)
	}
	if !strings.Contains(s, "Forecast finish: 2025-01-23") {
		t.Errorf("expected forecast finish, got:\n%s", s)
	}
}
