package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/siteplan/internal/metrics"
	"github.com/joshharrison/siteplan/internal/schedule"
)

const wbsCSV = `task_id,name,duration_days,dependencies,resource
T1,Site clearance,5,,Civil
T2,Excavation,10,T1,Civil
T3,Footings,7,T2,Civil
T4,Fencing,3,T1,Civil
`

const dprCSV = `date,task_id,percent_complete
2025-01-05,T1,100
2025-01-08,T2,30
`

type upload struct {
	field, name, body string
}

func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestRouter(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	router, err := NewRouter(Opts{
		Engine:      schedule.NewEngine(nil, rec),
		MetricsPath: "/metrics",
		Gatherer:    reg,
	})
	require.NoError(t, err)
	return router, reg
}

func postSchedule(t *testing.T, h http.Handler, files []upload, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, "/schedule", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewRouter_NilEngine(t *testing.T) {
	_, err := NewRouter(Opts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine is required")
}

func TestStart_NilEngine(t *testing.T) {
	err := Start(context.Background(), Opts{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPostSchedule(t *testing.T) {
	h, _ := newTestRouter(t)
	w := postSchedule(t, h,
		[]upload{{"wbs", "wbs.csv", wbsCSV}, {"dpr", "dpr.csv", dprCSV}},
		map[string]string{"project_start": "2025-01-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RunID        string           `json:"run_id"`
		ProjectStart string           `json:"project_start"`
		CriticalPath []string         `json:"critical_path"`
		Schedule     []map[string]any `json:"schedule"`
		GanttHTML    string           `json:"gantt_html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, w.Header().Get(RunIDHeader))
	assert.Equal(t, "2025-01-01", resp.ProjectStart)
	assert.Equal(t, []string{"T1", "T2", "T3"}, resp.CriticalPath)
	assert.Len(t, resp.Schedule, 4)
	assert.True(t, strings.HasPrefix(resp.GanttHTML, "<!DOCTYPE html>"))

	// T1 is complete, so the forecast collapses it onto the project start.
	assert.Equal(t, "T1", resp.Schedule[0]["task_id"])
	assert.Equal(t, "2025-01-01", resp.Schedule[0]["forecast_finish"])
	assert.Equal(t, "2025-01-06", resp.Schedule[0]["early_finish"])
}

func TestPostSchedule_DefaultProjectStart(t *testing.T) {
	h, _ := newTestRouter(t)
	w := postSchedule(t, h, []upload{{"wbs", "wbs.csv", wbsCSV}, {"dpr", "dpr.csv", dprCSV}}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-01-05", resp["project_start"], "earliest DPR date")
}

func TestPostSchedule_Errors(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name   string
		files  []upload
		fields map[string]string
		want   string
	}{
		{
			name:  "missing dpr",
			files: []upload{{"wbs", "wbs.csv", wbsCSV}},
			want:  "dpr: file is required",
		},
		{
			name:  "cycle",
			files: []upload{{"wbs", "wbs.csv", "task_id,name,duration_days,dependencies\nA,a,1,B\nB,b,1,A\n"}, {"dpr", "dpr.csv", dprCSV}},
			want:  "cyclic",
		},
		{
			name:  "unknown dependency",
			files: []upload{{"wbs", "wbs.csv", "task_id,name,duration_days,dependencies\nA,a,1,Z\n"}, {"dpr", "dpr.csv", dprCSV}},
			want:  "Z",
		},
		{
			name:  "missing columns",
			files: []upload{{"wbs", "wbs.csv", "task_id\nA\n"}, {"dpr", "dpr.csv", dprCSV}},
			want:  "missing required columns",
		},
		{
			name:   "bad project start",
			files:  []upload{{"wbs", "wbs.csv", wbsCSV}, {"dpr", "dpr.csv", dprCSV}},
			fields: map[string]string{"project_start": "next monday"},
			want:   "project_start",
		},
		{
			name:  "unsupported format",
			files: []upload{{"wbs", "wbs.pdf", wbsCSV}, {"dpr", "dpr.csv", dprCSV}},
			want:  "unsupported file format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSchedule(t, h, tt.files, tt.fields)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.want)
		})
	}
}

func TestLatest(t *testing.T) {
	h, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedule/latest", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	posted := postSchedule(t, h, []upload{{"wbs", "wbs.csv", wbsCSV}, {"dpr", "dpr.csv", dprCSV}}, nil)
	require.Equal(t, http.StatusOK, posted.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedule/latest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, posted.Header().Get(RunIDHeader), w.Header().Get(RunIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	postSchedule(t, h, []upload{{"wbs", "wbs.csv", wbsCSV}, {"dpr", "dpr.csv", dprCSV}}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `schedule_runs_total{result="ok"} 1`)
}
