package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshharrison/siteplan/internal/ingest"
	"github.com/joshharrison/siteplan/internal/model"
	"github.com/joshharrison/siteplan/internal/reporter"
)

// RunIDHeader carries the run id of a computed schedule.
const RunIDHeader = "X-Run-ID"

type scheduleResponse struct {
	RunID        string         `json:"run_id"`
	ProjectStart string         `json:"project_start"`
	CriticalPath []string       `json:"critical_path"`
	Schedule     []reporter.Row `json:"schedule"`
	GanttHTML    string         `json:"gantt_html"`
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *server) handleSchedule(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.opts.MaxUploadMB)<<20)

	tasks, err := readUpload(c, "wbs", ingest.ReadWBSFrom)
	if err != nil {
		badRequest(c, err)
		return
	}
	records, err := readUpload(c, "dpr", ingest.ReadDPRFrom)
	if err != nil {
		badRequest(c, err)
		return
	}

	var start time.Time
	if v := c.PostForm("project_start"); v != "" {
		if start, err = ingest.ParseDate(v); err != nil {
			badRequest(c, fmt.Errorf("project_start %q: %w", v, err))
			return
		}
	} else {
		start = ingest.DefaultProjectStart(records, s.opts.Now())
	}

	res, err := s.opts.Engine.Run(tasks, records, start)
	if err != nil {
		badRequest(c, err)
		return
	}

	rows := reporter.Rows(res.Schedule)
	gantt, err := reporter.GanttHTML(rows, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := &scheduleResponse{
		RunID:        res.RunID,
		ProjectStart: model.FormatDate(res.Schedule.ProjectStart),
		CriticalPath: res.Schedule.CriticalPath,
		Schedule:     rows,
		GanttHTML:    gantt,
	}
	s.mu.Lock()
	s.latest = resp
	s.mu.Unlock()

	c.Header(RunIDHeader, res.RunID)
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleLatest(c *gin.Context) {
	s.mu.RLock()
	resp := s.latest
	s.mu.RUnlock()

	if resp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no schedule computed yet"})
		return
	}
	c.Header(RunIDHeader, resp.RunID)
	c.JSON(http.StatusOK, resp)
}

// readUpload parses the multipart file in field with read. The format follows
// the uploaded file name and defaults to CSV.
func readUpload[T any](c *gin.Context, field string, read func(r io.Reader, ext string) ([]T, error)) ([]T, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s: file is required", field)
	}
	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = ingest.ExtCSV
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	defer f.Close()

	out, err := read(f, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return out, nil
}
