package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/discovery"
	"github.com/IshaanNene/GapFill/internal/enrich"
	"github.com/IshaanNene/GapFill/internal/runner"
	"github.com/IshaanNene/GapFill/internal/storage"
	"github.com/IshaanNene/GapFill/internal/types"
)

// RowEnricher enriches a single row and reports what happened.
type RowEnricher interface {
	EnrichWithOutcome(ctx context.Context, row types.Row) (types.Row, enrich.Outcome)
}

// Locator resolves a product page URL.
type Locator interface {
	Resolve(ctx context.Context, baseURL, name, sku string) discovery.Resolution
}

// RowReader parses an uploaded spreadsheet.
type RowReader interface {
	Read(name string, src io.Reader) ([]types.Row, error)
}

// BatchRunner processes a batch of rows.
type BatchRunner interface {
	Run(ctx context.Context, rows []types.Row) (runner.Summary, []types.Row)
}

// Deps are the services the API exposes. Storage and Metrics are optional.
type Deps struct {
	Enricher RowEnricher
	Locator  Locator
	Reader   RowReader
	Runner   BatchRunner
	Storage  storage.Storage
	Metrics  http.Handler
}

// Job tracks one spreadsheet sync.
type Job struct {
	ID         string         `json:"id"`
	Vendor     string         `json:"vendor,omitempty"`
	File       string         `json:"file"`
	Status     string         `json:"status"`
	Summary    runner.Summary `json:"summary"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Server provides the HTTP surface of the enrichment service.
type Server struct {
	router *gin.Engine
	port   int
	deps   Deps
	logger *slog.Logger

	jobs   map[string]*Job
	jobsMu sync.RWMutex

	newJobID func() string
}

// NewServer creates a new API server.
func NewServer(cfg *config.APIConfig, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		port:     cfg.Port,
		deps:     deps,
		logger:   logger.With("component", "api_server"),
		jobs:     make(map[string]*Job),
		newJobID: newJobID,
	}
	s.router = SetupRouter(cfg, s)
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("API server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "gapfill",
		"version": config.Version,
	})
}

func (s *Server) handleEnrich(c *gin.Context) {
	var row types.Row
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON row"})
		return
	}
	if len(row) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row is empty"})
		return
	}

	enriched, outcome := s.deps.Enricher.EnrichWithOutcome(c.Request.Context(), row)
	resp := gin.H{"row": enriched, "outcome": outcome}
	if err := outcome.Err(); err != nil {
		resp["reason"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type locateRequest struct {
	Site string `json:"site" binding:"required"`
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

func (s *Server) handleLocate(c *gin.Context) {
	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site is required"})
		return
	}

	res := s.deps.Locator.Resolve(c.Request.Context(), types.NormalizeSite(req.Site), req.Name, req.SKU)
	c.JSON(http.StatusOK, gin.H{
		"found":    res.Found,
		"url":      res.URL,
		"by":       res.By.String(),
		"platform": res.Platform,
		"rule":     res.Rule,
		"steps":    len(res.Steps),
	})
}

func (s *Server) handleSync(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	job := &Job{
		ID:        s.newJobID(),
		Vendor:    c.PostForm("vendor"),
		File:      fh.Filename,
		Status:    "running",
		StartedAt: time.Now(),
	}
	s.putJob(job)
	logger := s.logger.With("job", job.ID, "file", job.File)

	rows, err := s.deps.Reader.Read(fh.Filename, f)
	if err != nil {
		logger.Warn("sync ingest failed", "error", err)
		s.finishJob(job, runner.Summary{}, err)
		status := http.StatusBadRequest
		if !errors.Is(err, types.ErrUnsupportedFile) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error(), "job": s.getJob(job.ID)})
		return
	}

	summary, out := s.deps.Runner.Run(c.Request.Context(), rows)

	var storeErr error
	if s.deps.Storage != nil && len(out) > 0 {
		storeErr = s.deps.Storage.Store(out)
		if storeErr != nil {
			logger.Error("sync store failed", "error", storeErr)
		}
	}
	s.finishJob(job, summary, storeErr)

	resp := gin.H{"job": s.getJob(job.ID)}
	if c.Query("rows") == "true" {
		resp["rows"] = out
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListJobs(c *gin.Context) {
	s.jobsMu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	s.jobsMu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.Before(jobs[j].StartedAt) })
	c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleGetJob(c *gin.Context) {
	job := s.getJob(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) putJob(job *Job) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	s.jobs[job.ID] = job
}

func (s *Server) finishJob(job *Job, summary runner.Summary, err error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	job.Summary = summary
	job.FinishedAt = time.Now()
	job.Status = "completed"
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
	}
}

// getJob returns a copy of the job, or nil.
func (s *Server) getJob(id string) *Job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}
