// Package api exposes the HTTP interface of the crawl coordination service:
// the results callback invoked by the crawl service, the harvest hook, and
// job queries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
	"github.com/inspirehep/inspire-crawler/internal/harvest"
	"github.com/inspirehep/inspire-crawler/internal/ingest"
	"github.com/inspirehep/inspire-crawler/internal/metrics"
)

// Server wires HTTP handlers to the scheduler, pipeline, and job store.
type Server struct {
	router    chi.Router
	jobs      crawler.JobStore
	scheduler harvest.CrawlScheduler
	pipeline  *ingest.Pipeline
	bridge    *harvest.Bridge
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobs crawler.JobStore,
	scheduler harvest.CrawlScheduler,
	pipeline *ingest.Pipeline,
	bridge *harvest.Bridge,
	logger *zap.Logger,
) *Server {
	s := &Server{
		jobs:      jobs,
		scheduler: scheduler,
		pipeline:  pipeline,
		bridge:    bridge,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Post("/", s.scheduleJob)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Post("/results", s.submitResults)
			})
		})
		r.Post("/harvest", s.harvestFinished)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scheduleRequest struct {
	Spider   string            `json:"spider"`
	Workflow string            `json:"workflow"`
	Settings map[string]any    `json:"settings"`
	Args     map[string]string `json:"args"`
}

func (s *Server) scheduleJob(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Spider == "" || req.Workflow == "" {
		s.writeError(w, http.StatusBadRequest, "spider and workflow are required")
		return
	}
	job, err := s.scheduler.Schedule(r.Context(), req.Spider, req.Workflow, req.Settings, req.Args)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"job": job})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	tail := 0
	if raw := r.URL.Query().Get("tail"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid tail")
			return
		}
		tail = parsed
	}
	jobs, err := s.jobs.List(r.Context(), tail)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetByJobID(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

type submitResultsRequest struct {
	Errors      []map[string]any `json:"errors"`
	LogFile     string           `json:"log_file"`
	ResultsURI  string           `json:"results_uri"`
	ResultsData []map[string]any `json:"results_data"`
}

func (s *Server) submitResults(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	var req submitResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	err := s.pipeline.SubmitResults(
		r.Context(),
		jobID,
		req.Errors,
		req.LogFile,
		req.ResultsURI,
		req.ResultsData,
	)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "ingested"})
}

type harvestRequest struct {
	Records  []string `json:"records"`
	Spider   string   `json:"spider"`
	Workflow string   `json:"workflow"`
}

func (s *Server) harvestFinished(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	records := make([]harvest.Record, len(req.Records))
	for i, raw := range req.Records {
		records[i] = harvest.Record{Raw: raw}
	}
	if err := s.bridge.OnHarvestFinished(r.Context(), records, req.Spider, req.Workflow); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]int{"records": len(records)})
}

// writeDomainError maps the crawler error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound       *crawler.JobNotFoundError
		wfNotFound     *crawler.WorkflowObjectNotFoundError
		duplicate      *crawler.DuplicateJobError
		unknownSpider  *crawler.UnknownSpiderError
		invalidResults *crawler.InvalidResultsPathError
		jobErr         *crawler.JobError
		scheduleErr    *crawler.ScheduleError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &wfNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unknownSpider):
		s.writeJSON(w, http.StatusNotFound, map[string]any{
			"error":             err.Error(),
			"available_spiders": unknownSpider.Available,
		})
	case errors.As(err, &invalidResults), errors.As(err, &jobErr):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &scheduleErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
