// Package server provides the HTTP JSON API over the search stack.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/service"
	"github.com/raphi011/episearch/internal/store"
)

// Server bundles the API handlers with their dependencies.
type Server struct {
	search  *service.SearchService
	ingest  *service.IngestService
	status  *service.StatusService
	jobs    *service.JobManager
	store   *store.Store
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a new API server.
func New(
	search *service.SearchService,
	ingest *service.IngestService,
	status *service.StatusService,
	jobs *service.JobManager,
	st *store.Store,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		search:  search,
		ingest:  ingest,
		status:  status,
		jobs:    jobs,
		store:   st,
		metrics: collector,
		logger:  logger,
	}
}

// Handler returns the routed handler with logging middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/episodes/{season}/{episode}", s.handleGetEpisode)
	mux.HandleFunc("GET /api/seasons/{season}", s.handleGetSeason)
	mux.HandleFunc("GET /api/seasons", s.handleListSeasons)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /health", s.handleHealth)

	return LoggingMiddleware(s.logger)(mux)
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	results, err := s.search.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	season, err := strconv.Atoi(r.PathValue("season"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid season %q", r.PathValue("season")))
		return
	}

	doc, err := s.store.GetEpisode(season, r.PathValue("episode"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

type seasonResponse struct {
	SeasonNumber int                               `json:"season_number"`
	Episodes     map[string]models.EpisodeDocument `json:"episodes"`
	Count        int                               `json:"count"`
}

func (s *Server) handleGetSeason(w http.ResponseWriter, r *http.Request) {
	season, err := strconv.Atoi(r.PathValue("season"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid season %q", r.PathValue("season")))
		return
	}

	episodes, err := s.store.GetSeason(season)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, seasonResponse{
		SeasonNumber: season,
		Episodes:     episodes,
		Count:        len(episodes),
	})
}

func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.store.Seasons()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"seasons": seasons})
}

// handleIngest accepts a raw corpus body and runs the ingestion in the
// background. Responds 202 with the job; poll /api/jobs/{id} for the result.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var corpus models.RawCorpus
	if err := json.NewDecoder(r.Body).Decode(&corpus); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse corpus: %w", err))
		return
	}

	job, err := s.jobs.CreateIngestJob()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	go func() {
		report, err := s.ingest.Ingest(context.Background(), corpus, job)
		if err != nil {
			job.Fail(err)
			s.logger.Error("background ingestion failed", "job_id", job.ID, "error", err)
			return
		}
		job.Complete(report)
	}()

	s.writeJSON(w, http.StatusAccepted, job.View())
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": s.jobs.ListJobs()})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.GetJob(r.PathValue("id"))
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("job %q not found", r.PathValue("id")))
		return
	}
	s.writeJSON(w, http.StatusOK, job.View())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status.Check(r.Context()))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.As(err, &verr), errors.Is(err, service.ErrImportIO):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrIngestInProgress):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrSearchUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
