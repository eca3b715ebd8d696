package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/llm"
	"github.com/raphi011/episearch/internal/store"
)

// Status describes the health of the search stack at a point in time.
type Status struct {
	EmbedderOK    bool   `json:"embedder_ok"`
	EmbedderError string `json:"embedder_error,omitempty"`
	EmbedderModel string `json:"embedder_model"`
	Dimension     int    `json:"dimension"`
	Seasons       int    `json:"seasons"`
	Documents     int    `json:"documents"`
	Indexed       int    `json:"indexed"`
	InSync        bool   `json:"in_sync"`
}

// StatusService reports on the store, index, and embedder.
type StatusService struct {
	store    *store.Store
	embedder llm.Embedder
	index    *index.Ref
	logger   *slog.Logger
}

// NewStatusService creates a new status service.
func NewStatusService(st *store.Store, embedder llm.Embedder, idx *index.Ref, logger *slog.Logger) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{
		store:    st,
		embedder: embedder,
		index:    idx,
		logger:   logger,
	}
}

// Check probes the embedder with a trivial input and compares document and
// index counts. InSync means every stored document is represented in the
// index snapshot.
func (s *StatusService) Check(ctx context.Context) Status {
	status := Status{
		EmbedderModel: s.embedder.Model(),
		Dimension:     s.embedder.Dimension(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.embedder.Embed(probeCtx, "ping"); err != nil {
		status.EmbedderError = err.Error()
		s.logger.Warn("embedder probe failed", "model", status.EmbedderModel, "error", err)
	} else {
		status.EmbedderOK = true
	}

	seasons, err := s.store.Seasons()
	if err != nil {
		s.logger.Warn("listing seasons failed", "error", err)
	}
	status.Seasons = len(seasons)

	docs, err := s.store.CountDocuments()
	if err != nil {
		s.logger.Warn("counting documents failed", "error", err)
	}
	status.Documents = docs

	status.Indexed = s.index.Load().Len()
	status.InSync = status.Documents == status.Indexed

	return status
}
