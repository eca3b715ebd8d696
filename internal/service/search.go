// Package service provides the retrieval engine, the ingestion pipeline,
// and runtime diagnostics over the store, index, and embedder.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/llm"
	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/store"
)

// ErrSearchUnavailable indicates the search path cannot currently produce
// results: the embedder failed, so ranking is impossible.
var ErrSearchUnavailable = errors.New("search unavailable")

// SearchService is the retrieval engine: it embeds a query, ranks indexed
// episodes by cosine similarity, and resolves hits to full records.
type SearchService struct {
	store    *store.Store
	embedder llm.Embedder
	index    *index.Ref
	metrics  *metrics.Collector
	defaultK int
	logger   *slog.Logger
}

// NewSearchService creates a new search service. defaultK is used when a
// caller passes k < 1.
func NewSearchService(st *store.Store, embedder llm.Embedder, idx *index.Ref, collector *metrics.Collector, defaultK int, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultK < 1 {
		defaultK = 3
	}
	return &SearchService{
		store:    st,
		embedder: embedder,
		index:    idx,
		metrics:  collector,
		defaultK: defaultK,
		logger:   logger,
	}
}

// Search returns at most k episodes ranked by descending similarity to the
// query text. An empty or whitespace-only query returns no results without
// touching the embedder. Hits whose records can no longer be read from the
// store are skipped and logged, so the result may be shorter than k.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	start := time.Now()
	defer func() { s.metrics.RecordTiming(metrics.OpSearch, time.Since(start)) }()

	if strings.TrimSpace(query) == "" {
		return []models.SearchResult{}, nil
	}
	if k < 1 {
		k = s.defaultK
	}

	embedStart := time.Now()
	vec, err := s.embedder.Embed(ctx, query)
	s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(embedStart))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	idx := s.index.Load()
	if idx.Len() == 0 {
		s.logger.Warn("search against empty index", "query_len", len(query))
		return []models.SearchResult{}, nil
	}

	queryStart := time.Now()
	hits := idx.Query(vec, k)
	s.metrics.RecordTiming(metrics.OpIndexQuery, time.Since(queryStart))

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		readStart := time.Now()
		doc, err := s.store.GetEpisode(hit.Key.Season, hit.Key.Episode)
		s.metrics.RecordTiming(metrics.OpStoreRead, time.Since(readStart))
		if err != nil {
			// Stale index entry or unreadable record: drop this hit.
			s.logger.Warn("skipping unresolvable hit", "key", hit.Key.String(), "error", err)
			continue
		}
		results = append(results, models.SearchResult{
			SeasonNumber:  hit.Key.Season,
			EpisodeNumber: hit.Key.Episode,
			Episode:       doc,
			Score:         hit.Score,
		})
	}

	if len(hits) > 0 && len(results) == 0 {
		// The index had candidates but none resolved; the store and index
		// have diverged rather than the query having no matches.
		s.logger.Warn("store and index out of sync: no hit resolved", "hits", len(hits))
	}

	return results, nil
}
