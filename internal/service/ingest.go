package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/llm"
	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/store"
)

// ErrImportIO indicates the raw corpus source could not be read or parsed.
var ErrImportIO = errors.New("corpus import failed")

// IngestService bulk-loads raw episode JSON: validates, embeds, writes
// through the store, and rebuilds the similarity index.
type IngestService struct {
	store    *store.Store
	embedder llm.Embedder
	index    *index.Ref
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(st *store.Store, embedder llm.Embedder, idx *index.Ref, collector *metrics.Collector, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		store:    st,
		embedder: embedder,
		index:    idx,
		metrics:  collector,
		logger:   logger,
	}
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	ReportID          string        `json:"report_id"`
	DocumentsWritten  int           `json:"documents_written"`
	DocumentsRejected int           `json:"documents_rejected"`
	Errors            []string      `json:"errors,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// IngestFile reads a raw corpus JSON file and ingests it.
func (s *IngestService) IngestFile(ctx context.Context, path string, job *Job) (*IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrImportIO, path, err)
	}
	return s.IngestJSON(ctx, data, job)
}

// IngestJSON parses raw corpus JSON bytes and ingests them.
func (s *IngestService) IngestJSON(ctx context.Context, data []byte, job *Job) (*IngestReport, error) {
	var corpus models.RawCorpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("%w: parse corpus: %v", ErrImportIO, err)
	}
	return s.Ingest(ctx, corpus, job)
}

// Ingest processes a raw corpus. Per-episode validation or embedding
// failures are collected in the report and the remaining episodes continue;
// the corpus-wide numbering invariant is then checked over the surviving
// subset, and a violation rejects the whole ingestion with nothing written.
// On success the corpus is imported in bulk (with a backup of any existing
// data) and the similarity index is rebuilt from the store. job may be nil.
func (s *IngestService) Ingest(ctx context.Context, corpus models.RawCorpus, job *Job) (*IngestReport, error) {
	start := time.Now()
	defer func() { s.metrics.RecordTiming(metrics.OpIngest, time.Since(start)) }()

	report := &IngestReport{ReportID: uuid.New().String()}

	entries, err := corpus.Flatten()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportIO, err)
	}
	job.SetRunning(len(entries))

	docs := make([]*models.EpisodeDocument, 0, len(entries))
	for i, entry := range entries {
		doc, err := s.prepareEpisode(ctx, entry)
		if err != nil {
			if errors.Is(err, llm.ErrEmbedding) || errors.Is(err, context.Canceled) {
				// Without the embedder nothing further can succeed.
				return nil, err
			}
			report.DocumentsRejected++
			report.Errors = append(report.Errors, err.Error())
			s.logger.Warn("rejected episode", "season", entry.Season, "episode", entry.Episode, "error", err)
			job.SetProgress(i + 1)
			continue
		}
		docs = append(docs, doc)
		job.SetProgress(i + 1)
	}

	if err := models.ValidateContiguity(docs); err != nil {
		return nil, err
	}

	if err := s.store.ImportBulk(docs); err != nil {
		return nil, err
	}
	report.DocumentsWritten = len(docs)

	if err := s.RebuildIndex(); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	s.logger.Info("ingestion complete",
		"report_id", report.ReportID,
		"written", report.DocumentsWritten,
		"rejected", report.DocumentsRejected,
		"duration_ms", report.Duration.Milliseconds())
	return report, nil
}

// prepareEpisode builds a validated, fully embedded document from one raw
// entry. Embeddings present in the raw record are kept; missing ones are
// computed for the summary and, when text is present, synopsis and quotes.
func (s *IngestService) prepareEpisode(ctx context.Context, entry models.RawEntry) (*models.EpisodeDocument, error) {
	doc := entry.Raw.Document(entry.Season)
	if doc.EpisodeNumber == "" {
		// Older corpus dumps carry the number only as the map key.
		doc.EpisodeNumber = entry.Episode
	}
	if err := doc.Validate(s.store.Dimension()); err != nil {
		return nil, err
	}

	if doc.SummaryEmbedding == nil {
		vec, err := s.embedText(ctx, doc.Summary)
		if err != nil {
			return nil, err
		}
		doc.SummaryEmbedding = vec
	}
	if doc.SynopsisEmbedding == nil && len(doc.Synopsis) > 0 {
		vec, err := s.embedText(ctx, doc.Synopsis)
		if err != nil {
			return nil, err
		}
		doc.SynopsisEmbedding = vec
	}
	if doc.QuotesEmbedding == nil && len(doc.Quotes) > 0 {
		vec, err := s.embedText(ctx, doc.Quotes)
		if err != nil {
			return nil, err
		}
		doc.QuotesEmbedding = vec
	}

	// Re-validate: precomputed embeddings from the raw record have already
	// been checked, freshly computed ones are checked by the embedder, but
	// a misconfigured dimension surfaces here rather than at search time.
	if err := doc.ValidateStored(s.store.Dimension()); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *IngestService) embedText(ctx context.Context, paragraphs []string) ([]float32, error) {
	embedStart := time.Now()
	vec, err := s.embedder.Embed(ctx, strings.Join(paragraphs, "\n"))
	s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(embedStart))
	return vec, err
}

// RebuildIndex scans the store and swaps in a freshly built index.
// In-flight searches keep the previous snapshot until they finish.
func (s *IngestService) RebuildIndex() error {
	var entries []index.Entry
	err := s.store.ForEach(func(doc *models.EpisodeDocument) error {
		entries = append(entries, index.Entry{
			Key:    doc.Key(),
			Vector: doc.SummaryEmbedding,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	s.index.Store(index.Build(s.store.Dimension(), entries, s.logger))
	return nil
}
