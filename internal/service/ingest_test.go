package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/llm"
	"github.com/raphi011/episearch/internal/models"
)

func rawEpisode(title string) models.RawEpisode {
	return models.RawEpisode{
		EpisodeTitle:   title,
		EpisodeAirdate: "March 10, 1997",
		EpisodeSummary: []string{"A monster terrorizes the school library."},
	}
}

func newIngestService(t *testing.T, emb llm.Embedder) (*IngestService, *index.Ref) {
	t.Helper()
	ref := &index.Ref{}
	return NewIngestService(newTestStore(t), emb, ref, nil, testLogger()), ref
}

func TestIngestWritesAndIndexes(t *testing.T) {
	emb := newFakeEmbedder()
	svc, ref := newIngestService(t, emb)

	corpus := models.RawCorpus{
		"season_1": {
			"01": rawEpisode("Welcome to the Hellmouth"),
			"02": rawEpisode("The Harvest"),
		},
	}

	report, err := svc.Ingest(context.Background(), corpus, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsWritten)
	assert.Zero(t, report.DocumentsRejected)
	assert.NotEmpty(t, report.ReportID)

	doc, err := svc.store.GetEpisode(1, "01")
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the Hellmouth", doc.Title)
	assert.Len(t, doc.SummaryEmbedding, testDim)

	assert.Equal(t, 2, ref.Load().Len())
	assert.Equal(t, 2, emb.calls, "one summary embedding per episode")
}

func TestIngestKeepsPrecomputedEmbeddings(t *testing.T) {
	emb := newFakeEmbedder()
	svc, _ := newIngestService(t, emb)

	ep := rawEpisode("Prophecy Girl")
	ep.SummaryEmbedding = []float32{0, 0, 0, 1}
	corpus := models.RawCorpus{"season_1": {"01": ep}}

	report, err := svc.Ingest(context.Background(), corpus, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsWritten)
	assert.Zero(t, emb.calls)

	doc, err := svc.store.GetEpisode(1, "01")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 1}, doc.SummaryEmbedding)
}

func TestIngestCollectsPerEpisodeErrors(t *testing.T) {
	svc, _ := newIngestService(t, newFakeEmbedder())

	bad := rawEpisode("Bad Airdate")
	bad.EpisodeAirdate = "1997-03-10"
	corpus := models.RawCorpus{
		"season_1": {
			"01": rawEpisode("Good One"),
			"02": rawEpisode("Good Two"),
			"03": bad,
		},
	}

	report, err := svc.Ingest(context.Background(), corpus, nil)
	require.NoError(t, err, "rejecting the last episode keeps numbering contiguous")
	assert.Equal(t, 2, report.DocumentsWritten)
	assert.Equal(t, 1, report.DocumentsRejected)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "airdate")
}

func TestIngestRejectsGappedCorpus(t *testing.T) {
	svc, ref := newIngestService(t, newFakeEmbedder())

	bad := rawEpisode("Bad Airdate")
	bad.EpisodeAirdate = "nope"
	corpus := models.RawCorpus{
		"season_1": {
			"01": rawEpisode("Good One"),
			"02": bad, // rejection leaves a gap: {01, 03}
			"03": rawEpisode("Good Three"),
		},
	}

	_, err := svc.Ingest(context.Background(), corpus, nil)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "episode_number", verr.Field)

	count, cerr := svc.store.CountDocuments()
	require.NoError(t, cerr)
	assert.Zero(t, count, "nothing written on corpus rejection")
	assert.Zero(t, ref.Load().Len())
}

func TestIngestAbortsOnEmbedderFailure(t *testing.T) {
	emb := newFakeEmbedder()
	emb.err = llm.ErrEmbedding
	svc, _ := newIngestService(t, emb)

	corpus := models.RawCorpus{"season_1": {"01": rawEpisode("Unlucky")}}

	_, err := svc.Ingest(context.Background(), corpus, nil)
	require.ErrorIs(t, err, llm.ErrEmbedding)

	count, cerr := svc.store.CountDocuments()
	require.NoError(t, cerr)
	assert.Zero(t, count)
}

func TestIngestTracksJobProgress(t *testing.T) {
	svc, _ := newIngestService(t, newFakeEmbedder())
	jobs := NewJobManager(testLogger())
	job, err := jobs.CreateIngestJob()
	require.NoError(t, err)

	corpus := models.RawCorpus{
		"season_1": {
			"01": rawEpisode("One"),
			"02": rawEpisode("Two"),
		},
	}

	report, err := svc.Ingest(context.Background(), corpus, job)
	require.NoError(t, err)
	job.Complete(report)

	view := job.View()
	assert.Equal(t, JobStatusCompleted, view.Status)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 2, view.Progress)
	require.NotNil(t, view.Result)
	assert.Equal(t, 2, view.Result.DocumentsWritten)
}

func TestIngestFile(t *testing.T) {
	svc, ref := newIngestService(t, newFakeEmbedder())

	corpus := models.RawCorpus{"season_1": {"01": rawEpisode("From Disk")}}
	data, err := json.Marshal(corpus)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	report, err := svc.IngestFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsWritten)
	assert.Equal(t, 1, ref.Load().Len())
}

func TestIngestFileMissing(t *testing.T) {
	svc, _ := newIngestService(t, newFakeEmbedder())
	_, err := svc.IngestFile(context.Background(), "/nonexistent/corpus.json", nil)
	assert.ErrorIs(t, err, ErrImportIO)
}

func TestIngestInvalidJSON(t *testing.T) {
	svc, _ := newIngestService(t, newFakeEmbedder())
	_, err := svc.IngestJSON(context.Background(), []byte("{not json"), nil)
	assert.ErrorIs(t, err, ErrImportIO)
}

func TestIngestEndToEndSearch(t *testing.T) {
	emb := newFakeEmbedder()
	emb.vecs["A monster terrorizes the school library."] = []float32{0, 1, 0, 0}
	emb.vecs["monster in the library"] = []float32{0, 1, 0, 0}
	svc, ref := newIngestService(t, emb)

	corpus := models.RawCorpus{"season_1": {"01": rawEpisode("The Pack")}}
	_, err := svc.Ingest(context.Background(), corpus, nil)
	require.NoError(t, err)

	search := NewSearchService(svc.store, emb, ref, nil, 3, testLogger())
	results, err := search.Search(context.Background(), "monster in the library", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Pack", results[0].Episode.Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}
