package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/server"
	"github.com/raphi011/episearch/internal/service"
	"github.com/raphi011/episearch/internal/store"
)

const testDim = 4

type stubEmbedder struct {
	vec []float32
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vec, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubEmbedder) Model() string  { return "stub" }
func (s *stubEmbedder) Dimension() int { return testDim }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestServer wires a full stack over a temp store, seeded with one episode.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	st, err := store.New(t.TempDir(), testDim, testLogger())
	require.NoError(t, err)

	doc := &models.EpisodeDocument{
		SeasonNumber:     1,
		EpisodeNumber:    "01",
		Title:            "Welcome to the Hellmouth",
		Airdate:          "March 10, 1997",
		Summary:          []string{"A new student discovers her destiny."},
		SummaryEmbedding: []float32{1, 0, 0, 0},
	}
	require.NoError(t, st.SaveEpisode(doc))

	ref := &index.Ref{}
	ref.Store(index.Build(testDim, []index.Entry{
		{Key: doc.Key(), Vector: doc.SummaryEmbedding},
	}, testLogger()))

	emb := &stubEmbedder{vec: []float32{1, 0, 0, 0}}
	collector := metrics.NewCollector()

	srv := server.New(
		service.NewSearchService(st, emb, ref, collector, 3, testLogger()),
		service.NewIngestService(st, emb, ref, collector, testLogger()),
		service.NewStatusService(st, emb, ref, testLogger()),
		service.NewJobManager(testLogger()),
		st,
		collector,
		testLogger(),
	)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/search", map[string]any{"query": "destiny", "k": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []models.SearchResult `json:"results"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Welcome to the Hellmouth", resp.Results[0].Episode.Title)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
}

func TestSearchEndpointBadBody(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEpisodeEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/episodes/1/01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc models.EpisodeDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Welcome to the Hellmouth", doc.Title)

	rec = doJSON(t, h, http.MethodGet, "/api/episodes/1/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/episodes/abc/01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSeasonEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/seasons/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SeasonNumber int                               `json:"season_number"`
		Episodes     map[string]models.EpisodeDocument `json:"episodes"`
		Count        int                               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.SeasonNumber)
	assert.Equal(t, 1, resp.Count)
	ep := resp.Episodes["01"]
	assert.Empty(t, ep.SummaryEmbedding, "season listing returns content only")

	rec = doJSON(t, h, http.MethodGet, "/api/seasons/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSeasonsEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/seasons", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Seasons []int `json:"seasons"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{1}, resp.Seasons)
}

func TestIngestEndpointAsync(t *testing.T) {
	h := newTestServer(t)

	corpus := models.RawCorpus{
		"season_1": {
			"01": {
				EpisodeTitle:   "Replacement Episode",
				EpisodeAirdate: "March 10, 1997",
				EpisodeSummary: []string{"Everything changes in town."},
			},
		},
	}

	rec := doJSON(t, h, http.MethodPost, "/api/ingest", corpus)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job service.JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)

	// Poll until the background job finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doJSON(t, h, http.MethodGet, "/api/jobs/"+job.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		if job.Status == service.JobStatusCompleted || job.Status == service.JobStatusFailed {
			break
		}
		require.True(t, time.Now().Before(deadline), "job did not finish in time")
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, service.JobStatusCompleted, job.Status, "error: %s", job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.DocumentsWritten)

	rec = doJSON(t, h, http.MethodGet, "/api/episodes/1/01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.EpisodeDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Replacement Episode", doc.Title)
}

func TestGetJobNotFound(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/jobs/deadbeef", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status service.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.EmbedderOK)
	assert.Equal(t, 1, status.Documents)
	assert.Equal(t, 1, status.Indexed)
	assert.True(t, status.InSync)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)

	// Generate some traffic first.
	rec := doJSON(t, h, http.MethodPost, "/api/search", map[string]any{"query": "anything"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Search)
	assert.Equal(t, int64(1), snap.Search.Count)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fmt.Sprintln("ok"), rec.Body.String())
}
