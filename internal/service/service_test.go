package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/store"
)

const testDim = 4

// fakeEmbedder returns canned vectors keyed by input text. Unknown inputs
// get the fallback vector. Thread safety is not needed in these tests.
type fakeEmbedder struct {
	vecs     map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vecs:     map[string][]float32{},
		fallback: []float32{1, 0, 0, 0},
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake-model" }
func (f *fakeEmbedder) Dimension() int { return testDim }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), testDim, testLogger())
	require.NoError(t, err)
	return st
}

// testDoc builds a valid stored document with the given ranking vector.
func testDoc(season int, episode string, vec []float32) *models.EpisodeDocument {
	return &models.EpisodeDocument{
		SeasonNumber:     season,
		EpisodeNumber:    episode,
		Title:            fmt.Sprintf("Episode %d-%s", season, episode),
		Airdate:          "March 10, 1997",
		Summary:          []string{"Something sinister happens in town."},
		SummaryEmbedding: vec,
	}
}

// seedStore writes docs and builds a live index over them.
func seedStore(t *testing.T, st *store.Store, docs ...*models.EpisodeDocument) *index.Ref {
	t.Helper()
	entries := make([]index.Entry, 0, len(docs))
	for _, d := range docs {
		require.NoError(t, st.SaveEpisode(d))
		entries = append(entries, index.Entry{Key: d.Key(), Vector: d.SummaryEmbedding})
	}
	ref := &index.Ref{}
	ref.Store(index.Build(testDim, entries, testLogger()))
	return ref
}
