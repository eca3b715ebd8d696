package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/episearch/internal/index"
)

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	st := newTestStore(t)
	ref := seedStore(t, st,
		testDoc(1, "01", []float32{1, 0, 0, 0}),
		testDoc(1, "02", []float32{0, 1, 0, 0}),
	)

	emb := newFakeEmbedder()
	emb.vecs["vampires"] = []float32{0.9, 0.1, 0, 0}
	svc := NewSearchService(st, emb, ref, nil, 3, testLogger())

	results, err := svc.Search(context.Background(), "vampires", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "01", results[0].EpisodeNumber)
	assert.Equal(t, "02", results[1].EpisodeNumber)
	assert.Greater(t, results[0].Score, results[1].Score)
	require.NotNil(t, results[0].Episode)
	assert.Equal(t, "Episode 1-01", results[0].Episode.Title)
}

func TestSearchEmptyQuerySkipsEmbedder(t *testing.T) {
	st := newTestStore(t)
	ref := seedStore(t, st, testDoc(1, "01", []float32{1, 0, 0, 0}))
	emb := newFakeEmbedder()
	svc := NewSearchService(st, emb, ref, nil, 3, testLogger())

	for _, query := range []string{"", "   ", "\n\t"} {
		results, err := svc.Search(context.Background(), query, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
	assert.Zero(t, emb.calls, "empty queries must not reach the embedder")
}

func TestSearchDefaultK(t *testing.T) {
	st := newTestStore(t)
	ref := seedStore(t, st,
		testDoc(1, "01", []float32{1, 0, 0, 0}),
		testDoc(1, "02", []float32{0, 1, 0, 0}),
		testDoc(1, "03", []float32{0, 0, 1, 0}),
	)
	svc := NewSearchService(st, newFakeEmbedder(), ref, nil, 2, testLogger())

	results, err := svc.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEmbedderFailure(t *testing.T) {
	st := newTestStore(t)
	ref := seedStore(t, st, testDoc(1, "01", []float32{1, 0, 0, 0}))
	emb := newFakeEmbedder()
	emb.err = os.ErrDeadlineExceeded
	svc := NewSearchService(st, emb, ref, nil, 3, testLogger())

	_, err := svc.Search(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSearchEmptyIndex(t *testing.T) {
	st := newTestStore(t)
	svc := NewSearchService(st, newFakeEmbedder(), &index.Ref{}, nil, 3, testLogger())

	results, err := svc.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchSkipsStaleHits(t *testing.T) {
	st := newTestStore(t)
	ref := seedStore(t, st,
		testDoc(1, "01", []float32{1, 0, 0, 0}),
		testDoc(2, "01", []float32{0, 1, 0, 0}),
	)

	// Remove season 2 from the store after the index was built.
	require.NoError(t, os.Remove(filepath.Join(st.BaseDir(), "episodes", "season_2.json")))

	svc := NewSearchService(st, newFakeEmbedder(), ref, nil, 3, testLogger())
	results, err := svc.Search(context.Background(), "anything", 2)
	require.NoError(t, err, "stale hits are skipped, not an error")
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].SeasonNumber)
}
