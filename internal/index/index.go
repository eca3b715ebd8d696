// Package index provides an in-memory cosine-similarity index over episode
// embeddings. An Index is immutable once built; rebuilds produce a fresh
// Index that is swapped into a Ref, so in-flight queries always see a
// consistent snapshot.
package index

import (
	"log/slog"
	"math"
	"sort"
	"sync/atomic"

	"github.com/raphi011/episearch/internal/models"
)

// Entry is one (key, embedding) pair fed to Build.
type Entry struct {
	Key    models.EpisodeKey
	Vector []float32
}

// Hit is one scored result from Query.
type Hit struct {
	Key   models.EpisodeKey
	Score float64
}

// Index holds all indexed embeddings with precomputed norms. It is safe for
// concurrent readers because it is never mutated after Build.
type Index struct {
	keys      []models.EpisodeKey
	vectors   [][]float32
	norms     []float64
	dimension int
}

// Build constructs an index from entries in their given order. Entries with
// a zero-norm or wrong-dimension vector are excluded and logged; they are
// not an error. The entry order defines the tie-break order for equal
// scores in Query.
func Build(dimension int, entries []Entry, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}

	ix := &Index{dimension: dimension}
	for _, e := range entries {
		if len(e.Vector) != dimension {
			logger.Warn("excluding entry with wrong dimension",
				"key", e.Key.String(), "got", len(e.Vector), "want", dimension)
			continue
		}
		n := norm(e.Vector)
		if n == 0 {
			logger.Warn("excluding entry with zero-norm embedding", "key", e.Key.String())
			continue
		}
		ix.keys = append(ix.keys, e.Key)
		ix.vectors = append(ix.vectors, e.Vector)
		ix.norms = append(ix.norms, n)
	}

	logger.Info("built similarity index", "indexed", len(ix.keys), "dimension", dimension)
	return ix
}

// Len returns the number of indexed embeddings.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.keys)
}

// Dimension returns the index's embedding dimension.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Query returns the top k entries by descending cosine similarity to vec.
// Ties keep build order (first-seen wins). k larger than the corpus returns
// every entry, sorted. A nil index, empty index, k < 1, or a query vector
// of the wrong dimension or zero norm yields no hits.
func (ix *Index) Query(vec []float32, k int) []Hit {
	if ix.Len() == 0 || k < 1 || len(vec) != ix.dimension {
		return nil
	}
	qn := norm(vec)
	if qn == 0 {
		return nil
	}

	hits := make([]Hit, len(ix.keys))
	for i := range ix.keys {
		hits[i] = Hit{
			Key:   ix.keys[i],
			Score: dot(vec, ix.vectors[i]) / (qn * ix.norms[i]),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// Ref holds the current index behind an atomic pointer. Readers Load a
// snapshot; a rebuild Stores the replacement after the build completes, so
// queries already running finish against the old index.
type Ref struct {
	ptr atomic.Pointer[Index]
}

// Load returns the current index, or nil before the first build.
func (r *Ref) Load() *Index {
	return r.ptr.Load()
}

// Store atomically replaces the current index.
func (r *Ref) Store(ix *Index) {
	r.ptr.Store(ix)
}
