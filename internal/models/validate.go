package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// AirdateLayout is the accepted airdate format, e.g. "March 10, 1997".
const AirdateLayout = "January 2, 2006"

// MinParagraphLen is the minimum length of a summary paragraph.
const MinParagraphLen = 10

var episodeNumberRe = regexp.MustCompile(`^\d{2}$`)

// ValidationError describes malformed or invariant-violating episode data.
// The affected unit (a single episode for field checks, the whole corpus for
// numbering checks) is rejected entirely.
type ValidationError struct {
	Season  int
	Episode string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Episode == "" {
		return fmt.Sprintf("season %d: %s: %s", e.Season, e.Field, e.Reason)
	}
	return fmt.Sprintf("s%02de%s: %s: %s", e.Season, e.Episode, e.Field, e.Reason)
}

func (d *EpisodeDocument) invalid(field, reason string) *ValidationError {
	return &ValidationError{Season: d.SeasonNumber, Episode: d.EpisodeNumber, Field: field, Reason: reason}
}

// Validate checks all per-episode field invariants. dimension is the
// corpus-wide embedding dimension; every present embedding must have
// exactly that length.
func (d *EpisodeDocument) Validate(dimension int) error {
	if d.SeasonNumber < 1 {
		return d.invalid("season_number", fmt.Sprintf("must be positive, got %d", d.SeasonNumber))
	}
	if !episodeNumberRe.MatchString(d.EpisodeNumber) {
		return d.invalid("episode_number", fmt.Sprintf("must be two-digit zero-padded, got %q", d.EpisodeNumber))
	}
	if d.Title == "" {
		return d.invalid("title", "must not be empty")
	}
	if _, err := time.Parse(AirdateLayout, d.Airdate); err != nil {
		return d.invalid("airdate", fmt.Sprintf("%q does not match %q", d.Airdate, AirdateLayout))
	}
	if len(d.Summary) == 0 {
		return d.invalid("summary", "must not be empty")
	}
	for i, p := range d.Summary {
		if len(p) < MinParagraphLen {
			return d.invalid("summary", fmt.Sprintf("paragraph %d shorter than %d characters", i, MinParagraphLen))
		}
	}
	for _, emb := range []struct {
		field string
		vec   []float32
	}{
		{"summary_embedding", d.SummaryEmbedding},
		{"synopsis_embedding", d.SynopsisEmbedding},
		{"quotes_embedding", d.QuotesEmbedding},
	} {
		if emb.vec != nil && len(emb.vec) != dimension {
			return d.invalid(emb.field, fmt.Sprintf("expected dimension %d, got %d", dimension, len(emb.vec)))
		}
	}
	return nil
}

// ValidateStored additionally requires the ranking embedding to be present.
// Used at the store boundary, where documents without a summary embedding
// cannot be indexed.
func (d *EpisodeDocument) ValidateStored(dimension int) error {
	if err := d.Validate(dimension); err != nil {
		return err
	}
	if len(d.SummaryEmbedding) == 0 {
		return d.invalid("summary_embedding", "must be present")
	}
	return nil
}

// ValidateContiguity checks the corpus-wide numbering invariants: season
// numbers contiguous from 1, and episode numbers contiguous from 1 within
// each season. Violations reject the whole corpus.
func ValidateContiguity(docs []*EpisodeDocument) error {
	bySeason := make(map[int][]int)
	for _, d := range docs {
		n, err := strconv.Atoi(d.EpisodeNumber)
		if err != nil {
			return d.invalid("episode_number", fmt.Sprintf("not numeric: %q", d.EpisodeNumber))
		}
		bySeason[d.SeasonNumber] = append(bySeason[d.SeasonNumber], n)
	}

	seasons := make([]int, 0, len(bySeason))
	for s := range bySeason {
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)
	for i, s := range seasons {
		if s != i+1 {
			return &ValidationError{
				Season: s,
				Field:  "season_number",
				Reason: fmt.Sprintf("seasons must be contiguous from 1, missing season %d", i+1),
			}
		}
	}

	for _, s := range seasons {
		nums := bySeason[s]
		sort.Ints(nums)
		for i, n := range nums {
			if n != i+1 {
				want := fmt.Sprintf("%02d", i+1)
				return &ValidationError{
					Season:  s,
					Field:   "episode_number",
					Reason:  fmt.Sprintf("episodes must be contiguous from 01, gap or duplicate at %s", want),
					Episode: want,
				}
			}
		}
	}
	return nil
}
