// Package models defines the episode document schema and its validation rules.
package models

import "fmt"

// EpisodeKey identifies an episode within the corpus.
type EpisodeKey struct {
	Season  int    `json:"season"`
	Episode string `json:"episode"` // two-digit zero-padded, e.g. "07"
}

// String returns a compact key representation, e.g. "s03e07".
func (k EpisodeKey) String() string {
	return fmt.Sprintf("s%02de%s", k.Season, k.Episode)
}

// EpisodeDocument is one episode record. Content fields and embedding fields
// are persisted in separate partitions but always joined by
// (SeasonNumber, EpisodeNumber).
type EpisodeDocument struct {
	// Identity
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber string `json:"episode_number"`

	// Required content
	Title   string   `json:"title"`
	Airdate string   `json:"airdate"` // "January 2, 2006" layout
	Summary []string `json:"summary"`

	// Optional content
	Synopsis []string `json:"synopsis,omitempty"`
	Quotes   []string `json:"quotes,omitempty"`
	Trivia   []string `json:"trivia,omitempty"`

	// Production info
	Director           *string  `json:"director,omitempty"`
	Writer             *string  `json:"writer,omitempty"`
	ProductionCode     *string  `json:"production_code,omitempty"`
	USViewersMillions  *float64 `json:"us_viewers_millions,omitempty"`
	OriginalAirDate    *string  `json:"original_air_date,omitempty"`
	FilmingLocation    *string  `json:"filming_location,omitempty"`
	Network            *string  `json:"network,omitempty"`
	RunningTime        *string  `json:"running_time,omitempty"`
	Budget             *int     `json:"budget,omitempty"`

	// Cast & characters
	MainCast             []string `json:"main_cast,omitempty"`
	GuestStars           []string `json:"guest_stars,omitempty"`
	RecurringCharacters  []string `json:"recurring_characters,omitempty"`
	FirstAppearances     []string `json:"first_appearances,omitempty"`
	LastAppearances      []string `json:"last_appearances,omitempty"`
	CharactersIntroduced []string `json:"characters_introduced,omitempty"`
	CharactersMentioned  []string `json:"characters_mentioned,omitempty"`
	CharactersDied       []string `json:"characters_died,omitempty"`

	// Story elements
	ContinuityNotes     []string `json:"continuity_notes,omitempty"`
	CulturalReferences  []string `json:"cultural_references,omitempty"`
	Music               []string `json:"music,omitempty"`
	MythologyReferences []string `json:"mythology_references,omitempty"`
	Prophecies          []string `json:"prophecies,omitempty"`
	ArcConnections      []string `json:"arc_connections,omitempty"`

	// Awards and reception
	Awards     []string `json:"awards,omitempty"`
	DeathCount *int     `json:"death_count,omitempty"`
	BodyCount  *int     `json:"body_count,omitempty"`

	// Embeddings. SummaryEmbedding is required and drives ranking; the
	// others are retrievable payload only.
	SummaryEmbedding  []float32 `json:"summary_embedding,omitempty"`
	SynopsisEmbedding []float32 `json:"synopsis_embedding,omitempty"`
	QuotesEmbedding   []float32 `json:"quotes_embedding,omitempty"`
}

// Key returns the document's identity key.
func (d *EpisodeDocument) Key() EpisodeKey {
	return EpisodeKey{Season: d.SeasonNumber, Episode: d.EpisodeNumber}
}

// EpisodeEmbeddings is the embedding partition payload for one episode.
type EpisodeEmbeddings struct {
	SummaryEmbedding  []float32 `json:"summary_embedding,omitempty"`
	SynopsisEmbedding []float32 `json:"synopsis_embedding,omitempty"`
	QuotesEmbedding   []float32 `json:"quotes_embedding,omitempty"`
}

// Empty reports whether no embedding field is present.
func (e EpisodeEmbeddings) Empty() bool {
	return len(e.SummaryEmbedding) == 0 && len(e.SynopsisEmbedding) == 0 && len(e.QuotesEmbedding) == 0
}

// Split separates the document into its content part (embeddings cleared)
// and its embedding part. The returned content is a copy; the receiver is
// not modified.
func (d *EpisodeDocument) Split() (EpisodeDocument, EpisodeEmbeddings) {
	content := *d
	emb := EpisodeEmbeddings{
		SummaryEmbedding:  d.SummaryEmbedding,
		SynopsisEmbedding: d.SynopsisEmbedding,
		QuotesEmbedding:   d.QuotesEmbedding,
	}
	content.SummaryEmbedding = nil
	content.SynopsisEmbedding = nil
	content.QuotesEmbedding = nil
	return content, emb
}

// Join recombines a content record with its embedding partition payload.
func Join(content EpisodeDocument, emb EpisodeEmbeddings) *EpisodeDocument {
	content.SummaryEmbedding = emb.SummaryEmbedding
	content.SynopsisEmbedding = emb.SynopsisEmbedding
	content.QuotesEmbedding = emb.QuotesEmbedding
	return &content
}

// SearchResult is one ranked hit returned by the retrieval engine.
// Score is cosine similarity in [-1, 1]; higher is better.
type SearchResult struct {
	SeasonNumber  int              `json:"season_number"`
	EpisodeNumber string           `json:"episode_number"`
	Episode       *EpisodeDocument `json:"episode"`
	Score         float64          `json:"score"`
}
