package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RawCorpus is the external bulk-ingestion format: season key ("season_1" or
// the older zero-padded "season_01") mapping to zero-padded episode number
// mapping to a flat raw episode record.
type RawCorpus map[string]map[string]RawEpisode

// RawEpisode is one scraped episode record before validation. Field names
// follow the scraper output.
type RawEpisode struct {
	EpisodeNumber  string   `json:"episode_number"`
	EpisodeTitle   string   `json:"episode_title"`
	EpisodeAirdate string   `json:"episode_airdate"`
	EpisodeSummary []string `json:"episode_summary"`

	EpisodeSynopsis []string `json:"episode_synopsis,omitempty"`
	EpisodeQuotes   []string `json:"episode_quotes,omitempty"`
	EpisodeTrivia   []string `json:"episode_trivia,omitempty"`

	Director          *string  `json:"director,omitempty"`
	Writer            *string  `json:"writer,omitempty"`
	ProductionCode    *string  `json:"production_code,omitempty"`
	USViewersMillions *float64 `json:"us_viewers_millions,omitempty"`
	OriginalAirDate   *string  `json:"original_air_date,omitempty"`
	FilmingLocation   *string  `json:"filming_location,omitempty"`
	Network           *string  `json:"network,omitempty"`
	RunningTime       *string  `json:"running_time,omitempty"`
	Budget            *int     `json:"budget,omitempty"`

	CastMainCast            []string `json:"cast_main_cast,omitempty"`
	CastGuestStars          []string `json:"cast_guest_stars,omitempty"`
	CastRecurringCharacters []string `json:"cast_recurring_characters,omitempty"`
	CastFirstAppearances    []string `json:"cast_first_appearances,omitempty"`
	CastLastAppearances     []string `json:"cast_last_appearances,omitempty"`
	CharactersIntroduced    []string `json:"characters_introduced,omitempty"`
	CharactersMentioned     []string `json:"characters_mentioned,omitempty"`
	CharactersDied          []string `json:"characters_died,omitempty"`

	Continuity          []string `json:"continuity,omitempty"`
	CulturalReferences  []string `json:"cultural_references,omitempty"`
	Music               []string `json:"music,omitempty"`
	MythologyReferences []string `json:"mythology_references,omitempty"`
	Prophecies          []string `json:"prophecies,omitempty"`
	ArcConnections      []string `json:"arc_connections,omitempty"`

	Awards     []string `json:"awards,omitempty"`
	DeathCount *int     `json:"death_count,omitempty"`
	BodyCount  *int     `json:"body_count,omitempty"`

	// Precomputed embeddings, present when the scraper output was already
	// run through the embedding pipeline.
	SummaryEmbedding  []float32 `json:"summary_embedding,omitempty"`
	SynopsisEmbedding []float32 `json:"synopsis_embedding,omitempty"`
	QuotesEmbedding   []float32 `json:"quotes_embedding,omitempty"`
}

// ParseSeasonKey extracts the season number from a "season_N" corpus key.
// Zero-padded keys ("season_01") are accepted.
func ParseSeasonKey(key string) (int, error) {
	rest, ok := strings.CutPrefix(key, "season_")
	if !ok {
		return 0, fmt.Errorf("season key %q: expected \"season_N\"", key)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("season key %q: invalid season number", key)
	}
	return n, nil
}

// Document converts the raw record into an EpisodeDocument for the given
// season. No validation happens here; callers validate the result.
func (r RawEpisode) Document(season int) *EpisodeDocument {
	return &EpisodeDocument{
		SeasonNumber:  season,
		EpisodeNumber: r.EpisodeNumber,
		Title:         r.EpisodeTitle,
		Airdate:       r.EpisodeAirdate,
		Summary:       r.EpisodeSummary,
		Synopsis:      r.EpisodeSynopsis,
		Quotes:        r.EpisodeQuotes,
		Trivia:        r.EpisodeTrivia,

		Director:          r.Director,
		Writer:            r.Writer,
		ProductionCode:    r.ProductionCode,
		USViewersMillions: r.USViewersMillions,
		OriginalAirDate:   r.OriginalAirDate,
		FilmingLocation:   r.FilmingLocation,
		Network:           r.Network,
		RunningTime:       r.RunningTime,
		Budget:            r.Budget,

		MainCast:             r.CastMainCast,
		GuestStars:           r.CastGuestStars,
		RecurringCharacters:  r.CastRecurringCharacters,
		FirstAppearances:     r.CastFirstAppearances,
		LastAppearances:      r.CastLastAppearances,
		CharactersIntroduced: r.CharactersIntroduced,
		CharactersMentioned:  r.CharactersMentioned,
		CharactersDied:       r.CharactersDied,

		ContinuityNotes:     r.Continuity,
		CulturalReferences:  r.CulturalReferences,
		Music:               r.Music,
		MythologyReferences: r.MythologyReferences,
		Prophecies:          r.Prophecies,
		ArcConnections:      r.ArcConnections,

		Awards:     r.Awards,
		DeathCount: r.DeathCount,
		BodyCount:  r.BodyCount,

		SummaryEmbedding:  r.SummaryEmbedding,
		SynopsisEmbedding: r.SynopsisEmbedding,
		QuotesEmbedding:   r.QuotesEmbedding,
	}
}

// RawEntry pairs a raw episode with its parsed season number, in scan order.
type RawEntry struct {
	Season  int
	Episode string
	Raw     RawEpisode
}

// Flatten expands the corpus into entries ordered by season then episode
// number, so processing and error reports are deterministic.
func (c RawCorpus) Flatten() ([]RawEntry, error) {
	entries := make([]RawEntry, 0)
	for seasonKey, season := range c {
		n, err := ParseSeasonKey(seasonKey)
		if err != nil {
			return nil, err
		}
		for epNum, raw := range season {
			entries = append(entries, RawEntry{Season: n, Episode: epNum, Raw: raw})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Season != entries[j].Season {
			return entries[i].Season < entries[j].Season
		}
		return entries[i].Episode < entries[j].Episode
	})
	return entries, nil
}
