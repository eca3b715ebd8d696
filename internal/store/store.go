package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/raphi011/episearch/internal/models"
)

const (
	episodesDirName   = "episodes"
	embeddingsDirName = "embeddings"
)

// Store is a file-backed document store. Content and embeddings live in
// separate per-season partitions:
//
//	<base>/episodes/season_N.json             {"01": {content...}, ...}
//	<base>/embeddings/season_N_embeddings.json {"01": {embeddings...}, ...}
//
// Writers must be serialized by the caller (one ingestion at a time);
// readers may run concurrently with a writer but can observe a transient
// content/embedding mismatch during an in-progress write.
type Store struct {
	baseDir       string
	episodesDir   string
	embeddingsDir string
	dimension     int
	logger        *slog.Logger
}

// New creates a store rooted at baseDir, creating the partition directories
// if needed. dimension is the corpus-wide embedding dimension enforced on
// every write.
func New(baseDir string, dimension int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		baseDir:       baseDir,
		episodesDir:   filepath.Join(baseDir, episodesDirName),
		embeddingsDir: filepath.Join(baseDir, embeddingsDirName),
		dimension:     dimension,
		logger:        logger,
	}
	for _, dir := range []string{s.episodesDir, s.embeddingsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrStoreIO, dir, err)
		}
	}
	return s, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Dimension returns the configured embedding dimension.
func (s *Store) Dimension() int {
	return s.dimension
}

func (s *Store) seasonFile(season int) string {
	return filepath.Join(s.episodesDir, fmt.Sprintf("season_%d.json", season))
}

func (s *Store) embeddingsFile(season int) string {
	return filepath.Join(s.embeddingsDir, fmt.Sprintf("season_%d_embeddings.json", season))
}

// readJSONFile unmarshals a partition file into out. Returns os.ErrNotExist
// for a missing file and a wrapped ErrStoreIO for anything else.
func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrStoreIO, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrStoreIO, path, err)
	}
	return nil
}

// writeJSONFile writes a partition atomically: marshal to a temp file in the
// same directory, then rename over the target.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrStoreIO, path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrStoreIO, path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrStoreIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrStoreIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrStoreIO, path, err)
	}
	return nil
}

// SaveEpisode validates the document and upserts it under
// (season_number, episode_number), writing the content partition first and
// the embedding partition second. Each partition write is atomic
// (temp-file-then-rename); a crash between the two leaves content without
// embeddings, which callers must treat as "needs re-embedding".
func (s *Store) SaveEpisode(doc *models.EpisodeDocument) error {
	if err := doc.ValidateStored(s.dimension); err != nil {
		return err
	}

	content, emb := doc.Split()

	seasonData := map[string]models.EpisodeDocument{}
	if err := readJSONFile(s.seasonFile(doc.SeasonNumber), &seasonData); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	seasonData[doc.EpisodeNumber] = content
	if err := writeJSONFile(s.seasonFile(doc.SeasonNumber), seasonData); err != nil {
		return err
	}

	embData := map[string]models.EpisodeEmbeddings{}
	if err := readJSONFile(s.embeddingsFile(doc.SeasonNumber), &embData); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	embData[doc.EpisodeNumber] = emb
	return writeJSONFile(s.embeddingsFile(doc.SeasonNumber), embData)
}

// GetEpisode joins the content and embedding partitions for the key.
// Returns ErrNotFound when the season or episode is absent.
func (s *Store) GetEpisode(season int, episode string) (*models.EpisodeDocument, error) {
	seasonData := map[string]models.EpisodeDocument{}
	err := readJSONFile(s.seasonFile(season), &seasonData)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	content, ok := seasonData[episode]
	if !ok {
		return nil, ErrNotFound
	}

	embData := map[string]models.EpisodeEmbeddings{}
	err = readJSONFile(s.embeddingsFile(season), &embData)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// Content exists but the embedding partition is unreadable.
		// Surface the content rather than failing the lookup.
		s.logger.Warn("embedding partition unreadable, returning content only",
			"season", season, "episode", episode, "error", err)
		return &content, nil
	}

	return models.Join(content, embData[episode]), nil
}

// GetSeason returns the content partition for a season, keyed by episode
// number. No embeddings are included. Returns ErrNotFound for an absent
// season.
func (s *Store) GetSeason(season int) (map[string]models.EpisodeDocument, error) {
	seasonData := map[string]models.EpisodeDocument{}
	err := readJSONFile(s.seasonFile(season), &seasonData)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return seasonData, nil
}

// Seasons lists the season numbers present in the content partition,
// ascending.
func (s *Store) Seasons() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(s.episodesDir, "season_*.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: list seasons: %v", ErrStoreIO, err)
	}
	seasons := make([]int, 0, len(matches))
	for _, m := range matches {
		var n int
		if _, err := fmt.Sscanf(filepath.Base(m), "season_%d.json", &n); err != nil {
			s.logger.Warn("skipping unrecognized file in content partition", "file", m)
			continue
		}
		seasons = append(seasons, n)
	}
	sort.Ints(seasons)
	return seasons, nil
}

// ForEach scans the full corpus in season order, episodes sorted by number,
// yielding each document joined with its embeddings. The order is stable
// within a single call; no document is skipped or duplicated. Unreadable
// season files abort the scan.
func (s *Store) ForEach(fn func(doc *models.EpisodeDocument) error) error {
	seasons, err := s.Seasons()
	if err != nil {
		return err
	}

	for _, season := range seasons {
		seasonData := map[string]models.EpisodeDocument{}
		if err := readJSONFile(s.seasonFile(season), &seasonData); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}

		embData := map[string]models.EpisodeEmbeddings{}
		if err := readJSONFile(s.embeddingsFile(season), &embData); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		numbers := make([]string, 0, len(seasonData))
		for n := range seasonData {
			numbers = append(numbers, n)
		}
		sort.Strings(numbers)

		for _, n := range numbers {
			doc := models.Join(seasonData[n], embData[n])
			if err := fn(doc); err != nil {
				return err
			}
		}
	}
	return nil
}

// CountDocuments returns the number of episodes in the content partition.
func (s *Store) CountDocuments() (int, error) {
	count := 0
	err := s.ForEach(func(*models.EpisodeDocument) error {
		count++
		return nil
	})
	return count, err
}

// IsEmpty reports whether the content partition holds no season files.
func (s *Store) IsEmpty() (bool, error) {
	seasons, err := s.Seasons()
	if err != nil {
		return false, err
	}
	return len(seasons) == 0, nil
}

// ImportBulk writes a full validated corpus. The corpus-wide numbering
// invariants are checked before any write; a violation aborts the import
// with nothing written. If the store already holds data, a backup is taken
// before the first overwrite.
func (s *Store) ImportBulk(docs []*models.EpisodeDocument) error {
	for _, doc := range docs {
		if err := doc.ValidateStored(s.dimension); err != nil {
			return err
		}
	}
	if err := models.ValidateContiguity(docs); err != nil {
		return err
	}

	empty, err := s.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		backupDir, err := s.Backup()
		if err != nil {
			return err
		}
		s.logger.Info("backed up store before import", "backup", backupDir)
	}

	for _, doc := range docs {
		if err := s.SaveEpisode(doc); err != nil {
			return fmt.Errorf("import %s: %w", doc.Key(), err)
		}
	}
	s.logger.Info("bulk import complete", "documents", len(docs))
	return nil
}
