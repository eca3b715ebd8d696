package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// backupTimestampLayout matches backup directory names like
// backup_20231028_154500.
const backupTimestampLayout = "20060102_150405"

// Backup copies every content and embedding file into a fresh timestamped
// snapshot directory under the store root and returns its path. Existing
// backups are never removed or modified.
func (s *Store) Backup() (string, error) {
	name := "backup_" + time.Now().Format(backupTimestampLayout)
	backupDir := filepath.Join(s.baseDir, name)

	// A second backup within the same second gets a numeric suffix instead
	// of clobbering the first.
	for i := 1; ; i++ {
		if _, err := os.Stat(backupDir); os.IsNotExist(err) {
			break
		}
		backupDir = filepath.Join(s.baseDir, fmt.Sprintf("%s_%d", name, i))
	}

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create backup dir: %v", ErrStoreIO, err)
	}

	for _, dir := range []string{s.episodesDir, s.embeddingsDir} {
		matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return "", fmt.Errorf("%w: list %s: %v", ErrStoreIO, dir, err)
		}
		for _, src := range matches {
			dst := filepath.Join(backupDir, filepath.Base(src))
			if err := copyFile(src, dst); err != nil {
				return "", err
			}
		}
	}

	s.logger.Info("created backup", "dir", backupDir)
	return backupDir, nil
}

// Backups lists existing backup directories, oldest first.
func (s *Store) Backups() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.baseDir, "backup_*"))
	if err != nil {
		return nil, fmt.Errorf("%w: list backups: %v", ErrStoreIO, err)
	}
	dirs := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, m)
	}
	return dirs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrStoreIO, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrStoreIO, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: copy %s: %v", ErrStoreIO, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStoreIO, dst, err)
	}
	return nil
}
