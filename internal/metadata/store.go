package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

const (
	recordExt = ".json"
	fileMode  = 0o600
	dirMode   = 0o700
	tmpSuffix = ".tmp"
)

// ErrInvalidRecord is returned when a record file does not match the
// record schema.
var ErrInvalidRecord = errors.New("invalid installation record")

// Store reads and writes installation records in a directory.
type Store struct {
	dir    string
	logger logging.Logger
}

// NewStore creates a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, logger logging.Logger) *Store {
	return &Store{dir: dir, logger: logging.OrNop(logger)}
}

// Dir returns the metadata directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the record file for id.
func (s *Store) Path(id release.Identity) string {
	return filepath.Join(s.dir, id.Key()+recordExt)
}

// Read returns the record for id. A missing record yields an empty Record
// and no error; check Exists.
func (s *Store) Read(id release.Identity) (*Record, error) {
	return s.readFile(s.Path(id))
}

func (s *Store) readFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// Write stores rec atomically, replacing any previous record for the same
// identity.
func (s *Store) Write(rec *Record) error {
	id, err := rec.Identity()
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := Validate(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	finalPath := s.Path(id)
	tmpPath := finalPath + tmpSuffix

	if err := os.WriteFile(tmpPath, data, fileMode); err != nil {
		return fmt.Errorf("write temporary record file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename record file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(s.dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	s.logger.Debug("wrote record", "path", finalPath)
	return nil
}

// Delete removes the record for id. Deleting a missing record is not an
// error.
func (s *Store) Delete(id release.Identity) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// List returns every valid record sorted by repository identity. Files that
// fail validation are skipped with a warning.
func (s *Store) List() ([]*Record, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+recordExt))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var records []*Record
	for _, path := range paths {
		rec, err := s.readFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "path", path, "error", err)
			continue
		}
		if !rec.Exists() {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return strings.ToLower(records[i].Meta.RepoID) < strings.ToLower(records[j].Meta.RepoID)
	})
	return records, nil
}
