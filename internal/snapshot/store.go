package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/pkg/types"
)

// Store keeps one JSON index record per snapshot under baseDir/snapshots
// and the archives under baseDir/archives. Records are written through a
// temp file and renamed into place so readers never see a partial record.
type Store struct {
	baseDir string
}

// NewStore creates the snapshot directory layout under baseDir.
func NewStore(baseDir string) (*Store, error) {
	s := &Store{baseDir: baseDir}
	for _, dir := range []string{s.recordsDir(), s.ArchivesDir(), s.HistoryDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewStorageError("create", dir, err)
		}
	}
	return s, nil
}

// BaseDir returns the root of the snapshot storage tree.
func (s *Store) BaseDir() string { return s.baseDir }

// ArchivesDir returns the directory holding snapshot archives.
func (s *Store) ArchivesDir() string { return filepath.Join(s.baseDir, "archives") }

// HistoryDir returns the directory holding rollback history records.
func (s *Store) HistoryDir() string { return filepath.Join(s.baseDir, "history") }

func (s *Store) recordsDir() string { return filepath.Join(s.baseDir, "snapshots") }

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.recordsDir(), sanitizeID(id)+".json")
}

// Save writes the snapshot index record.
func (s *Store) Save(snapshot *types.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return errors.NewStorageError("save", s.recordPath(snapshot.ID), err)
	}
	if err := writeJSON(s.recordPath(snapshot.ID), snapshot); err != nil {
		return errors.NewStorageError("save", s.recordPath(snapshot.ID), err)
	}
	return nil
}

// Load reads one snapshot record by ID.
func (s *Store) Load(id string) (*types.Snapshot, error) {
	var snapshot types.Snapshot
	path := s.recordPath(id)
	if err := readJSON(path, &snapshot); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSnapshotNotFoundError(id)
		}
		return nil, errors.NewStorageError("load", path, err)
	}
	return &snapshot, nil
}

// List returns every readable snapshot record, newest first.
func (s *Store) List() ([]types.Snapshot, error) {
	entries, err := os.ReadDir(s.recordsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError("list", s.recordsDir(), err)
	}

	snapshots := make([]types.Snapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var snapshot types.Snapshot
		if err := readJSON(filepath.Join(s.recordsDir(), entry.Name()), &snapshot); err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// Delete removes the snapshot record and its archive.
func (s *Store) Delete(id string) error {
	snapshot, err := s.Load(id)
	if err != nil {
		return err
	}
	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("delete", s.recordPath(id), err)
	}
	if snapshot.ArchivePath != "" {
		if err := os.Remove(snapshot.ArchivePath); err != nil && !os.IsNotExist(err) {
			return errors.NewStorageError("delete", snapshot.ArchivePath, err)
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON returns the raw open error so callers can test os.IsNotExist.
func readJSON(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitizeID strips path separators so a record ID cannot escape the
// records directory.
func sanitizeID(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, "\\", "_")
	id = strings.ReplaceAll(id, "..", "_")
	return id
}
