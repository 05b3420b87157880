package rollback

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

// History persists one JSON record per rollback execution.
type History struct {
	dir string
}

func NewHistory(dir string) (*History, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStorageError("create", dir, err)
	}
	return &History{dir: dir}, nil
}

func (h *History) path(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, "\\", "_")
	return filepath.Join(h.dir, id+".json")
}

// Record writes the result, replacing any earlier record for the same ID.
func (h *History) Record(result *types.RollbackResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.NewStorageError("save", h.path(result.RollbackID), err)
	}
	path := h.path(result.RollbackID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.NewStorageError("save", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.NewStorageError("save", path, err)
	}
	return nil
}

// Get reads one rollback record by ID.
func (h *History) Get(id string) (*types.RollbackResult, error) {
	data, err := os.ReadFile(h.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStorageError("load", h.path(id), fmt.Errorf("rollback %s not found", id))
		}
		return nil, errors.NewStorageError("load", h.path(id), err)
	}
	var result types.RollbackResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewStorageError("load", h.path(id), err)
	}
	return &result, nil
}

// List returns every readable rollback record, newest first.
func (h *History) List() ([]types.RollbackResult, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError("list", h.dir, err)
	}

	results := make([]types.RollbackResult, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(h.dir, entry.Name()))
		if err != nil {
			continue
		}
		var result types.RollbackResult
		if err := json.Unmarshal(data, &result); err != nil {
			continue
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartTime.After(results[j].StartTime)
	})
	return results, nil
}
