package backup

import (
	"os"
	"path/filepath"

	"workflow-backup/internal/logging"
)

// RetentionResult reports one rotation pass.
type RetentionResult struct {
	SetsKept    int      `json:"sets_kept"`
	SetsDeleted int      `json:"sets_deleted"`
	Removed     []string `json:"removed"`
	Errors      []string `json:"errors,omitempty"`
}

// Rotate applies the fixed-count retention window. Rotation operates on set
// identity: the newest `retain` sets (anchored on the workflow export,
// ordered by modification time) survive with all their artifacts; every
// artifact keyed to any other timestamp is removed, which also sweeps
// orphaned dumps and manifests left behind by interrupted runs.
func Rotate(dir string, retain int, logger *logging.Logger) (*RetentionResult, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	sets, err := DiscoverSets(dir)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, retain)
	for i, set := range sets {
		if i >= retain {
			break
		}
		keep[set.Timestamp] = true
	}

	result := &RetentionResult{SetsKept: len(keep)}
	if len(sets) > retain {
		result.SetsDeleted = len(sets) - retain
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewStorageError("failed to read backup directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key := TimestampFromFile(entry.Name())
		if key == "" || keep[key] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, err.Error())
			logger.Errorf("Failed to remove expired artifact %s: %v", path, err)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.WithFields(map[string]interface{}{
			"operation": "rotation",
			"artifact":  entry.Name(),
			"timestamp": key,
		}).Info("Removed expired artifact")
	}

	return result, nil
}
