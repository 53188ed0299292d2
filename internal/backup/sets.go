package backup

import (
	"os"
	"path/filepath"
	"sort"
)

// DiscoverSets scans the flat backup directory and resolves backup sets.
// Discovery is anchored on the workflow export: a timestamp without one is
// not a set, even if a dump or manifest with that key exists.
func DiscoverSets(dir string) ([]Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewStorageError("failed to read backup directory", err)
	}

	sets := make([]Set, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		key := TimestampFromFile(name)
		if key == "" || name != WorkflowFileName(key) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, NewStorageError("failed to stat "+name, err)
		}

		set := Set{
			Timestamp:    key,
			WorkflowFile: filepath.Join(dir, name),
			CreatedAt:    info.ModTime(),
		}
		for _, algorithm := range []Algorithm{AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd} {
			candidate := filepath.Join(dir, DatabaseFileName(key, algorithm))
			if _, err := os.Stat(candidate); err == nil {
				set.DatabaseFile = candidate
				break
			}
		}
		if candidate := filepath.Join(dir, ManifestFileName(key)); fileExists(candidate) {
			set.ManifestFile = candidate
		}
		sets = append(sets, set)
	}

	// Newest first, by file modification time per the rotation contract.
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].CreatedAt.After(sets[j].CreatedAt)
	})
	return sets, nil
}

// FindSet resolves one backup set by timestamp key.
func FindSet(dir, key string) (*Set, error) {
	if _, err := ParseTimestamp(key); err != nil {
		return nil, err
	}
	sets, err := DiscoverSets(dir)
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if sets[i].Timestamp == key {
			return &sets[i], nil
		}
	}
	return nil, NewNotFoundError("no backup set with timestamp "+key, nil)
}

// DirUsage sums the sizes of all artifacts in the backup directory.
func DirUsage(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, NewStorageError("failed to read backup directory", err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
