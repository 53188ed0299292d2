package backup

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactKind identifies one of the files making up a backup set.
type ArtifactKind string

const (
	ArtifactWorkflows ArtifactKind = "workflows"
	ArtifactDatabase  ArtifactKind = "database"
	ArtifactManifest  ArtifactKind = "manifest"
)

// File naming scheme of the flat backup directory. The workflow export is
// the set anchor: discovery and rotation are driven by it.
const (
	WorkflowPrefix = "workflows_"
	DatabasePrefix = "database_"
	ManifestPrefix = "manifest_"

	WorkflowExt = ".json"
	ManifestExt = ".yaml"

	// TimestampLayout is the key correlating the files of one backup set.
	TimestampLayout = "20060102_150405"
)

// WorkflowRecord is a single workflow definition as exported by the engine
// CLI. Only the identifier is required; the remaining fields are carried
// through when present.
type WorkflowRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Active    bool            `json:"active,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Nodes     json.RawMessage `json:"nodes,omitempty"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// Set describes one backup set resolved from the backup directory.
type Set struct {
	Timestamp    string    `json:"timestamp"`
	WorkflowFile string    `json:"workflow_file"`
	DatabaseFile string    `json:"database_file"`
	ManifestFile string    `json:"manifest_file,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Complete reports whether both required artifacts are present. The
// manifest is best-effort and does not affect completeness.
func (s *Set) Complete() bool {
	return s.WorkflowFile != "" && s.DatabaseFile != ""
}

// ArtifactFiles returns the paths of every artifact present in the set.
func (s *Set) ArtifactFiles() []string {
	files := make([]string, 0, 3)
	for _, f := range []string{s.WorkflowFile, s.DatabaseFile, s.ManifestFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// NewTimestamp returns a timestamp key for a set created now.
func NewTimestamp(now time.Time) string {
	return now.Format(TimestampLayout)
}

// ParseTimestamp validates a timestamp key.
func ParseTimestamp(key string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, key)
	if err != nil {
		return time.Time{}, NewValidationError(fmt.Sprintf("invalid timestamp key %q", key), err)
	}
	return ts, nil
}

// WorkflowFileName returns the workflow export file name for a key.
func WorkflowFileName(key string) string {
	return WorkflowPrefix + key + WorkflowExt
}

// DatabaseFileName returns the compressed dump file name for a key. The
// extension follows the configured compression algorithm; gzip is the
// default layout (`database_<TS>.sql.gz`).
func DatabaseFileName(key string, algorithm Algorithm) string {
	return DatabasePrefix + key + ".sql" + algorithm.Ext()
}

// ManifestFileName returns the manifest file name for a key.
func ManifestFileName(key string) string {
	return ManifestPrefix + key + ManifestExt
}

// TimestampFromFile derives the timestamp key from an artifact file name,
// or "" if the name does not follow the naming scheme.
func TimestampFromFile(path string) string {
	name := filepath.Base(path)

	var key string
	switch {
	case strings.HasPrefix(name, WorkflowPrefix) && strings.HasSuffix(name, WorkflowExt):
		key = strings.TrimSuffix(strings.TrimPrefix(name, WorkflowPrefix), WorkflowExt)
	case strings.HasPrefix(name, ManifestPrefix) && strings.HasSuffix(name, ManifestExt):
		key = strings.TrimSuffix(strings.TrimPrefix(name, ManifestPrefix), ManifestExt)
	case strings.HasPrefix(name, DatabasePrefix):
		rest := strings.TrimPrefix(name, DatabasePrefix)
		i := strings.Index(rest, ".sql")
		if i < 0 {
			return ""
		}
		if _, err := AlgorithmForExt(rest[i+len(".sql"):]); err != nil {
			return ""
		}
		key = rest[:i]
	default:
		return ""
	}

	if _, err := ParseTimestamp(key); err != nil {
		return ""
	}
	return key
}

// DecodeWorkflows parses a workflow export and validates its structure.
// The export must be a JSON array of objects each carrying a non-empty
// identifier. Uniqueness of identifiers is not enforced here.
func DecodeWorkflows(data []byte) ([]WorkflowRecord, error) {
	var records []WorkflowRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, NewValidationError("workflow export is not a JSON array of records", err)
	}
	for i, r := range records {
		if r.ID == "" {
			return nil, NewValidationError(fmt.Sprintf("workflow record %d has no id", i), nil)
		}
	}
	return records, nil
}

// CountRecords returns the number of records in a workflow export,
// failing on malformed input or an empty identifier.
func CountRecords(data []byte) (int, error) {
	records, err := DecodeWorkflows(data)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
