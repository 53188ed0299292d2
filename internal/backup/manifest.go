package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

// Unavailable is the placeholder recorded when a manifest probe fails.
const Unavailable = "unavailable"

// ArtifactInfo describes one artifact in the manifest.
type ArtifactInfo struct {
	Kind   ArtifactKind `yaml:"kind"`
	File   string       `yaml:"file"`
	Size   int64        `yaml:"size"`
	SHA256 string       `yaml:"sha256"`
}

// Manifest is the best-effort report accompanying a backup set. Every field
// beyond the identifiers degrades to a placeholder on probe failure.
type Manifest struct {
	RunID          string         `yaml:"run_id"`
	Timestamp      string         `yaml:"timestamp"`
	CreatedAt      time.Time      `yaml:"created_at"`
	ToolVersion    string         `yaml:"tool_version"`
	RuntimeVersion string         `yaml:"runtime_version"`
	EngineVersion  string         `yaml:"engine_version"`
	DBVersion      string         `yaml:"db_version"`
	AppUptime      string         `yaml:"app_uptime"`
	DBUptime       string         `yaml:"db_uptime"`
	RecordCount    int            `yaml:"record_count"`
	DumpLines      int            `yaml:"dump_lines"`
	Artifacts      []ArtifactInfo `yaml:"artifacts"`
	DiskUsage      string         `yaml:"disk_usage"`
	LargestTables  []TableStat    `yaml:"largest_tables,omitempty"`
	Notes          []string       `yaml:"notes,omitempty"`
}

// ManifestBuilder gathers the manifest's probes. It never returns an error
// from Build: individual probe failures are recorded as placeholders and
// noted, because the manifest must never abort a backup.
type ManifestBuilder struct {
	cfg     *config.Config
	runtime runtime.Runtime
	stats   TableStatsCollector
	logger  *logging.Logger

	toolVersion string
}

// NewManifestBuilder creates a manifest builder.
func NewManifestBuilder(cfg *config.Config, rt runtime.Runtime, stats TableStatsCollector, toolVersion string, logger *logging.Logger) *ManifestBuilder {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &ManifestBuilder{cfg: cfg, runtime: rt, stats: stats, logger: logger, toolVersion: toolVersion}
}

// Build assembles the manifest for a freshly staged set.
func (b *ManifestBuilder) Build(ctx context.Context, runID, timestamp string, export *ExportResult, dump *DumpResult) *Manifest {
	m := &Manifest{
		RunID:       runID,
		Timestamp:   timestamp,
		CreatedAt:   time.Now().UTC(),
		ToolVersion: b.toolVersion,
		RecordCount: export.RecordCount,
		DumpLines:   dump.LineCount,
	}

	m.RuntimeVersion = b.probe(m, "runtime version", func() (string, error) {
		return b.runtime.Version(ctx)
	})
	exporter := NewWorkflowExporter(b.cfg, b.runtime, b.logger)
	m.EngineVersion = b.probe(m, "engine version", func() (string, error) {
		return exporter.EngineVersion(ctx)
	})
	dumper := NewDatabaseDumper(b.cfg, b.runtime, nil, b.logger)
	m.DBVersion = b.probe(m, "database version", func() (string, error) {
		return dumper.DatabaseVersion(ctx)
	})
	m.AppUptime = b.probe(m, "app container status", func() (string, error) {
		return b.runtime.Status(ctx, b.cfg.App.Container)
	})
	m.DBUptime = b.probe(m, "database container status", func() (string, error) {
		return b.runtime.Status(ctx, b.cfg.Database.Container)
	})

	for _, artifact := range []struct {
		kind ArtifactKind
		path string
	}{
		{ArtifactWorkflows, export.Path},
		{ArtifactDatabase, dump.Path},
	} {
		kind, path := artifact.kind, artifact.path
		info := ArtifactInfo{Kind: kind, File: path}
		if st, err := os.Stat(path); err == nil {
			info.Size = st.Size()
		}
		sum, err := FileChecksum(path)
		if err != nil {
			sum = Unavailable
			m.Notes = append(m.Notes, "checksum of "+string(kind)+" failed: "+err.Error())
		}
		info.SHA256 = sum
		m.Artifacts = append(m.Artifacts, info)
	}

	m.DiskUsage = b.probe(m, "disk usage", func() (string, error) {
		total, err := DirUsage(b.cfg.Backup.Dir)
		if err != nil {
			return "", err
		}
		return display.HumanSize(total), nil
	})

	if b.stats != nil {
		tables, err := b.stats.LargestTables(ctx, b.cfg.Backup.TopTables)
		if err != nil {
			m.Notes = append(m.Notes, "table statistics failed: "+err.Error())
			b.logger.Warnf("Manifest probe degraded (table statistics): %v", err)
		} else {
			m.LargestTables = tables
		}
	}

	return m
}

// probe runs one best-effort sub-query, degrading to a placeholder.
func (b *ManifestBuilder) probe(m *Manifest, what string, fn func() (string, error)) string {
	value, err := fn()
	if err != nil {
		m.Notes = append(m.Notes, what+" failed: "+err.Error())
		b.logger.Warnf("Manifest probe degraded (%s): %v", what, err)
		return Unavailable
	}
	return value
}

// Write serializes the manifest to path as YAML.
func (m *Manifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return NewStorageError("failed to marshal manifest", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewStorageError("failed to write manifest", err)
	}
	return nil
}

// ReadManifest loads and parses a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewStorageError("failed to read manifest", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, NewValidationError("manifest is not valid YAML", err)
	}
	return &m, nil
}

// FileChecksum returns the hex SHA-256 of a file's contents.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
