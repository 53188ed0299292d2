package backup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

// Options adjusts a single backup run.
type Options struct {
	// DryRun runs pre-flight and prints planned actions without touching
	// live data or the backup directory.
	DryRun bool
	// Retain overrides the configured retention count when positive.
	Retain int
	// Timestamp overrides the generated timestamp key (tests only).
	Timestamp string
}

// Result reports one completed backup run.
type Result struct {
	RunID               string
	Set                 Set
	Export              *ExportResult
	Dump                *DumpResult
	Rotation            *RetentionResult
	ReplicationWarnings []string
	Duration            time.Duration
}

// Manager orchestrates the backup pipeline: pre-flight, staging, workflow
// export, database dump, manifest, atomic publish, rotation, replication,
// and the final summary.
//
// The whole set is staged in a private temp directory and validated before
// anything reaches the backup directory; the workflow export, being the
// set anchor, is published last so a set only becomes discoverable once
// every artifact is in place. The staging directory is removed on normal
// exit, error exit, and interrupt (callers cancel the context on signals).
type Manager struct {
	cfg         *config.Config
	runtime     runtime.Runtime
	logger      *logging.Logger
	display     *display.Display
	compressor  *Compressor
	stats       TableStatsCollector
	replication *ReplicationService
	toolVersion string

	now func() time.Time
}

// NewManager creates a backup manager. stats and replication may be nil.
func NewManager(cfg *config.Config, rt runtime.Runtime, logger *logging.Logger, disp *display.Display, stats TableStatsCollector, replication *ReplicationService, toolVersion string) *Manager {
	if logger == nil {
		logger = logging.NewDefault()
	}
	if disp == nil {
		disp = display.New(false, true)
	}
	return &Manager{
		cfg:         cfg,
		runtime:     rt,
		logger:      logger,
		display:     disp,
		compressor:  NewCompressor(Algorithm(cfg.Backup.Compression.Algorithm), cfg.Backup.Compression.Level),
		stats:       stats,
		replication: replication,
		toolVersion: toolVersion,
		now:         time.Now,
	}
}

// Run executes one backup. Any pre-flight or artifact-production failure
// aborts the run; nothing is retried.
func (m *Manager) Run(ctx context.Context, opts Options) (*Result, error) {
	start := m.now()
	runID := uuid.NewString()

	timestamp := opts.Timestamp
	if timestamp == "" {
		timestamp = NewTimestamp(start)
	}
	retain := m.cfg.Backup.Retention
	if opts.Retain > 0 {
		retain = opts.Retain
	}

	m.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"timestamp": timestamp,
		"dry_run":   opts.DryRun,
	}).Info("Backup run starting")

	m.display.Header("Backup " + timestamp)

	if err := Preflight(ctx, m.cfg, m.runtime); err != nil {
		return nil, err
	}
	m.display.Successf("Pre-flight checks passed")

	if opts.DryRun {
		m.printPlan(timestamp, retain)
		return &Result{RunID: runID, Duration: m.now().Sub(start)}, nil
	}

	staging, err := os.MkdirTemp("", "workflow-backup-*")
	if err != nil {
		return nil, NewStorageError("failed to create staging directory", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			m.logger.Warnf("Failed to remove staging directory %s: %v", staging, err)
		}
	}()

	exporter := NewWorkflowExporter(m.cfg, m.runtime, m.logger)
	stagedExport := filepath.Join(staging, WorkflowFileName(timestamp))
	export, err := exporter.Export(ctx, stagedExport)
	if err != nil {
		return nil, err
	}
	m.display.Successf("Exported %d workflows (%s)", export.RecordCount, display.HumanSize(export.Size))

	dumper := NewDatabaseDumper(m.cfg, m.runtime, m.compressor, m.logger)
	stagedDump := filepath.Join(staging, DatabaseFileName(timestamp, m.compressor.Algorithm()))
	dump, err := dumper.Dump(ctx, staging, stagedDump)
	if err != nil {
		return nil, err
	}
	m.display.Successf("Database dump captured (%d lines, %s compressed)",
		dump.LineCount, display.HumanSize(dump.Compression.CompressedSize))

	builder := NewManifestBuilder(m.cfg, m.runtime, m.stats, m.toolVersion, m.logger)
	manifest := builder.Build(ctx, runID, timestamp, export, dump)
	stagedManifest := filepath.Join(staging, ManifestFileName(timestamp))
	manifestOK := true
	if err := manifest.Write(stagedManifest); err != nil {
		// Manifest is best-effort by contract; record and continue.
		m.logger.Warnf("Manifest generation degraded: %v", err)
		m.display.Warnf("Manifest could not be written: %v", err)
		manifestOK = false
	}

	set, err := m.publish(timestamp, stagedExport, stagedDump, stagedManifest, manifestOK)
	if err != nil {
		return nil, err
	}
	set.CreatedAt = m.now()
	m.display.Successf("Backup set published to %s", m.cfg.Backup.Dir)

	rotation, err := Rotate(m.cfg.Backup.Dir, retain, m.logger)
	if err != nil {
		return nil, err
	}
	if rotation.SetsDeleted > 0 {
		m.display.Infof("Rotation removed %d expired set(s), keeping %d", rotation.SetsDeleted, rotation.SetsKept)
	}

	var replicationWarnings []string
	if m.replication.Enabled() {
		replicationWarnings = m.replication.ReplicateSet(ctx, set)
		for _, w := range replicationWarnings {
			m.display.Warnf("Replication: %s", w)
		}
	}

	result := &Result{
		RunID:               runID,
		Set:                 *set,
		Export:              export,
		Dump:                dump,
		Rotation:            rotation,
		ReplicationWarnings: replicationWarnings,
		Duration:            m.now().Sub(start),
	}
	m.printSummary(result)

	m.logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"duration": result.Duration.String(),
	}).Info("Backup run completed")
	return result, nil
}

// publish moves the staged artifacts into the backup directory. The export
// anchor goes last: the set only becomes discoverable once complete. Rename
// falls back to copy for staging on another filesystem.
func (m *Manager) publish(timestamp, export, dump, manifest string, manifestOK bool) (*Set, error) {
	set := &Set{Timestamp: timestamp}

	dstDump := filepath.Join(m.cfg.Backup.Dir, filepath.Base(dump))
	if err := moveFile(dump, dstDump); err != nil {
		return nil, NewStorageError("failed to publish database artifact", err)
	}
	set.DatabaseFile = dstDump

	if manifestOK {
		dstManifest := filepath.Join(m.cfg.Backup.Dir, filepath.Base(manifest))
		if err := moveFile(manifest, dstManifest); err != nil {
			m.logger.Warnf("Failed to publish manifest: %v", err)
		} else {
			set.ManifestFile = dstManifest
		}
	}

	dstExport := filepath.Join(m.cfg.Backup.Dir, filepath.Base(export))
	if err := moveFile(export, dstExport); err != nil {
		return nil, NewStorageError("failed to publish workflow artifact", err)
	}
	set.WorkflowFile = dstExport

	return set, nil
}

func (m *Manager) printPlan(timestamp string, retain int) {
	m.display.Infof("Dry run: no artifacts will be written")
	m.display.KeyValue("Would export", WorkflowFileName(timestamp))
	m.display.KeyValue("Would dump", DatabaseFileName(timestamp, m.compressor.Algorithm()))
	m.display.KeyValue("Would write", ManifestFileName(timestamp))
	m.display.KeyValue("Destination", m.cfg.Backup.Dir)
	m.display.KeyValue("Retention", display.HumanCount(retain, "set"))
}

func (m *Manager) printSummary(r *Result) {
	m.display.Header("Summary")
	m.display.KeyValue("Workflows", display.HumanCount(r.Export.RecordCount, "record"))
	m.display.KeyValue("Export", r.Set.WorkflowFile)
	m.display.KeyValue("Dump", r.Set.DatabaseFile)
	if r.Set.ManifestFile != "" {
		m.display.KeyValue("Manifest", r.Set.ManifestFile)
	}
	if total, err := DirUsage(m.cfg.Backup.Dir); err == nil {
		m.display.KeyValue("Backup dir usage", display.HumanSize(total))
	}
	m.display.KeyValue("Duration", r.Duration.Round(time.Millisecond).String())
}

// moveFile renames src to dst, copying across filesystems when rename is
// not possible.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
