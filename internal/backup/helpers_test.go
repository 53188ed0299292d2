package backup

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Runtime: config.RuntimeConfig{Binary: "docker", ExecTimeout: time.Minute},
		App: config.AppConfig{
			Container:  "workflow-engine",
			CLI:        "flowctl",
			ExportPath: "/tmp/workflows_export.json",
		},
		Database: config.DatabaseConfig{
			Container: "workflow-db",
			Name:      "workflows",
			User:      "workflows",
			Password:  "secret",
			Host:      "127.0.0.1",
			Port:      3306,
		},
		Backup: config.BackupConfig{
			Dir:          dir,
			LogDir:       filepath.Join(dir, "logs"),
			Retention:    7,
			MinFreeSpace: 1,
			MinDumpLines: 5,
			TopTables:    10,
			Compression:  config.CompressionConfig{Algorithm: "gzip"},
		},
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.New(logging.Config{Level: logging.LogLevelQuiet, Output: io.Discard})
	require.NoError(t, err)
	return l
}

func testDisplay() *display.Display {
	return display.NewWithWriter(io.Discard, true, true)
}

const testDumpText = DumpHeaderMarker + ` 10.13  Distrib 8.0.36
--
-- Host: localhost    Database: workflows
--
DROP TABLE IF EXISTS ` + "`workflow_entity`" + `;
CREATE TABLE ` + "`workflow_entity`" + ` (id varchar(36));
INSERT INTO ` + "`workflow_entity`" + ` VALUES ('1');
-- Dump completed
`

// writeTestSet fabricates a complete backup set directly in dir and stamps
// the anchor with mtime so discovery ordering is deterministic.
func writeTestSet(t *testing.T, dir, key, records string, mtime time.Time) {
	t.Helper()

	anchor := filepath.Join(dir, WorkflowFileName(key))
	require.NoError(t, os.WriteFile(anchor, []byte(records), 0o644))

	raw := filepath.Join(dir, "raw_"+key+".sql")
	require.NoError(t, os.WriteFile(raw, []byte(testDumpText), 0o644))
	_, err := NewCompressor(AlgorithmGzip, 0).CompressFile(raw, filepath.Join(dir, DatabaseFileName(key, AlgorithmGzip)))
	require.NoError(t, err)
	require.NoError(t, os.Remove(raw))

	manifest := &Manifest{Timestamp: key, CreatedAt: mtime}
	require.NoError(t, manifest.Write(filepath.Join(dir, ManifestFileName(key))))

	require.NoError(t, os.Chtimes(anchor, mtime, mtime))
}
