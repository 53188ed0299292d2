package backup

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"workflow-backup/internal/config"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

// DumpHeaderMarker must appear in a healthy logical dump. Together with the
// minimum line count it is a heuristic truncation check, not a semantic
// validation; the dump format is otherwise treated as opaque.
const DumpHeaderMarker = "-- MySQL dump"

// DatabaseDumper produces the compressed database dump artifact.
type DatabaseDumper struct {
	cfg        *config.Config
	runtime    runtime.Runtime
	compressor *Compressor
	logger     *logging.Logger
}

// DumpResult describes a validated, compressed dump.
type DumpResult struct {
	Path        string
	Compression *CompressionStats
	LineCount   int
}

// NewDatabaseDumper creates a database dumper.
func NewDatabaseDumper(cfg *config.Config, rt runtime.Runtime, compressor *Compressor, logger *logging.Logger) *DatabaseDumper {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &DatabaseDumper{cfg: cfg, runtime: rt, compressor: compressor, logger: logger}
}

// Dump captures a logical dump of the configured database into a staging
// file, validates it, and compresses it into dst.
func (d *DatabaseDumper) Dump(ctx context.Context, stagingDir, dst string) (*DumpResult, error) {
	db := d.cfg.Database

	d.logger.Debugf("Dumping database %s from container %s", db.Name, db.Container)
	out, err := d.runtime.Exec(ctx, db.Container, "mysqldump", "-u"+db.User, "-p"+db.Password, db.Name)
	if err != nil {
		return nil, WrapExternal(ErrorKindDump, "database dump command failed", err)
	}

	lines, err := validateDump(out, d.cfg.Backup.MinDumpLines)
	if err != nil {
		return nil, err
	}

	raw := stagingDir + "/dump.sql"
	if err := os.WriteFile(raw, out, 0o600); err != nil {
		return nil, NewDumpError("failed to write dump staging file", err)
	}

	stats, err := d.compressor.CompressFile(raw, dst)
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(map[string]interface{}{
		"operation":  "database_dump",
		"lines":      lines,
		"raw_size":   stats.OriginalSize,
		"compressed": stats.CompressedSize,
		"algorithm":  stats.Algorithm,
	}).Info("Database dump validated and compressed")

	return &DumpResult{Path: dst, Compression: stats, LineCount: lines}, nil
}

// validateDump applies the two truncation heuristics: a minimum line count
// and the presence of the dump header marker.
func validateDump(dump []byte, minLines int) (int, error) {
	lines := 0
	hasMarker := false

	scanner := bufio.NewScanner(bytes.NewReader(dump))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lines++
		if !hasMarker && strings.Contains(scanner.Text(), DumpHeaderMarker) {
			hasMarker = true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, NewDumpError("failed to scan dump output", err)
	}

	if lines < minLines {
		return lines, NewValidationError(fmt.Sprintf("dump has %d lines, below the minimum of %d", lines, minLines), nil)
	}
	if !hasMarker {
		return lines, NewValidationError(fmt.Sprintf("dump is missing the %q header marker", DumpHeaderMarker), nil)
	}
	return lines, nil
}

// DatabaseVersion queries the database client version, used by the manifest.
func (d *DatabaseDumper) DatabaseVersion(ctx context.Context) (string, error) {
	out, err := d.runtime.Exec(ctx, d.cfg.Database.Container, "mysql", "--version")
	if err != nil {
		return "", WrapExternal(ErrorKindDump, "database version query failed", err)
	}
	return trimLine(out), nil
}

// ReplayCommand returns the database client invocation that replays a
// plain-text dump from stdin.
func ReplayCommand(cfg *config.Config) []string {
	db := cfg.Database
	return []string{"mysql", "-u" + db.User, "-p" + db.Password, db.Name}
}
