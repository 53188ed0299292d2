package backup

import (
	"context"
	"fmt"
	"os"

	"workflow-backup/internal/config"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

// WorkflowExporter produces the workflow export artifact: it runs the
// engine CLI inside the app container, copies the file out, and validates
// the result structurally.
type WorkflowExporter struct {
	cfg     *config.Config
	runtime runtime.Runtime
	logger  *logging.Logger
}

// ExportResult describes a validated workflow export.
type ExportResult struct {
	Path        string
	Size        int64
	RecordCount int
}

// NewWorkflowExporter creates a workflow exporter.
func NewWorkflowExporter(cfg *config.Config, rt runtime.Runtime, logger *logging.Logger) *WorkflowExporter {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &WorkflowExporter{cfg: cfg, runtime: rt, logger: logger}
}

// Export writes the workflow export to dst and validates it. Zero records
// is an error: an empty export almost always means the engine was queried
// cold and a backup of it would silently shadow real data.
func (e *WorkflowExporter) Export(ctx context.Context, dst string) (*ExportResult, error) {
	app := e.cfg.App

	e.logger.Debugf("Exporting workflows from container %s", app.Container)
	_, err := e.runtime.Exec(ctx, app.Container, app.CLI, "export:workflow", "--all", "--output="+app.ExportPath)
	if err != nil {
		return nil, WrapExternal(ErrorKindExport, "workflow export command failed", err)
	}

	if err := e.runtime.CopyFrom(ctx, app.Container, app.ExportPath, dst); err != nil {
		return nil, WrapExternal(ErrorKindExport, "failed to copy workflow export out of container", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, NewExportError("failed to read workflow export", err)
	}

	count, err := CountRecords(data)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, NewValidationError("workflow export contains zero records", nil)
	}

	e.logger.WithFields(map[string]interface{}{
		"operation": "workflow_export",
		"records":   count,
		"size":      len(data),
	}).Info("Workflow export validated")

	return &ExportResult{Path: dst, Size: int64(len(data)), RecordCount: count}, nil
}

// EngineVersion queries the engine CLI version, used by the manifest.
func (e *WorkflowExporter) EngineVersion(ctx context.Context) (string, error) {
	out, err := e.runtime.Exec(ctx, e.cfg.App.Container, e.cfg.App.CLI, "--version")
	if err != nil {
		return "", WrapExternal(ErrorKindExport, "engine version query failed", err)
	}
	return trimLine(out), nil
}

func trimLine(out []byte) string {
	s := string(out)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// ImportCommand returns the engine CLI invocation that re-imports an
// export file, one workflow per import unit.
func ImportCommand(cfg *config.Config, containerPath string) []string {
	return []string{cfg.App.CLI, "import:workflow", "--separate", fmt.Sprintf("--input=%s", containerPath)}
}
