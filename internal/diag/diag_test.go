package diag

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-backup/internal/backup"
	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

func TestCrossCheckAgreement(t *testing.T) {
	export := []byte(`[{"id":"wf-1","name":"sync"},{"id":"wf-2"},{"id":"wf-3","active":true}]`)

	report, err := CrossCheck(export)
	require.NoError(t, err)
	assert.True(t, report.Agreement)
	assert.Equal(t, 3, report.Counts[StrategyStructural])
	assert.Equal(t, 3, report.Counts[StrategyQuery])
	assert.Equal(t, 3, report.Counts[StrategyRegexp])
	assert.Equal(t, 3, report.Counts[StrategyBraces])
}

func TestCrossCheckCatchesNestedIDs(t *testing.T) {
	// A nested object with its own id field fools the regexp strategy.
	export := []byte(`[{"id":"wf-1","settings":{"id":"inner"}}]`)

	report, err := CrossCheck(export)
	require.NoError(t, err)
	assert.False(t, report.Agreement)
	assert.Equal(t, 1, report.Counts[StrategyStructural])
	assert.Equal(t, 2, report.Counts[StrategyRegexp])
	assert.Equal(t, 1, report.Counts[StrategyBraces])
}

func TestCrossCheckRejectsMalformedExport(t *testing.T) {
	_, err := CrossCheck([]byte(`{"id":"not an array"}`))
	require.Error(t, err)
	assert.Equal(t, backup.ErrorKindValidation, backup.KindOf(err))
}

func TestCountBracesIgnoresBracesInStrings(t *testing.T) {
	assert.Equal(t, 1, CountBraces([]byte(`[{"id":"{looks} like {json}"}]`)))
	assert.Equal(t, 2, CountBraces([]byte(`[{"id":"a\"{"},{"id":"b"}]`)))
	assert.Equal(t, 0, CountBraces([]byte(`[]`)))
}

func TestCountBracesNestedObjects(t *testing.T) {
	// Only objects opening at array depth count as records.
	export := []byte(`[{"id":"1","nodes":[{"type":"trigger"},{"type":"http"}]},{"id":"2"}]`)
	assert.Equal(t, 2, CountBraces(export))
}

func TestCountQueryEmptyArray(t *testing.T) {
	assert.Equal(t, 0, CountQuery([]byte(`[]`)))
	assert.Equal(t, 2, CountQuery([]byte(`[{"id":"1"},{"id":"2"}]`)))
}

func TestProbeRun(t *testing.T) {
	cfg := &config.Config{
		Runtime: config.RuntimeConfig{Binary: "docker", ExecTimeout: time.Minute},
		App:     config.AppConfig{Container: "workflow-engine", CLI: "flowctl", ExportPath: "/tmp/e.json"},
		Backup:  config.BackupConfig{Dir: t.TempDir()},
	}
	fake := runtime.NewFake(cfg.App.Container, "workflow-db")
	fake.Workflows = []runtime.FakeWorkflow{{ID: "wf-1"}, {ID: "wf-2"}}

	logger, err := logging.New(logging.Config{Level: logging.LogLevelQuiet, Output: io.Discard})
	require.NoError(t, err)
	probe := NewProbe(cfg, fake, logger, display.NewWithWriter(io.Discard, true, true))

	report, err := probe.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Agreement)
	assert.Equal(t, 2, report.Runs)
	assert.Equal(t, 2, report.Counts[StrategyStructural])
}

func TestProbeRunFailsOnEmptyEngine(t *testing.T) {
	cfg := &config.Config{
		Runtime: config.RuntimeConfig{Binary: "docker", ExecTimeout: time.Minute},
		App:     config.AppConfig{Container: "workflow-engine", CLI: "flowctl", ExportPath: "/tmp/e.json"},
		Backup:  config.BackupConfig{Dir: t.TempDir()},
	}
	fake := runtime.NewFake(cfg.App.Container, "workflow-db")

	logger, err := logging.New(logging.Config{Level: logging.LogLevelQuiet, Output: io.Discard})
	require.NoError(t, err)
	probe := NewProbe(cfg, fake, logger, display.NewWithWriter(io.Discard, true, true))

	_, err = probe.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, backup.ErrorKindValidation, backup.KindOf(err))
}
