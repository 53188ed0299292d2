package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LogLevelNormal, Output: &buf})
	require.NoError(t, err)

	l.Info("operational message")
	l.Debug("hidden at normal level")

	out := buf.String()
	assert.Contains(t, out, "operational message")
	assert.NotContains(t, out, "hidden at normal level")
	assert.Equal(t, LogLevelNormal, l.GetLevel())
}

func TestQuietLevelOnlyErrors(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LogLevelQuiet, Output: &buf})
	require.NoError(t, err)

	l.Warnf("suppressed %s", "warning")
	l.Errorf("kept %s", "error")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "kept error")
}

func TestVerboseLevelShowsDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LogLevelVerbose, Output: &buf})
	require.NoError(t, err)

	l.Debugf("dumping database %s", "workflows")
	assert.Contains(t, buf.String(), "dumping database workflows")
}

func TestSessionLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionLogName("20260823_031500"))
	l, err := New(Config{Level: LogLevelNormal, Output: io.Discard, LogFile: path})
	require.NoError(t, err)

	l.WithField("run_id", "abc").Info("Backup run starting")
	l.Infof("exported %d workflows", 3)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Backup run starting")
	assert.Contains(t, string(data), "exported 3 workflows")
	assert.Contains(t, string(data), "run_id=abc")
}

func TestSessionLogName(t *testing.T) {
	assert.Equal(t, "backup_20260823_031500.log", SessionLogName("20260823_031500"))
}

func TestNewDefaultNeverNil(t *testing.T) {
	l := NewDefault()
	require.NotNil(t, l)
	assert.NoError(t, l.Close())
}
