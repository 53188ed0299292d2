package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateKeepsNewestSets(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-6 * time.Hour)
	keys := []string{
		"20260818_010000",
		"20260819_010000",
		"20260820_010000",
		"20260821_010000",
		"20260822_010000",
	}
	for i, key := range keys {
		writeTestSet(t, dir, key, `[{"id":"1"}]`, base.Add(time.Duration(i)*time.Hour))
	}

	result, err := Rotate(dir, 2, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SetsKept)
	assert.Equal(t, 3, result.SetsDeleted)
	assert.Empty(t, result.Errors)
	// Three expired sets, three artifacts each.
	assert.Len(t, result.Removed, 9)

	sets, err := DiscoverSets(dir)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "20260822_010000", sets[0].Timestamp)
	assert.Equal(t, "20260821_010000", sets[1].Timestamp)

	// Surviving sets keep every artifact.
	for _, set := range sets {
		assert.True(t, set.Complete())
		assert.NotEmpty(t, set.ManifestFile)
	}
}

func TestRotateSweepsOrphanedArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeTestSet(t, dir, "20260822_010000", `[{"id":"1"}]`, time.Now())

	// Leftovers from an interrupted run: keyed artifacts with no anchor.
	orphanDump := filepath.Join(dir, "database_20260801_010000.sql.gz")
	orphanManifest := filepath.Join(dir, "manifest_20260801_010000.yaml")
	require.NoError(t, os.WriteFile(orphanDump, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(orphanManifest, []byte("x"), 0o644))

	// Unrelated files never match the naming scheme and are untouched.
	stray := filepath.Join(dir, "README.txt")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	result, err := Rotate(dir, 7, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, result.SetsKept)
	assert.Equal(t, 0, result.SetsDeleted)
	assert.ElementsMatch(t, []string{orphanDump, orphanManifest}, result.Removed)

	assert.NoFileExists(t, orphanDump)
	assert.NoFileExists(t, orphanManifest)
	assert.FileExists(t, stray)
}

func TestRotateUnderRetention(t *testing.T) {
	dir := t.TempDir()
	writeTestSet(t, dir, "20260821_010000", `[{"id":"1"}]`, time.Now().Add(-time.Hour))
	writeTestSet(t, dir, "20260822_010000", `[{"id":"1"}]`, time.Now())

	result, err := Rotate(dir, 7, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SetsKept)
	assert.Equal(t, 0, result.SetsDeleted)
	assert.Empty(t, result.Removed)
}
