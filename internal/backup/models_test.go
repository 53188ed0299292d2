package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 23, 3, 15, 0, 0, time.UTC)
	key := NewTimestamp(created)
	assert.Equal(t, "20260823_031500", key)

	parsed, err := ParseTimestamp(key)
	require.NoError(t, err)
	assert.Equal(t, created, parsed)
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, key := range []string{"", "latest", "2026-08-23", "20260823", "20260823-031500"} {
		_, err := ParseTimestamp(key)
		require.Error(t, err, key)
		assert.Equal(t, ErrorKindValidation, KindOf(err), key)
	}
}

func TestArtifactFileNames(t *testing.T) {
	key := "20260823_031500"
	assert.Equal(t, "workflows_20260823_031500.json", WorkflowFileName(key))
	assert.Equal(t, "database_20260823_031500.sql.gz", DatabaseFileName(key, AlgorithmGzip))
	assert.Equal(t, "database_20260823_031500.sql.lz4", DatabaseFileName(key, AlgorithmLZ4))
	assert.Equal(t, "database_20260823_031500.sql.zst", DatabaseFileName(key, AlgorithmZstd))
	assert.Equal(t, "manifest_20260823_031500.yaml", ManifestFileName(key))
}

func TestTimestampFromFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"workflows_20260823_031500.json", "20260823_031500"},
		{"database_20260823_031500.sql.gz", "20260823_031500"},
		{"database_20260823_031500.sql.lz4", "20260823_031500"},
		{"database_20260823_031500.sql.zst", "20260823_031500"},
		{"manifest_20260823_031500.yaml", "20260823_031500"},
		{"/some/dir/workflows_20260823_031500.json", "20260823_031500"},
		{"workflows_latest.json", ""},
		{"database_20260823_031500.sql.bak", ""},
		{"database_20260823_031500.dump", ""},
		{"manifest_20260823_031500.yml", ""},
		{"notes.txt", ""},
		{"workflows_20260823_031500.json.tmp", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimestampFromFile(tt.name), tt.name)
	}
}

func TestDecodeWorkflows(t *testing.T) {
	records, err := DecodeWorkflows([]byte(`[{"id":"1","name":"sync"},{"id":"2","active":true}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "sync", records[0].Name)
	assert.True(t, records[1].Active)
}

func TestDecodeWorkflowsRejectsInvalidInput(t *testing.T) {
	_, err := DecodeWorkflows([]byte(`{"id":"1"}`))
	require.Error(t, err)
	assert.Equal(t, ErrorKindValidation, KindOf(err))

	_, err = DecodeWorkflows([]byte(`[{"name":"missing id"}]`))
	require.Error(t, err)
	assert.Equal(t, ErrorKindValidation, KindOf(err))

	_, err = DecodeWorkflows([]byte(`not json`))
	require.Error(t, err)
}

func TestCountRecords(t *testing.T) {
	count, err := CountRecords([]byte(`[{"id":"a"},{"id":"b"},{"id":"c"}]`))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = CountRecords([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSetCompleteness(t *testing.T) {
	set := Set{Timestamp: "20260823_031500", WorkflowFile: "w.json"}
	assert.False(t, set.Complete())
	assert.Equal(t, []string{"w.json"}, set.ArtifactFiles())

	set.DatabaseFile = "d.sql.gz"
	assert.True(t, set.Complete())

	set.ManifestFile = "m.yaml"
	assert.Equal(t, []string{"w.json", "d.sql.gz", "m.yaml"}, set.ArtifactFiles())
}
