package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-backup/internal/config"
)

type memReplicator struct {
	name    string
	objects map[string][]byte
	fail    bool
}

func (m *memReplicator) Name() string { return m.name }

func (m *memReplicator) Upload(ctx context.Context, _, objectName string, data []byte) error {
	if m.fail {
		return errors.New("bucket unavailable")
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[objectName] = append([]byte(nil), data...)
	return nil
}

func TestReplicateSetFansOut(t *testing.T) {
	dir := t.TempDir()
	writeTestSet(t, dir, "20260823_031500", `[{"id":"1"}]`, time.Now())
	set, err := FindSet(dir, "20260823_031500")
	require.NoError(t, err)

	primary := &memReplicator{name: "s3"}
	secondary := &memReplicator{name: "gcs"}
	svc := &ReplicationService{targets: []Replicator{primary, secondary}, logger: testLogger(t)}
	require.True(t, svc.Enabled())

	warnings := svc.ReplicateSet(context.Background(), set)
	assert.Empty(t, warnings)
	assert.Len(t, primary.objects, 3)
	assert.Len(t, secondary.objects, 3)
	assert.Contains(t, primary.objects, WorkflowFileName("20260823_031500"))
	assert.Contains(t, primary.objects, DatabaseFileName("20260823_031500", AlgorithmGzip))
	assert.Contains(t, primary.objects, ManifestFileName("20260823_031500"))
}

func TestReplicateSetEncryptsUploads(t *testing.T) {
	dir := t.TempDir()
	writeTestSet(t, dir, "20260823_031500", `[{"id":"1"}]`, time.Now())
	set, err := FindSet(dir, "20260823_031500")
	require.NoError(t, err)

	target := &memReplicator{name: "s3"}
	svc := &ReplicationService{
		targets:    []Replicator{target},
		encryption: NewEncryptionManager("pw"),
		logger:     testLogger(t),
	}

	warnings := svc.ReplicateSet(context.Background(), set)
	assert.Empty(t, warnings)

	object := WorkflowFileName("20260823_031500") + EncryptedSuffix
	sealed, ok := target.objects[object]
	require.True(t, ok, "encrypted uploads carry the .enc suffix")

	plain, err := NewEncryptionManager("pw").Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"1"}]`), plain)
}

func TestReplicateSetReportsWarningsOnly(t *testing.T) {
	dir := t.TempDir()
	writeTestSet(t, dir, "20260823_031500", `[{"id":"1"}]`, time.Now())
	set, err := FindSet(dir, "20260823_031500")
	require.NoError(t, err)

	broken := &memReplicator{name: "azure", fail: true}
	working := &memReplicator{name: "s3"}
	svc := &ReplicationService{targets: []Replicator{broken, working}, logger: testLogger(t)}

	warnings := svc.ReplicateSet(context.Background(), set)
	assert.Len(t, warnings, 3, "one warning per failed artifact upload")
	assert.Len(t, working.objects, 3, "healthy targets still receive everything")
}

func TestReplicationDisabled(t *testing.T) {
	var svc *ReplicationService
	assert.False(t, svc.Enabled())
	assert.Nil(t, svc.ReplicateSet(context.Background(), &Set{}))

	empty, err := NewReplicationService(config.ReplicationConfig{}, testLogger(t))
	require.NoError(t, err)
	assert.False(t, empty.Enabled())
}
