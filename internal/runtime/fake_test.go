package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeExportImportCycle(t *testing.T) {
	ctx := context.Background()
	fake := NewFake("app", "db")
	fake.Workflows = []FakeWorkflow{{ID: "wf-1", Name: "sync"}, {ID: "wf-2"}}

	out, err := fake.Exec(ctx, "app", "flowctl", "export:workflow", "--all", "--output=/tmp/e.json")
	require.NoError(t, err)
	assert.Contains(t, string(out), "exported 2 workflows")

	host := filepath.Join(t.TempDir(), "e.json")
	require.NoError(t, fake.CopyFrom(ctx, "app", "/tmp/e.json", host))

	// Mutate the store, then push the old export back in and import it.
	fake.Workflows = append(fake.Workflows, FakeWorkflow{ID: "wf-3"})
	require.NoError(t, fake.CopyTo(ctx, host, "app", "/tmp/r.json"))
	_, err = fake.Exec(ctx, "app", "flowctl", "import:workflow", "--separate", "--input=/tmp/r.json")
	require.NoError(t, err)
	require.Len(t, fake.Workflows, 2)
	assert.Equal(t, "wf-1", fake.Workflows[0].ID)
}

func TestFakeDumpAndReplay(t *testing.T) {
	ctx := context.Background()
	fake := NewFake("app", "db")
	fake.Workflows = []FakeWorkflow{{ID: "wf-1", Name: "sync"}}

	out, err := fake.Exec(ctx, "db", "mysqldump", "-uworkflows", "-psecret", "workflows")
	require.NoError(t, err)
	assert.Contains(t, string(out), "-- MySQL dump")
	assert.Contains(t, string(out), "wf-1")

	require.NoError(t, fake.ExecInput(ctx, "db", strings.NewReader(string(out)), "mysql", "-uworkflows", "-psecret", "workflows"))
	require.Len(t, fake.Replayed, 1)
	assert.Contains(t, fake.Replayed[0], "-- MySQL dump")
}

func TestFakeStoppedContainer(t *testing.T) {
	ctx := context.Background()
	fake := NewFake("app", "db")
	fake.Running["app"] = false

	running, err := fake.ContainerRunning(ctx, "app")
	require.NoError(t, err)
	assert.False(t, running)

	_, err = fake.Exec(ctx, "app", "flowctl", "--version")
	require.Error(t, err)

	_, err = fake.Status(ctx, "app")
	require.Error(t, err)
}

func TestFakeUnreachable(t *testing.T) {
	fake := NewFake("app", "db")
	fake.Reachable = false

	require.Error(t, fake.Ping(context.Background()))
	_, err := fake.Version(context.Background())
	require.Error(t, err)
}

func TestFakeRestart(t *testing.T) {
	fake := NewFake("app", "db")
	require.NoError(t, fake.Restart(context.Background(), "app"))
	assert.Equal(t, []string{"app"}, fake.Restarts)

	require.Error(t, fake.Restart(context.Background(), "ghost"))
}

func TestFakeCopyFromMissingFile(t *testing.T) {
	fake := NewFake("app", "db")
	err := fake.CopyFrom(context.Background(), "app", "/tmp/missing.json", filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err) || strings.Contains(err.Error(), "no such file"))
}
