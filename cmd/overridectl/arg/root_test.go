package arg

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dbPath, now string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--db", dbPath, "--now", now}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOverridectl_RecordResolveCancel(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "overrides.db")

	out, err := run(t, dbPath, "2024-05-14T10:00:00Z", "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, "active: none")

	out, err = run(t, dbPath, "2024-05-14T10:00:00Z", "record", "--scale", "0.5", "--duration", "2h")
	require.NoError(t, err)
	assert.Contains(t, out, "recorded Override{")

	out, err = run(t, dbPath, "2024-05-14T10:30:00Z", "resolve",
		"--basal", "00:00=1.0",
		"--sensitivity", "00:00=40",
		"--carb-ratio", "00:00=10",
		"--target", "00:00=100-120",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "active: Override{")
	assert.Contains(t, out, "basal: 0.5\n")
	assert.Contains(t, out, "sensitivity: 80\n")
	assert.Contains(t, out, "carb ratio: 20\n")
	assert.Contains(t, out, "target: 100-120\n")

	_, err = run(t, dbPath, "2024-05-14T11:00:00Z", "cancel")
	require.NoError(t, err)

	out, err = run(t, dbPath, "2024-05-14T11:00:00Z", "events")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Override{")
	assert.Contains(t, out, "ended 2024-05-14T11:00:00Z")

	out, err = run(t, dbPath, "2024-05-14T11:30:00Z", "resolve", "--basal", "00:00=1.0")
	require.NoError(t, err)
	assert.Contains(t, out, "active: none")
	assert.Contains(t, out, "basal: 1\n")

	out, err = run(t, dbPath, "2024-05-14T11:30:00Z", "users")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestOverridectl_Sync(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "overrides.db")
	_, err := run(t, dbPath, "2024-05-14T10:00:00Z", "record", "--scale", "1.2", "--duration", "0")
	require.NoError(t, err)

	out, err := run(t, dbPath, "2024-05-14T10:05:00Z", "sync", "pump")
	require.NoError(t, err)
	assert.Contains(t, out, "changed: Override{")
	assert.Contains(t, out, "anchor: 1\n")

	out, err = run(t, dbPath, "2024-05-14T10:05:00Z", "sync", "pump", "--anchor", "1")
	require.NoError(t, err)
	assert.Equal(t, "anchor: 1\n", out)
}

func TestOverridectl_EditBySyncID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "overrides.db")
	const id = "6f1c2d0e-8f5a-4c3b-9a7d-2e4f6a8b0c1d"

	_, err := run(t, dbPath, "2024-05-14T10:00:00Z", "record", "--sync-id", id, "--scale", "0.5", "--duration", "2h")
	require.NoError(t, err)
	_, err = run(t, dbPath, "2024-05-14T10:10:00Z", "record", "--sync-id", id, "--scale", "0.8",
		"--start", "2024-05-14T10:00:00Z", "--duration", "2h")
	require.NoError(t, err)

	out, err := run(t, dbPath, "2024-05-14T10:20:00Z", "resolve", "--basal", "00:00=1.0")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "basal: 0.8\n")
}

func TestOverridectl_InvalidInput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "overrides.db")

	tests := []struct {
		name string
		now  string
		args []string
	}{
		{"bad now", "yesterday", []string{"events"}},
		{"bad duration", "2024-05-14T10:00:00Z", []string{"record", "--scale", "0.5", "--duration", "soon"}},
		{"bad range", "2024-05-14T10:00:00Z", []string{"record", "--range", "170-150"}},
		{"bad schedule", "2024-05-14T10:00:00Z", []string{"resolve", "--basal", "25:00=1"}},
		{"bad sync id", "2024-05-14T10:00:00Z", []string{"record", "--scale", "0.5", "--sync-id", "nope"}},
		{"missing client", "2024-05-14T10:00:00Z", []string{"sync"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dbPath, tt.now, tt.args...)
			assert.Error(t, err)
		})
	}
}
