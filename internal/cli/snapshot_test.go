package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSnapshotShowCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	cmd := newSnapshotCommand(&SnapshotOptions{RootOptions: &RootOptions{Format: format}, Getenv: noEnv})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"show"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSnapshotShow_Absent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")

	out, err := runSnapshotShowCmd(t, "text", "--driver", "file", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "No snapshot in file storage.\n", out)
}

func TestSnapshotShow_Present(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")
	blob := `{"V1":{"recipes":[{"name":"Soup","instructions":"Boil."}]}}`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o644))

	out, err := runSnapshotShowCmd(t, "text", "--driver", "file", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "Snapshot (file, V1, 59 bytes)\n[0] Soup\n  Boil.\n", out)

	out, err = runSnapshotShowCmd(t, "json", "--driver", "file", "--db", path)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   SnapshotInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Present)
	assert.Equal(t, "V1", resp.Data.Version)
	assert.Equal(t, len(blob), resp.Data.Bytes)
	require.Len(t, resp.Data.Recipes, 1)
	assert.Equal(t, "Soup", resp.Data.Recipes[0].Name)
}

func TestSnapshotShow_Unreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	out, err := runSnapshotShowCmd(t, "text", "--driver", "file", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "Snapshot (file, unreadable, 7 bytes)\nNo recipes.\n", out)
}

func TestSnapshotShow_GroupsByteCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")
	long := strings.Repeat("x", 2000)
	blob := `{"V1":{"recipes":[{"name":"Soup","instructions":"` + long + `"}]}}`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o644))

	out, err := runSnapshotShowCmd(t, "text", "--driver", "file", "--db", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Snapshot (file, V1, 2,054 bytes)\n"), out)
}

func TestSnapshotShow_InvalidConfig(t *testing.T) {
	_, err := runSnapshotShowCmd(t, "text", "--driver", "file", "--db", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}
