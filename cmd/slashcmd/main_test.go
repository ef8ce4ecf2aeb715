package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/slashcmd/framework"
)

func TestConfigHelpers(t *testing.T) {
	data := map[string]interface{}{
		"language_servers": map[string]interface{}{
			"go": map[string]interface{}{"command": "gopls"},
		},
	}
	value, ok := getConfigValue(data, "language_servers.go.command")
	require.True(t, ok)
	require.Equal(t, "gopls", value)

	require.NoError(t, setConfigValue(data, "language_servers.go.command", "gopls-nightly"))
	value, ok = getConfigValue(data, "language_servers.go.command")
	require.True(t, ok)
	require.Equal(t, "gopls-nightly", value)

	require.NoError(t, setConfigValue(data, "background_workers", parseValue("4")))
	value, ok = getConfigValue(data, "background_workers")
	require.True(t, ok)
	require.Equal(t, 4, value)

	require.Error(t, setConfigValue(data, "background_workers.extra", true))
	require.Error(t, setConfigValue(data, "a..b", true))
	_, ok = getConfigValue(data, "missing.key")
	require.False(t, ok)

	require.Equal(t, false, parseValue("false"))
	require.Equal(t, 1.5, parseValue("1.5"))
	require.Equal(t, "gopls", parseValue("gopls"))
	require.Equal(t, "[a, 1]", prettyValue([]interface{}{"a", 1}))
}

func TestValidateConfigMapRejectsBadTypes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, validateConfigMap(map[string]interface{}{"background_workers": 2}, dir))
	require.Error(t, validateConfigMap(map[string]interface{}{"background_workers": "many"}, dir))
	require.Error(t, validateConfigMap(map[string]interface{}{
		"language_servers": map[string]interface{}{"go": map[string]interface{}{}},
	}, dir))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunOutlineCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Intro\n# Setup\n"), 0o644))

	out, err := execute(t, "--workspace", dir, "run", "--open", "notes.md")
	require.NoError(t, err)
	require.Equal(t, "Symbols for notes.md:\n- Intro\n- Setup\n", out)

	out, err = execute(t, "--workspace", dir, "--absolute-paths", "run", "/outline", "--open", "notes.md")
	require.NoError(t, err)
	require.Equal(t, "Symbols for "+filepath.Join(dir, "notes.md")+":\n- Intro\n- Setup\n", out)

	out, err = execute(t, "--workspace", dir, "history", "--limit", "0")
	require.NoError(t, err)
	require.Contains(t, out, "/outline")
	require.Contains(t, out, "- Setup\n")
}

func TestRunJSONOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Intro\n# Setup\n"), 0o644))

	out, err := execute(t, "--workspace", dir, "run", "--open", "notes.md", "--json")
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 3)
	require.JSONEq(t, `"Symbols for notes.md:\n- Intro\n- Setup\n"`, string(decoded["text"]))
	require.JSONEq(t, `[]`, string(decoded["sections"]))
	require.JSONEq(t, `false`, string(decoded["run_commands_in_text"]))
}

func TestRunReportsCommandErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Intro\n"), 0o644))

	_, err := execute(t, "--workspace", dir, "run")
	require.ErrorIs(t, err, framework.ErrNoActiveTab)

	_, err = execute(t, "--workspace", dir, "run", "--open", "notes.md", "--settings")
	require.ErrorIs(t, err, framework.ErrNotAnEditor)
	require.EqualError(t, err, "active tab is not an editor")

	_, err = execute(t, "--workspace", dir, "run", "nope")
	require.True(t, framework.IsKind(err, framework.ErrorUnknownCommand))

	_, err = execute(t, "--workspace", dir, "complete", "outline")
	require.ErrorIs(t, err, framework.ErrArgumentNotAccepted)
}

func TestListCommands(t *testing.T) {
	out, err := execute(t, "--workspace", t.TempDir(), "list")
	require.NoError(t, err)
	require.Contains(t, out, "/outline")
	require.Contains(t, out, "insert outline for active tab")
}

func TestConfigSetAndGet(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--workspace", dir, "config", "set", "prefer_relative_paths", "false")
	require.NoError(t, err)

	out, err := execute(t, "--workspace", dir, "config", "get", "prefer_relative_paths")
	require.NoError(t, err)
	require.Equal(t, "false\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Intro\n"), 0o644))
	out, err = execute(t, "--workspace", dir, "run", "--open", "notes.md")
	require.NoError(t, err)
	require.Equal(t, "Symbols for "+filepath.Join(dir, "notes.md")+":\n- Intro\n", out)

	_, err = execute(t, "--workspace", dir, "config", "set", "background_workers", "many")
	require.Error(t, err)
	_, err = execute(t, "--workspace", dir, "config", "get", "missing")
	require.Error(t, err)
}
