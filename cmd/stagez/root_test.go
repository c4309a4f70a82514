package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/stagez"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDescribe(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		out, err := execute(t, "describe")
		require.NoError(t, err)
		assert.Equal(t, "simple-pipeline: {SimpleInput} → Insert(My):0 → ToUpper:1 → Append(Friends):2 → {SimpleOutput}\n", out)
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, "describe", "-o", "json")
		require.NoError(t, err)

		var topo stagez.Topology
		require.NoError(t, json.Unmarshal([]byte(out), &topo))
		assert.Equal(t, "simple-pipeline", topo.Name)
		require.Len(t, topo.Stages, 3)
		assert.Equal(t, "ToUpper", topo.Stages[1].Name)
	})

	t.Run("Msgpack", func(t *testing.T) {
		out, err := execute(t, "describe", "--output", "msgpack")
		require.NoError(t, err)

		data, err := hex.DecodeString(strings.TrimSpace(out))
		require.NoError(t, err)
		topo, err := stagez.DecodeTopology(data)
		require.NoError(t, err)
		assert.Equal(t, []stagez.Endpoint{{Name: "SimpleInput", Type: "[]int32"}}, topo.Inputs)
	})

	t.Run("Unknown Format", func(t *testing.T) {
		_, err := execute(t, "describe", "-o", "yaml")
		assert.Error(t, err)
	})

	t.Run("Configured Priorities", func(t *testing.T) {
		path := writeFile(t, "stagez.yaml", `
stages:
  - name: Insert(My)
    priority: 5
  - name: ToUpper
    disabled: true
`)
		out, err := execute(t, "describe", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "simple-pipeline: {SimpleInput} → Append(Friends):2 → Insert(My):5 → {SimpleOutput}\n", out)
	})
}

func TestRun(t *testing.T) {
	t.Run("Words", func(t *testing.T) {
		out, err := execute(t, "run", "Fellow", "Best")
		require.NoError(t, err)
		assert.Equal(t, "out=MY FELLOW Friends\nout=MY BEST Friends\n", out)
	})

	t.Run("Requires Words", func(t *testing.T) {
		_, err := execute(t, "run")
		assert.Error(t, err)
	})

	t.Run("Disabled Stage", func(t *testing.T) {
		path := writeFile(t, "stagez.json", `{"stages": [{"name": "ToUpper", "disabled": true}]}`)
		out, err := execute(t, "run", "--config", path, "hello")
		require.NoError(t, err)
		assert.Equal(t, "out=My hello Friends\n", out)
	})

	t.Run("Unknown Stage In Config", func(t *testing.T) {
		path := writeFile(t, "stagez.yaml", "stages:\n  - name: Missing\n")
		_, err := execute(t, "run", "--config", path, "hello")
		assert.ErrorIs(t, err, stagez.ErrNotFound)
	})

	t.Run("Env File", func(t *testing.T) {
		t.Setenv("STAGEZ_NAME", "")
		require.NoError(t, os.Unsetenv("STAGEZ_NAME"))

		path := writeFile(t, ".env", "STAGEZ_NAME=another-pipeline\n")
		_, err := execute(t, "run", "--env-file", path, "hello")
		assert.Error(t, err)
	})

	t.Run("Missing Env File", func(t *testing.T) {
		_, err := execute(t, "run", "--env-file", filepath.Join(t.TempDir(), "missing.env"), "hello")
		assert.Error(t, err)
	})
}
