package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "voiceflow version")
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, `starting at "start"`)
	assert.Contains(t, out, "Handlers: record_activities, record_dates, select_destination")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte(`
initial_node: start
nodes:
  start:
    functions:
      - name: go
        transition_to: nowhere
`), 0o644))
	_, err = run(t, "validate", broken)
	assert.ErrorContains(t, err, "nowhere")
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")

	out, err = run(t, "graph", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"initial_node": "start"`)
}
