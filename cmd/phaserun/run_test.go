package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-phases/internal/config"
)

const demoDefinition = `name: demo
phases:
  - name: load
    strategy: sequential
    steps:
      - function: multiply
        args: {x: 3, factor: 3}
  - name: scale
    strategy: thread
    steps:
      - function: scale_previous
        args: {factor: 3}
      - function: sum_previous
  - name: isolated
    strategy: process
    processes: 2
    steps:
      - function: echo
        args: {value: a}
      - function: echo
        args: {value: b}
`

func TestRunCommandPrintsOrderedResult(t *testing.T) {
	path := writeDefinition(t, demoDefinition)

	output, _, err := executeCommand(t, "run", path)
	require.NoError(t, err)

	assert.Equal(t, `load0:
  multiply0: 9
scale1:
  scale_previous0:
    multiply0: 27
  sum_previous1: 9
isolated2:
  echo0: a
  echo1: b
`, output)
}

func TestRunCommandLastOnly(t *testing.T) {
	path := writeDefinition(t, demoDefinition)

	output, _, err := executeCommand(t, "run", "--last-only", path)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
	assert.Equal(t, map[string]map[string]any{"isolated2": {"echo0": "a", "echo1": "b"}}, decoded)
}

func TestRunCommandWritesSinksAndGraph(t *testing.T) {
	path := writeDefinition(t, demoDefinition)
	logDir := t.TempDir()
	graphPath := filepath.Join(t.TempDir(), "run.dot")

	_, stderr, err := executeCommand(t, "run", "--json", "--log-dir", logDir, "--graph", graphPath, path)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"message":"phase completed"`)

	folders, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.True(t, strings.HasPrefix(folders[0].Name(), "demo_"))

	files, err := os.ReadDir(filepath.Join(logDir, folders[0].Name()))
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name())
	}

	assert.ElementsMatch(t, []string{"load0.txt", "scale1.txt", "isolated2.txt"}, names)

	graph, err := os.ReadFile(graphPath)
	require.NoError(t, err)
	assert.Contains(t, string(graph), "digraph")
	assert.Contains(t, string(graph), "isolated2/echo1")
}

func TestRunCommandReportsFailure(t *testing.T) {
	path := writeDefinition(t, `name: broken
phases:
  - strategy: sequential
    steps:
      - function: fail
        args: {message: nope}
  - strategy: sequential
    steps:
      - function: echo
        args: {value: never}
`)

	output, _, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Empty(t, output)
	assert.Contains(t, err.Error(), "function= fail")
	assert.Contains(t, err.Error(), "nope")
}

func TestRunCommandRejectsInvalidDefinition(t *testing.T) {
	path := writeDefinition(t, "name: broken\nphases: []\n")

	_, _, err := executeCommand(t, "run", path)

	var validationErr *config.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestValidateCommand(t *testing.T) {
	path := writeDefinition(t, demoDefinition)

	output, _, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, output, "pipeline demo is valid")
	assert.Contains(t, output, "scale1: thread, 2 steps, 2 workers")
	assert.Contains(t, output, "isolated2: process, 2 steps, 2 workers")

	_, _, err = executeCommand(t, "validate", writeDefinition(t, "name: x\nphases:\n  - strategy: thread\n    steps:\n      - function: nope\n"))
	require.Error(t, err)
}
