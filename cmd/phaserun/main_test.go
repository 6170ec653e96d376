package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-phases/internal/steps"
	"github.com/askiada/go-phases/pkg/pipeline"
)

var testRegistry = pipeline.NewRegistry()

func TestMain(m *testing.M) {
	if err := steps.Register(testRegistry); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if pipeline.IsWorkerProcess() {
		os.Exit(pipeline.ServeWorker(testRegistry))
	}

	os.Exit(m.Run())
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd(testRegistry)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writeDefinition(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}
