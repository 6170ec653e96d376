package main

import (
	"fmt"
	"os"

	"github.com/askiada/go-phases/internal/steps"
	"github.com/askiada/go-phases/pkg/pipeline"
)

func main() {
	reg := pipeline.DefaultRegistry

	if err := steps.Register(reg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register step functions: %v\n", err)
		os.Exit(1)
	}

	// Process phases start this binary again as their workers.
	if pipeline.IsWorkerProcess() {
		os.Exit(pipeline.ServeWorker(reg))
	}

	if err := newRootCmd(reg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
