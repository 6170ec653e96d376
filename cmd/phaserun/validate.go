package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/go-phases/internal/config"
	"github.com/askiada/go-phases/pkg/pipeline"
)

func newValidateCmd(reg *pipeline.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a pipeline definition without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Parse(args[0])
			if err != nil {
				return err
			}

			pipe, err := config.Build(cfg, reg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pipeline %s is valid\n", pipe.Name())

			for idx, phase := range pipe.Phases() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s%d: %s, %d steps, %d workers\n",
					phase.Name(), idx, phase.Strategy(), len(phase.Steps()), phase.Workers())
			}

			return nil
		},
	}

	return cmd
}
