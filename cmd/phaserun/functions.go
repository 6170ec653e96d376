package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/go-phases/pkg/pipeline"
)

func newFunctionsCmd(reg *pipeline.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the step functions a definition can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range reg.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}

	return cmd
}
