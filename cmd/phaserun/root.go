package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/askiada/go-phases/internal/logger"
	"github.com/askiada/go-phases/pkg/pipeline"
)

type rootFlags struct {
	verbose bool
	json    bool
}

func (f *rootFlags) logger(w io.Writer) (zerolog.Logger, error) {
	level := "info"
	if f.verbose {
		level = "debug"
	}

	return logger.New(logger.Options{Level: level, HumanReadable: !f.json, Writer: w})
}

func newRootCmd(reg *pipeline.Registry) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "phaserun",
		Short:         "phaserun runs pipelines of phases defined in YAML files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Log as JSON instead of console output")

	cmd.AddCommand(newRunCmd(flags, reg))
	cmd.AddCommand(newValidateCmd(reg))
	cmd.AddCommand(newFunctionsCmd(reg))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
