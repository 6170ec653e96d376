package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-phases/internal/config"
	"github.com/askiada/go-phases/pkg/pipeline"
	"github.com/askiada/go-phases/pkg/pipeline/drawer"
	"github.com/askiada/go-phases/pkg/pipeline/measure"
	"github.com/askiada/go-phases/pkg/pipeline/sink"
)

type runOptions struct {
	ConfigPath  string
	LogDir      string
	GraphPath   string
	MetricsAddr string
	LastOnly    bool
}

func newRunCmd(flags *rootFlags, reg *pipeline.Registry) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a pipeline definition and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = args[0]

			log, err := flags.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return runPipeline(cmd.Context(), cmd.OutOrStdout(), log, reg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.LogDir, "log-dir", "", "Write one file per phase under this directory (overrides log_dir)")
	cmd.Flags().StringVar(&opts.GraphPath, "graph", "", "Write a Graphviz DOT file of the run")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().BoolVar(&opts.LastOnly, "last-only", false, "Only keep the result of the last phase")

	return cmd
}

func runPipeline(ctx context.Context, out io.Writer, log zerolog.Logger, reg *pipeline.Registry, opts runOptions) error {
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return errors.New("a definition file is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Parse(opts.ConfigPath)
	if err != nil {
		return err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithSink(sink.NewLogSink(log)),
	}

	if opts.LastOnly {
		pipeOpts = append(pipeOpts, pipeline.WithRetainAllPhaseResults(false))
	}

	logDir := cfg.LogDir
	if opts.LogDir != "" {
		logDir = opts.LogDir
	}

	if logDir != "" {
		pipeOpts = append(pipeOpts, pipeline.WithSink(sink.NewFileSink(logDir)))
	}

	msr := measure.NewDefaultMeasure()
	pipeOpts = append(pipeOpts, pipeline.WithOptions(measure.PipelineMeasure(msr)))

	if opts.GraphPath != "" {
		pipeOpts = append(pipeOpts, pipeline.WithOptions(drawer.PipelineDrawer(drawer.NewDOTDrawer(opts.GraphPath), msr)))
	}

	if opts.MetricsAddr != "" {
		promReg := prometheus.NewRegistry()
		pipeOpts = append(pipeOpts, pipeline.WithOptions(measure.NewPrometheus(cfg.Name, promReg)))

		stop, serveErr := serveMetrics(log, opts.MetricsAddr, promReg)
		if serveErr != nil {
			return serveErr
		}
		defer stop()
	}

	pipe, err := config.Build(cfg, reg, pipeOpts...)
	if err != nil {
		return err
	}

	run, err := pipe.Run(ctx)
	if err != nil {
		return err
	}

	for _, key := range run.Keys() {
		metric := msr.GetMetric(key)
		if metric == nil {
			continue
		}

		log.Debug().Str("phase", key).Dur("total", metric.GetTotalDuration()).Dur("avg_step", metric.AVGDuration()).Msg("phase timing")
	}

	return writeRunResult(out, run)
}

func serveMetrics(log zerolog.Logger, addr string, reg *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("serving metrics")

		serveErr := server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error().Err(serveErr).Msg("metrics server error")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(ctx)
	}, nil
}

// writeRunResult prints the run result as YAML, keeping phases and steps in run order.
func writeRunResult(out io.Writer, run pipeline.RunResult) error {
	root := &yaml.Node{Kind: yaml.MappingNode}

	for _, phaseKey := range run.Keys() {
		res, _ := run.Get(phaseKey)

		phaseNode := &yaml.Node{Kind: yaml.MappingNode}

		var encodeErr error

		res.Each(func(key string, value any) {
			valueNode := &yaml.Node{}
			if err := valueNode.Encode(value); err != nil && encodeErr == nil {
				encodeErr = errors.Wrapf(err, "unable to encode %s.%s", phaseKey, key)
			}

			phaseNode.Content = append(phaseNode.Content, scalar(key), valueNode)
		})

		if encodeErr != nil {
			return encodeErr
		}

		root.Content = append(root.Content, scalar(phaseKey), phaseNode)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)

	err := enc.Encode(root)
	if err != nil {
		return errors.Wrap(err, "unable to write run result")
	}

	return errors.Wrap(enc.Close(), "unable to write run result")
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
