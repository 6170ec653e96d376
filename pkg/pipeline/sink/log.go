package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/askiada/go-phases/pkg/pipeline"
)

// LogSink writes one info entry per phase, with one field per result key.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Consume(_ context.Context, phase string, result pipeline.Result, strategy pipeline.Strategy) error {
	event := s.logger.Info().Str("phase", phase).Str("strategy", string(strategy)).Int("steps", result.Len())

	values := zerolog.Dict()
	result.Each(func(key string, value any) {
		values = values.Interface(key, value)
	})

	event.Dict("result", values).Msg("phase completed")

	return nil
}

var _ pipeline.Sink = (*LogSink)(nil)
