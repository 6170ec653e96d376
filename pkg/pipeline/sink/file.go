package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-phases/pkg/pipeline"
)

const (
	folderTimeLayout = "20060102_150405"
	separator        = "--------------------"
)

// FileSink writes one text file per phase into "<dir>/<pipeline>_<timestamp>".
// The folder is chosen once per run, when the run begins, so all the phases of a run share it.
type FileSink struct {
	dir  string
	now  func() time.Time
	mu   sync.Mutex
	name string
	run  string
}

// NewFileSink creates a sink writing below dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now, name: "pipeline"}
}

// BeginRun fixes the run folder.
func (s *FileSink) BeginRun(pipelineName string, _ uuid.UUID, started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.name = pipelineName
	s.run = s.folder(started)

	return nil
}

// Folder returns the folder of the current run, empty before the first run or phase.
func (s *FileSink) Folder() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run
}

func (s *FileSink) folder(at time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s", s.name, at.Format(folderTimeLayout)))
}

// Consume writes "<phase><n>.txt" where n is the number of files already in the run folder.
func (s *FileSink) Consume(_ context.Context, phase string, result pipeline.Result, strategy pipeline.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == "" {
		s.run = s.folder(s.now())
	}

	err := os.MkdirAll(s.run, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create log folder %s", s.run)
	}

	entries, err := os.ReadDir(s.run)
	if err != nil {
		return errors.Wrapf(err, "unable to list log folder %s", s.run)
	}

	fileName := filepath.Join(s.run, fmt.Sprintf("%s%d.txt", phase, len(entries)))

	err = os.WriteFile(fileName, []byte(Format(result, strategy)), 0o644)
	if err != nil {
		return errors.Wrapf(err, "unable to write phase log %s", fileName)
	}

	return nil
}

// Format renders a phase result the way FileSink writes it.
func Format(result pipeline.Result, strategy pipeline.Strategy) string {
	var builder strings.Builder

	builder.WriteString("Parallel Execution Method\n")
	builder.WriteString(string(strategy) + "\n")
	builder.WriteString(separator + "\n")

	result.Each(func(key string, value any) {
		fmt.Fprintf(&builder, "%s\n%v\n\n%s\n\n", key, value, separator)
	})

	return builder.String()
}

var (
	_ pipeline.Sink       = (*FileSink)(nil)
	_ pipeline.RunStarter = (*FileSink)(nil)
)
