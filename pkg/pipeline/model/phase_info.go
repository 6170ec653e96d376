package model

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownStrategy is returned when a strategy name is not recognised.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy selects how the steps of a phase are run.
type Strategy string

const (
	// Sequential runs steps one after the other on the calling goroutine.
	Sequential Strategy = "sequential"
	// Thread runs steps on a bounded pool of goroutines sharing memory.
	Thread Strategy = "thread"
	// Process runs steps on a pool of worker processes with no shared memory.
	Process Strategy = "process"
)

func (s Strategy) String() string {
	return string(s)
}

var strategyAliases = map[string]Strategy{
	"sequential":       Sequential,
	"none":             Sequential,
	"thread":           Thread,
	"threads":          Thread,
	"thread-parallel":  Thread,
	"multithreading":   Thread,
	"process":          Process,
	"processes":        Process,
	"process-parallel": Process,
	"multiprocessing":  Process,
}

// ParseStrategy converts a strategy name, accepting the historical aliases.
func ParseStrategy(name string) (Strategy, error) {
	normalised := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")

	strategy, ok := strategyAliases[normalised]
	if !ok {
		return "", errors.Wrapf(ErrUnknownStrategy, "%q", name)
	}

	return strategy, nil
}

// PhaseState is the lifecycle state of a single phase run.
type PhaseState string

const (
	Pending     PhaseState = "pending"
	Dispatching PhaseState = "dispatching"
	Collecting  PhaseState = "collecting"
	Completed   PhaseState = "completed"
	Failed      PhaseState = "failed"
)

// PhaseInfo describes a phase at a given position within a pipeline run.
type PhaseInfo struct {
	Name     string
	Key      string
	Index    int
	Strategy Strategy
	Workers  int
	Steps    []*StepInfo
}
