package model

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownPolicy is returned when an error policy name is not recognised.
var ErrUnknownPolicy = errors.New("unknown error policy")

// ErrorPolicy tells a step what to do when its logic faults.
type ErrorPolicy string

const (
	// Stop turns a fault into a fatal outcome that fails the phase.
	Stop ErrorPolicy = "stop"
	// Continue degrades a fault to a diagnostic value and logs it.
	Continue ErrorPolicy = "continue"
	// SilentlyContinue degrades a fault to a diagnostic value without logging.
	SilentlyContinue ErrorPolicy = "silentlycontinue"
)

func (p ErrorPolicy) String() string {
	return string(p)
}

// Valid reports whether p is one of the known policies.
func (p ErrorPolicy) Valid() bool {
	switch p {
	case Stop, Continue, SilentlyContinue:
		return true
	}

	return false
}

// ParseErrorPolicy converts a policy name. The empty string maps to Stop.
func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	normalised := strings.ToLower(strings.TrimSpace(name))
	normalised = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalised)

	if normalised == "" {
		return Stop, nil
	}

	policy := ErrorPolicy(normalised)
	if !policy.Valid() {
		return "", errors.Wrapf(ErrUnknownPolicy, "%q", name)
	}

	return policy, nil
}

// OutcomeKind tags the result of a single step execution.
type OutcomeKind int

const (
	// Success means the logic returned normally.
	Success OutcomeKind = iota
	// Degraded means the logic faulted but the policy let the phase continue.
	Degraded
	// Fatal means the logic faulted under the Stop policy.
	Fatal
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case Degraded:
		return "degraded"
	case Fatal:
		return "fatal"
	}

	return "unknown"
}

// StepInfo describes a step at a given position within a phase.
type StepInfo struct {
	Name          string
	Key           string
	Index         int
	Policy        ErrorPolicy
	WantsPrevious bool
}
