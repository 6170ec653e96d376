package pipeline

import (
	"sort"
)

// PreviousResultArg is the argument under which the previous phase result is injected.
const PreviousResultArg = "previous_phase_result"

// Args is the argument mapping of a step.
type Args map[string]any

func (a Args) clone() Args {
	cloned := make(Args, len(a)+1)
	for key, value := range a {
		cloned[key] = value
	}

	return cloned
}

// Keys returns the argument names, sorted.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for key := range a {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Previous returns the previous phase result injected into the arguments, or an empty mapping.
func (a Args) Previous() map[string]any {
	previous, ok := a[PreviousResultArg].(map[string]any)
	if !ok || previous == nil {
		return map[string]any{}
	}

	return previous
}

// Result is the immutable, ordered result mapping of a phase run.
// Keys are "<function-name><index>" in step declaration order.
type Result struct {
	keys   []string
	values map[string]any
}

// NewResult builds a Result from a mapping, with keys sorted. It is mostly useful
// to seed the first phase of a pipeline or to run a phase on its own.
func NewResult(values map[string]any) Result {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	res := Result{keys: keys, values: make(map[string]any, len(values))}
	for key, value := range values {
		res.values[key] = value
	}

	return res
}

// Len returns the number of entries.
func (r Result) Len() int {
	return len(r.keys)
}

// Keys returns a copy of the keys in insertion order.
func (r Result) Keys() []string {
	return append([]string{}, r.keys...)
}

// Get returns the value stored under key.
func (r Result) Get(key string) (any, bool) {
	value, ok := r.values[key]

	return value, ok
}

// Map returns a fresh copy of the mapping. Each step receives its own copy.
func (r Result) Map() map[string]any {
	copied := make(map[string]any, len(r.values))
	for key, value := range r.values {
		copied[key] = value
	}

	return copied
}

// Each calls fn for every entry in insertion order.
func (r Result) Each(fn func(key string, value any)) {
	for _, key := range r.keys {
		fn(key, r.values[key])
	}
}

type resultBuilder struct {
	res Result
}

func newResultBuilder(size int) *resultBuilder {
	return &resultBuilder{res: Result{keys: make([]string, 0, size), values: make(map[string]any, size)}}
}

func (b *resultBuilder) add(key string, value any) {
	b.res.keys = append(b.res.keys, key)
	b.res.values[key] = value
}

func (b *resultBuilder) build() Result {
	return b.res
}

// RunResult is the ordered result of a pipeline run, keyed by "<phase-name><index>".
type RunResult struct {
	keys   []string
	phases map[string]Result
}

func newRunResult() RunResult {
	return RunResult{keys: []string{}, phases: make(map[string]Result)}
}

func (r *RunResult) add(key string, res Result) {
	r.keys = append(r.keys, key)
	r.phases[key] = res
}

// Len returns the number of retained phases.
func (r RunResult) Len() int {
	return len(r.keys)
}

// Keys returns a copy of the phase keys in run order.
func (r RunResult) Keys() []string {
	return append([]string{}, r.keys...)
}

// Get returns the result of the phase stored under key.
func (r RunResult) Get(key string) (Result, bool) {
	res, ok := r.phases[key]

	return res, ok
}

// Last returns the result of the last retained phase.
func (r RunResult) Last() (Result, bool) {
	if len(r.keys) == 0 {
		return Result{}, false
	}

	return r.phases[r.keys[len(r.keys)-1]], true
}
