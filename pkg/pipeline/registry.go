package pipeline

import (
	"encoding/gob"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry holds named step functions. The Process strategy only runs steps whose function is
// registered, because worker processes look functions up by name.
type Registry struct {
	mu     sync.RWMutex
	logics map[string]logic
}

type logic struct {
	fn   Func
	opts []StepOption
}

// DefaultRegistry is the registry used by phases that do not set one.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{logics: make(map[string]logic)}
}

// Register adds a function. opts are applied to every step built with NewStep,
// typically WithPreviousResult for functions that read the previous phase result.
func (r *Registry) Register(name string, fn Func, opts ...StepOption) error {
	if name == "" {
		return newConfigurationError("function", ErrEmptyStepName)
	}

	if fn == nil {
		return newConfigurationError(name, ErrNilFunc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logics[name]; ok {
		return newConfigurationError(name, ErrDuplicateFunction)
	}

	r.logics[name] = logic{fn: fn, opts: opts}

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, fn Func, opts ...StepOption) {
	if err := r.Register(name, fn, opts...); err != nil {
		panic(err)
	}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.logics[name]

	return ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.logics))
	for name := range r.logics {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NewStep builds a step from a registered function. Only steps built this way can run in a
// Process phase using the same registry.
func (r *Registry) NewStep(name string, args Args, policy ErrorPolicy, opts ...StepOption) (*Step, error) {
	r.mu.RLock()
	registered, ok := r.logics[name]
	r.mu.RUnlock()

	if !ok {
		return nil, newConfigurationError(name, ErrUnregisteredFunction)
	}

	allOpts := append(append([]StepOption{}, registered.opts...), opts...)

	step, err := NewStep(name, registered.fn, args, policy, allOpts...)
	if err != nil {
		return nil, err
	}

	step.registry = r

	return step, nil
}

// Register adds a function to DefaultRegistry.
func Register(name string, fn Func, opts ...StepOption) error {
	return DefaultRegistry.Register(name, fn, opts...)
}

// RegisterType records the concrete type of value so that it can travel to and from worker
// processes inside arguments and results. Basic types, []any and map[string]any are registered.
func RegisterType(value any) {
	gob.Register(value)
}

func init() {
	RegisterType(map[string]any{})
	RegisterType([]any{})
	RegisterType(Args{})
}

func (r *Registry) lookup(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registered, ok := r.logics[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnregisteredFunction, "%q", name)
	}

	return registered.fn, nil
}
