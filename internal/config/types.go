package config

// Config is a pipeline definition file.
type Config struct {
	Name        string `yaml:"name" validate:"required,min=1,max=100"`
	Description string `yaml:"description,omitempty"`
	// RetainAllPhaseResults defaults to true when omitted.
	RetainAllPhaseResults *bool   `yaml:"retain_all_phase_results,omitempty"`
	LogDir                string  `yaml:"log_dir,omitempty"`
	Phases                []Phase `yaml:"phases" validate:"required,min=1,dive"`
}

// Phase describes a group of steps run under one strategy.
type Phase struct {
	Name      string `yaml:"name,omitempty" validate:"omitempty,max=100,identifier"`
	Strategy  string `yaml:"strategy" validate:"required,strategy"`
	Threads   int    `yaml:"threads,omitempty" validate:"min=0,max=1024"`
	Processes int    `yaml:"processes,omitempty" validate:"min=0,max=1024"`
	Steps     []Step `yaml:"steps" validate:"required,min=1,dive"`
}

// Step binds a registered function to its arguments and error policy.
type Step struct {
	Function string         `yaml:"function" validate:"required,identifier"`
	OnError  string         `yaml:"on_error,omitempty" validate:"omitempty,policy"`
	Args     map[string]any `yaml:"args,omitempty"`
}

// RetainAll reports whether every phase result is kept in the run result.
func (c *Config) RetainAll() bool {
	if c.RetainAllPhaseResults == nil {
		return true
	}

	return *c.RetainAllPhaseResults
}
