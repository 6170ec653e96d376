package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/askiada/go-phases/pkg/pipeline/model"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return identifierPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
			_, err := model.ParseStrategy(fl.Field().String())

			return err == nil
		})

		_ = v.RegisterValidation("policy", func(fl validator.FieldLevel) bool {
			_, err := model.ParseErrorPolicy(fl.Field().String())

			return err == nil
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks the schema of a definition. Function names are only checked against
// a registry by Build.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewValidationError("config", "configuration is nil", nil)
	}

	err := validatorInstance().Struct(cfg)
	if err != nil {
		return convertValidationError(err)
	}

	return nil
}

func convertValidationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())

		return NewValidationError(field, msg, err)
	}

	return NewValidationError("config", err.Error(), err)
}

// yamlishFieldName turns "Config.Phases[0].Steps[1].OnError" into "phases[0].steps[1].onerror".
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}

	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}

	return strings.Join(lowered, ".")
}
