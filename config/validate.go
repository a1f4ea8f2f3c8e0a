package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the struct tags of a backend configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid backend config: %w", err)
	}
	return nil
}

// Validate checks the struct tags of a training configuration.
func (c *TrainConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid training config: %w", err)
	}
	return nil
}
