package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Transport.DialTimeout)
	if err != nil {
		return fmt.Errorf("transport.dial_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("transport.dial_timeout: must be positive, got %s", d)
	}
	if cfg.Listing.Mode == "sftp" && cfg.Transport.Kind != "native" {
		return fmt.Errorf("listing.mode sftp needs transport.kind native")
	}
	return nil
}

// Timeout is transport.dial_timeout parsed. Only call it on a
// validated Config.
func (c TransportConfig) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
	return d
}

func formatValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		e := errs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
