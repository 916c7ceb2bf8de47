package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/partyline/internal/core/board"
)

// Warning represents a non-fatal configuration issue.
type Warning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is usable. Errors are reported as
// criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrors

	if len(c.Table.Paths) == 0 {
		errs = append(errs, criterio.FieldError{Field: "table.paths", Err: errors.New("at least one path is required")})
	}
	for i, p := range c.Table.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, criterio.FieldError{
				Field: fmt.Sprintf("table.paths[%d]", i),
				Err:   errors.New("path cannot be empty"),
			})
		}
	}

	if c.Table.FetchWindow < 1 {
		errs = append(errs, criterio.FieldError{Field: "table.fetch_window", Err: errors.New("must be at least 1")})
	}

	// A request needs its type byte and at least one byte of payload.
	if c.Round.MaxRequestBytes < 2 {
		errs = append(errs, criterio.FieldError{Field: "round.max_request_bytes", Err: errors.New("must be at least 2")})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateDeep runs Validate and additionally checks the config file itself.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrors

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			errs = append(errs, criterio.FieldError{
				Field: "config",
				Err:   fmt.Errorf("%s is a directory, not a file", configPath),
			})
		}
	}

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Warnings returns settings that are valid but likely to cause trouble.
func (c *Config) Warnings() []Warning {
	var warnings []Warning

	if c.Table.FetchWindow != board.DefaultFetchWindow {
		warnings = append(warnings, Warning{
			Category: "Table",
			Item:     "fetch_window",
			Message:  fmt.Sprintf("fetch window is %d, not %d; every replica must use the same value", c.Table.FetchWindow, board.DefaultFetchWindow),
		})
	}

	if c.Round.MaxRequestBytes < board.MessageSize+1 {
		warnings = append(warnings, Warning{
			Category: "Round",
			Item:     "max_request_bytes",
			Message:  fmt.Sprintf("requests are cut at %d bytes, shorter than a full %d byte message", c.Round.MaxRequestBytes, board.MessageSize),
		})
	}

	return warnings
}
