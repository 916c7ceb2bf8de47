package doctor

import (
	"context"
	"errors"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/partyline/internal/core/config"
)

// ConfigCheck validates the loaded configuration and the file it came from.
type ConfigCheck struct {
	config     *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.Addf(StatusFail, "Config loaded", "configuration not loaded")
		return result
	}

	c.source(&result)

	if err := c.config.ValidateDeep(c.configPath); err != nil {
		addFieldErrors(&result, err)
	}

	for _, w := range c.config.Warnings() {
		label := w.Category
		if w.Item != "" {
			label += " (" + w.Item + ")"
		}
		result.Addf(StatusWarn, label, "%s", w.Message)
	}

	return result
}

// source reports where settings were read from. A missing file is not an
// error; defaults and environment overrides apply.
func (c *ConfigCheck) source(result *Result) {
	switch _, err := os.Stat(c.configPath); {
	case c.configPath == "":
		result.Addf(StatusPass, "Config file", "defaults (no file configured)")
	case errors.Is(err, os.ErrNotExist):
		result.Addf(StatusPass, "Config file", "defaults (%s not found)", c.configPath)
	default:
		result.Addf(StatusPass, "Config file", "%s", c.configPath)
	}
}

// addFieldErrors records one failure per invalid field.
func addFieldErrors(result *Result, err error) {
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		result.Addf(StatusFail, "validation", "%v", err)
		return
	}

	for _, fe := range fieldErrs {
		label := fe.Field
		if label == "" {
			label = "validation"
		}
		result.Addf(StatusFail, label, "%v", fe.Err)
	}
}
