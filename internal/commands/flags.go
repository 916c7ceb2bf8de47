package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/partyline/internal/core/config"
	"github.com/hay-kot/partyline/internal/store/tablefile"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "partyline", "config.yaml")
}

// config returns the loaded configuration, or defaults when the Before hook
// did not run.
func (f *Flags) config() *config.Config {
	if f.Config == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return f.Config
}

// openTable opens the configured table. Extra options are applied after the
// configured fetch window.
func (f *Flags) openTable(opts ...tablefile.Option) (*tablefile.Table, error) {
	cfg := f.config()

	base := []tablefile.Option{
		tablefile.WithFetchWindow(cfg.Table.FetchWindow),
		tablefile.WithLogger(log.With().Str("component", "table").Logger()),
	}

	return tablefile.Open(cfg.Table.Paths, append(base, opts...)...)
}
