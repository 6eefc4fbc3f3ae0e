package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gnoswap-labs/symrw/internal/report"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
)

const (
	settingsName = ".symrw"
	settingsType = "yaml"
	envPrefix    = "SYMRW"

	defaultTimeout = 5 * time.Minute
)

// Settings are the options shared by every subcommand. They are read from
// .symrw.yaml (working directory, then $HOME), SYMRW_* environment
// variables and command-line flags, in increasing order of precedence.
type Settings struct {
	Table        string        `mapstructure:"table"`
	Mode         string        `mapstructure:"mode"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxSteps     int           `mapstructure:"max_steps"`
	FoldLiterals bool          `mapstructure:"fold_literals"`
	Verbose      bool          `mapstructure:"verbose"`
	Rules        string        `mapstructure:"rules"`
}

// flagKeys maps settings keys to the flags that override them.
var flagKeys = map[string]string{
	"table":         "table",
	"mode":          "mode",
	"timeout":       "timeout",
	"max_steps":     "max-steps",
	"fold_literals": "fold-literals",
	"verbose":       "verbose",
	"rules":         "rules",
}

// LoadSettings reads settings from path, or from the default locations when
// path is empty. A missing settings file is not an error. Flags present in
// flags take precedence when they were set explicitly.
func LoadSettings(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(settingsType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(settingsName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return &s, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("table", "")
	v.SetDefault("mode", report.ModePrint.String())
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("max_steps", rewrite.DefaultMaxSteps)
	v.SetDefault("fold_literals", true)
	v.SetDefault("verbose", false)
	v.SetDefault("rules", "")
}

// Validate checks the values that cannot be checked by type alone.
func (s *Settings) Validate() error {
	if _, err := report.ParseMode(s.Mode); err != nil {
		return err
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", s.MaxSteps)
	}
	return nil
}
