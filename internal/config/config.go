// Package config resolves tool configuration from a config file, environment
// variables, and flag overrides, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved tool configuration.
type Config struct {
	// Root is the source tree the pipeline operates on.
	Root string `mapstructure:"root"`
	// Plan is the path to a remediation plan file; empty selects the
	// built-in plan.
	Plan string `mapstructure:"plan"`
	// Out is the directory reports are written to.
	Out string `mapstructure:"out"`
	// APIPrefix filters which header declarations count as public API in
	// the statistics report.
	APIPrefix string `mapstructure:"api_prefix"`

	LogLevel string `mapstructure:"log_level"`
	// NoTUI forces plain line output even on a terminal.
	NoTUI bool `mapstructure:"no_tui"`
}

const envPrefix = "REDRESS"

// Load reads configuration. cfgFile overrides the default search of
// redress.yaml in the working directory; a missing default file is not an
// error. Environment variables use the REDRESS_ prefix (REDRESS_LOG_LEVEL).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("root", ".")
	v.SetDefault("plan", "")
	v.SetDefault("out", "reports")
	v.SetDefault("api_prefix", "json_")
	v.SetDefault("log_level", "info")
	v.SetDefault("no_tui", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("redress")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
