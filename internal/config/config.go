// Package config loads ssher settings from a YAML file, SSHER_* environment
// variables and defaults, in that order of increasing precedence for env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete ssher configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Listing   ListingConfig   `mapstructure:"listing" yaml:"listing"`
	View      ViewConfig      `mapstructure:"view" yaml:"view"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap"`
}

// LoggingConfig controls log output. Logs never go to stdout by default.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=console json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// TransportConfig selects how remote commands are run.
type TransportConfig struct {
	// Kind is exec (spawn the ssh binary) or native (in-process client).
	Kind      string `mapstructure:"kind" yaml:"kind" validate:"required,oneof=exec native"`
	SSHBinary string `mapstructure:"ssh_binary" yaml:"ssh_binary" validate:"required"`

	// The rest only apply to the native transport.
	KnownHosts            string   `mapstructure:"known_hosts" yaml:"known_hosts"`
	InsecureIgnoreHostKey bool     `mapstructure:"insecure_ignore_host_key" yaml:"insecure_ignore_host_key"`
	DialTimeout           string   `mapstructure:"dial_timeout" yaml:"dial_timeout" validate:"required"`
	IdentityFiles         []string `mapstructure:"identity_files" yaml:"identity_files,omitempty"`
}

// ListingConfig selects the directory listing protocol.
type ListingConfig struct {
	Mode    string `mapstructure:"mode" yaml:"mode" validate:"required,oneof=batched legacy sftp"`
	ShowDot bool   `mapstructure:"show_dot" yaml:"show_dot"`
}

type ViewConfig struct {
	Tabstop int `mapstructure:"tabstop" yaml:"tabstop" validate:"gte=1,lte=64"`
}

type BootstrapConfig struct {
	// MaxConcurrency caps parallel setups; 0 is unbounded.
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency" validate:"gte=0"`
}

// Load reads configPath, or the default location when it is empty. A
// missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// SSHER_LISTING_MODE=legacy
	v.SetEnvPrefix("SSHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are bound explicitly so Unmarshal sees them without a file.
var envKeys = []string{
	"logging.level", "logging.format", "logging.output",
	"transport.kind", "transport.ssh_binary", "transport.known_hosts",
	"transport.insecure_ignore_host_key", "transport.dial_timeout",
	"listing.mode", "listing.show_dot",
	"view.tabstop",
	"bootstrap.max_concurrency",
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir is $XDG_CONFIG_HOME/ssher, ~/.config/ssher, or "." as a
// last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ssher")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ssher")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
