package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var ErrConfigExists = errors.New("config file already exists")

const header = `# ssher configuration file
#
# Every key can be overridden by an environment variable: upper-case the
# key, replace dots with underscores and prefix SSHER_, for example
# SSHER_LISTING_MODE=legacy.

`

// WriteDefault writes the default configuration to path, or DefaultPath
// when path is empty, and returns where it wrote. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	body, err := yaml.Marshal(Default())
	if err != nil {
		return path, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
