package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	scerr "simplecom/internal/errors"
)

// EnvPrefix is prepended to every env tag of Config.
const EnvPrefix = "SIMPLECOM_"

// ConfigEnv names a config file when --config is not given.
const ConfigEnv = EnvPrefix + "CONFIG"

// DefaultConfigPath returns <UserConfigDir>/simplecom/config.yaml, or ""
// when the platform has no user config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "simplecom", "config.yaml")
}

// ConfigPath picks the config file to read.  explicit reports whether
// the operator named it, in which case it must exist.
func ConfigPath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if v := os.Getenv(ConfigEnv); v != "" {
		return v, true
	}
	return DefaultConfigPath(), false
}

// Load overlays the config file and then the environment onto cfg.
func Load(cfg *Config, flagValue string) error {
	path, explicit := ConfigPath(flagValue)
	if path != "" {
		err := LoadFile(cfg, path)
		switch {
		case err == nil:
			cfg.ConfigFile = path
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return err
		}
	}
	return LoadFromEnv(cfg)
}

// LoadFile overlays the YAML file at path onto cfg.  Keys missing from
// the file keep their current value; unknown keys are rejected.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &scerr.ConfigError{Field: "config", Value: path, Message: "cannot read config file", Hint: err.Error(), Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &scerr.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}
	return nil
}

// LoadFromEnv overlays SIMPLECOM_* environment variables onto cfg.
// Only variables that are set override the existing value.
func LoadFromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return &scerr.ConfigError{Field: "env", Message: err.Error(), Err: err}
	}
	return nil
}
