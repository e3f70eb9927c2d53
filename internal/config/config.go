// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads cpcm's settings from defaults, config.yaml in the data
// directory, a local cpcm.yaml, CPCM_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// DataDirEnv overrides the data directory. It must be an absolute path.
	DataDirEnv = "CPCM_DATA_DIR"

	configFileName = "config"
	localFileName  = "cpcm.yaml"
	lockFileName   = ".cpcm-lock"
	dbFileName     = "cpcm.db"
)

// ErrRelativeDataDir is returned when CPCM_DATA_DIR is not absolute.
var ErrRelativeDataDir = errors.New(DataDirEnv + " must be an absolute path")

// DataDir returns the directory holding config.yaml, the SQLite database and
// the pass lock. It honours CPCM_DATA_DIR and defaults to ~/.cpcm.
func DataDir() (string, error) {
	if dir, ok := os.LookupEnv(DataDirEnv); ok && dir != "" {
		if !filepath.IsAbs(dir) {
			return "", fmt.Errorf("%w: %q", ErrRelativeDataDir, dir)
		}
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(home, ".cpcm"), nil
}

// ConfigPath returns the full path of config.yaml inside the data dir.
func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName+".yaml"), nil
}

// LockPath returns the path of the file lock guarding sync passes.
func LockPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, lockFileName), nil
}

// DefaultDSN returns the SQLite database path inside the data dir.
func DefaultDSN() string {
	dir, err := DataDir()
	if err != nil {
		return dbFileName
	}
	return filepath.Join(dir, dbFileName)
}

// LoadConfig resolves T from all configuration sources. When no config file
// exists the returned value is still populated from defaults, env and flags,
// and the error is a viper.ConfigFileNotFoundError so callers can persist a
// default file.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFile *string) (T, error) {
	var c T
	v := viper.New()

	// 1. defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. config file: explicit --config, otherwise config.yaml in the data dir
	v.SetConfigType("yaml")
	if additionalConfigFile != nil && *additionalConfigFile != "" {
		v.SetConfigFile(*additionalConfigFile)
	} else {
		v.SetConfigName(configFileName)
		dir, err := DataDir()
		if err != nil {
			return c, err
		}
		v.AddConfigPath(dir)
	}

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return c, err
		}
		notFound = err
	}

	// 3. ./cpcm.yaml overrides the data dir file
	if err := mergeLocalConfig(v); err != nil {
		return c, err
	}

	// 4. environment
	v.SetEnvPrefix("cpcm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 5. flags
	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, notFound
}

// mergeLocalConfig merges ./cpcm.yaml when present.
func mergeLocalConfig(v *viper.Viper) error {
	if _, err := os.Stat(localFileName); err != nil {
		return nil
	}
	f, err := os.Open(localFileName)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("could not read %s: %w", localFileName, err)
	}
	return nil
}

// WriteConfigFile writes c as YAML to config.yaml in the data dir.
func WriteConfigFile[T any](c *T) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path, creating parent directories.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	// 0600: the DSN may contain database credentials
	return os.WriteFile(path, data, 0o600)
}
