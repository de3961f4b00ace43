// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package settings loads and saves the obdstat configuration file, including
// the per-channel enabled flags.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

const (
	// ConfigDir is the config directory relative to the home directory
	ConfigDir = ".config/obdstat"
	// ConfigFile is the config file name
	ConfigFile = "config.yaml"
)

// Settings is the decoded configuration
type Settings struct {
	Port           string        `mapstructure:"port"`
	Baud           int           `mapstructure:"baud"`
	URL            string        `mapstructure:"url"`
	Username       string        `mapstructure:"username"`
	Units          string        `mapstructure:"units"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	Page           int           `mapstructure:"page"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

// UnitSystem parses the configured unit system
func (s *Settings) UnitSystem() (obd.UnitSystem, error) {
	return obd.ParseUnitSystem(s.Units)
}

// Store is a viper-backed configuration file
type Store struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns ~/.config/obdstat/config.yaml, or config.yaml in the
// working directory when the home directory is unknown
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ConfigFile
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

// Open reads the config file at path. A missing file is not an error; the
// store then holds defaults and is created on the first Save.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return &Store{v: v, path: path}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("baud", 38400)
	v.SetDefault("units", obd.Metric.String())
	v.SetDefault("request_timeout", obd.DefaultRequestTimeout.String())
	v.SetDefault("tick_interval", "5ms")
	v.SetDefault("page", 0)
}

// Path returns the config file path
func (s *Store) Path() string {
	return s.path
}

// Viper returns the underlying viper instance for flag binding
func (s *Store) Viper() *viper.Viper {
	return s.v
}

// Settings decodes the current configuration
func (s *Store) Settings() (*Settings, error) {
	cfg := &Settings{}
	if err := s.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid config format in %s: %w", s.path, err)
	}
	if _, err := cfg.UnitSystem(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", s.path, err)
	}
	return cfg, nil
}

func sensorKey(index int) string {
	return fmt.Sprintf("sensors.sensor%d", index)
}

// LoadSensorStates applies the stored enabled flags to c.
// Channels without a stored flag are enabled.
func (s *Store) LoadSensorStates(c *obd.Catalog) {
	flags := make(map[int]bool, c.Len())
	for i := 0; i < c.Len(); i++ {
		if key := sensorKey(i); s.v.IsSet(key) {
			flags[i] = s.v.GetInt(key) != 0
		}
	}
	c.ApplyEnabledFlags(flags)
}

// SaveSensorStates stores the enabled flags of c and writes the file
func (s *Store) SaveSensorStates(c *obd.Catalog) error {
	for index, on := range c.EnabledFlags() {
		value := 0
		if on {
			value = 1
		}
		s.v.Set(sensorKey(index), value)
	}
	return s.Save()
}

// Set stores a single value; call Save to persist it
func (s *Store) Set(key string, value any) {
	s.v.Set(key, value)
}

// Save writes the configuration to its path
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", s.path, err)
	}
	return nil
}
