// Package config loads host tool settings from a YAML file, CORECLOCK_* environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"coreclock/core"
	"coreclock/host/serial"
)

// EnvPrefix is prepended to every environment override, e.g. CORECLOCK_OSCILLATORS_HSE
const EnvPrefix = "CORECLOCK"

// Config is the full host configuration
type Config struct {
	Oscillators core.Oscillators `mapstructure:"oscillators"`
	Serial      serial.Config    `mapstructure:"serial"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus exporter of the monitor command
type MetricsConfig struct {
	// Addr is the listen address, empty disables the exporter
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance with defaults and environment lookup configured
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults mirrors the firmware defaults
func setDefaults(v *viper.Viper) {
	osc := core.DefaultOscillators()
	v.SetDefault("oscillators.hse", osc.HSE)
	v.SetDefault("oscillators.hsi", osc.HSI)
	v.SetDefault("oscillators.csi", osc.CSI)

	ser := serial.DefaultConfig("/dev/ttyACM0")
	v.SetDefault("serial.device", ser.Device)
	v.SetDefault("serial.baud", ser.Baud)
	v.SetDefault("serial.read_timeout", ser.ReadTimeout)

	v.SetDefault("metrics.addr", "")
}

// Load reads path (if not empty) into v and decodes the result.
// A missing explicit path is an error; no path means defaults plus environment.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values the rest of the tool relies on
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Oscillators.HSE == 0 {
		errs = append(errs, errors.New("oscillators.hse must be non-zero"))
	}
	if cfg.Oscillators.HSI == 0 {
		errs = append(errs, errors.New("oscillators.hsi must be non-zero"))
	}
	if cfg.Oscillators.CSI == 0 {
		errs = append(errs, errors.New("oscillators.csi must be non-zero"))
	}
	if cfg.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud))
	}
	if cfg.Serial.ReadTimeout < 0 || cfg.Serial.ReadTimeout > time.Minute {
		errs = append(errs, fmt.Errorf("serial.read_timeout out of range: %s", cfg.Serial.ReadTimeout))
	}
	return errors.Join(errs...)
}
