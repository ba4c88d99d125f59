// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	API   APIConfig   `toml:"api"`
	Sync  SyncConfig  `toml:"sync"`
	Voice VoiceConfig `toml:"voice"`
}

// APIConfig holds assistant backend settings.
type APIConfig struct {
	Endpoint  string  `toml:"endpoint"`
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
	TimeoutMS int     `toml:"timeout_ms"`
}

// SyncConfig holds conversation cache and reconciliation settings.
type SyncConfig struct {
	StalenessMS      int `toml:"staleness_ms"`
	RetentionMS      int `toml:"retention_ms"`
	ReconcileDelayMS int `toml:"reconcile_delay_ms"`
}

// VoiceConfig holds speech-to-text settings. Command is an external
// transcription command that prints one final transcript to stdout; empty
// means voice input is unavailable.
type VoiceConfig struct {
	Command           string `toml:"command"`
	AutoSubmitDelayMS int    `toml:"auto_submit_delay_ms"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:  "https://portal.copperline.io/api",
			RateLimit: 5.0,
			RateBurst: 3,
			TimeoutMS: 30000,
		},
		Sync: SyncConfig{
			StalenessMS:      10000,
			RetentionMS:      120000,
			ReconcileDelayMS: 500,
		},
		Voice: VoiceConfig{
			Command:           "",
			AutoSubmitDelayMS: 500,
		},
	}
}

// Staleness returns the staleness window as a duration.
func (c SyncConfig) Staleness() time.Duration {
	return time.Duration(c.StalenessMS) * time.Millisecond
}

// Retention returns the retention window as a duration.
func (c SyncConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMS) * time.Millisecond
}

// ReconcileDelay returns the reconcile delay as a duration.
func (c SyncConfig) ReconcileDelay() time.Duration {
	return time.Duration(c.ReconcileDelayMS) * time.Millisecond
}

// AutoSubmitDelay returns the voice auto-submit delay as a duration.
func (c VoiceConfig) AutoSubmitDelay() time.Duration {
	return time.Duration(c.AutoSubmitDelayMS) * time.Millisecond
}

// Timeout returns the API request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DESKCHAT_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}

	if v := os.Getenv("DESKCHAT_API_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.API.RateLimit = f
		}
	}

	if v := os.Getenv("DESKCHAT_API_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.RateBurst = n
		}
	}

	if v := os.Getenv("DESKCHAT_API_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.TimeoutMS = n
		}
	}

	if v := os.Getenv("DESKCHAT_SYNC_STALENESS_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.StalenessMS = n
		}
	}

	if v := os.Getenv("DESKCHAT_SYNC_RETENTION_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.RetentionMS = n
		}
	}

	if v := os.Getenv("DESKCHAT_SYNC_RECONCILE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.ReconcileDelayMS = n
		}
	}

	if v := os.Getenv("DESKCHAT_VOICE_COMMAND"); v != "" {
		cfg.Voice.Command = v
	}
}

// DataDir returns the path to the deskchat data directory (~/.deskchat).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deskchat"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
