// Package config loads mealquest settings from an optional YAML file,
// falling back to defaults tuned for the hosted progress API.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"mealquest/internal/engine"
)

// Duration wraps time.Duration for YAML values like "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	// UserID identifies the local player for client commands.
	UserID string `yaml:"user_id"`

	// ServerURL is the progress API base URL the client syncs against.
	ServerURL string `yaml:"server_url"`

	// ListenAddr is where `mq serve` binds.
	ListenAddr string `yaml:"listen_addr"`

	// DBPath overrides the default sqlite location.
	DBPath string `yaml:"db_path"`

	Sync SyncConfig `yaml:"sync"`

	// Rewards overrides base XP per task type, e.g. {MEAL: 25}.
	Rewards map[string]int `yaml:"rewards"`
}

type SyncConfig struct {
	Interval    Duration `yaml:"interval"`
	BatchSize   int      `yaml:"batch_size"`
	MaxAttempts int      `yaml:"max_attempts"`
	BackoffBase Duration `yaml:"backoff_base"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UserID:     "main_user",
		ServerURL:  "http://localhost:8787",
		ListenAddr: ":8787",
		Sync: SyncConfig{
			Interval:    Duration(30 * time.Second),
			BatchSize:   5,
			MaxAttempts: 3,
			BackoffBase: Duration(time.Second),
		},
	}
}

// DefaultPath returns ~/.mealquest.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".mealquest.yaml"), nil
}

// Load reads the config at path, layered over defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("sync.batch_size must be >= 1, got %d", c.Sync.BatchSize)
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be >= 1, got %d", c.Sync.MaxAttempts)
	}
	for taskType, xp := range c.Rewards {
		if xp < 0 {
			return fmt.Errorf("rewards.%s must be non-negative, got %d", taskType, xp)
		}
	}
	return nil
}

// ApplyRewardOverrides pushes configured base-XP overrides into the reward
// table. Call once during startup.
func (c Config) ApplyRewardOverrides() {
	for taskType, xp := range c.Rewards {
		engine.SetBaseXP(engine.ParseTaskType(taskType), xp)
	}
}
