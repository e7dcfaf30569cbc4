// Package config loads the daemon configuration from aletheia.yaml, expands
// environment variables, and merges user values over built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the expected file inside the config directory.
const ConfigFileName = "aletheia.yaml"

// Config is the resolved daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Pruner   PrunerConfig   `yaml:"pruner"`
	Fatigue  FatigueConfig  `yaml:"fatigue"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Evolver  EvolverConfig  `yaml:"evolver"`
}

// ServerConfig controls the HTTP listener. Port 0 binds a dynamic port which
// is then published through the port file.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig locates the SQLite database. An empty path resolves to
// ~/.claude/aletheia/metaygn.db.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PrunerConfig tunes reasoning lock-in detection.
type PrunerConfig struct {
	ErrorThreshold int `yaml:"error_threshold"`
}

// FatigueConfig tunes the operator fatigue profiler.
type FatigueConfig struct {
	HighFrictionThreshold float64 `yaml:"high_friction_threshold"`
	SignalWindow          int     `yaml:"signal_window"`
	ShortPromptThreshold  int     `yaml:"short_prompt_threshold"`
	RapidRetryMS          int     `yaml:"rapid_retry_ms"`
}

// MonitorConfig tunes the anomaly monitor.
type MonitorConfig struct {
	WindowSize          int     `yaml:"window_size"`
	AnomalyThreshold    float64 `yaml:"anomaly_threshold"`
	StagnationThreshold float64 `yaml:"stagnation_threshold"`
}

// SandboxConfig bounds subprocess execution.
type SandboxConfig struct {
	TimeoutMS      int `yaml:"timeout_ms"`
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// EvolverConfig tunes heuristic evolution.
type EvolverConfig struct {
	MaxPopulation      int `yaml:"max_population"`
	EvolutionThreshold int `yaml:"evolution_threshold"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 0},
		Database: DatabaseConfig{},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Pruner:   PrunerConfig{ErrorThreshold: 3},
		Fatigue: FatigueConfig{
			HighFrictionThreshold: 0.7,
			SignalWindow:          20,
			ShortPromptThreshold:  20,
			RapidRetryMS:          5000,
		},
		Monitor: MonitorConfig{
			WindowSize:          10,
			AnomalyThreshold:    0.15,
			StagnationThreshold: 0.95,
		},
		Sandbox: SandboxConfig{
			TimeoutMS:      5000,
			MaxOutputBytes: 64 * 1024,
		},
		Evolver: EvolverConfig{
			MaxPopulation:      20,
			EvolutionThreshold: 5,
		},
	}
}

// Initialize loads, merges, and validates configuration from configDir. A
// missing file yields the defaults — the daemon runs fine with zero config.
func Initialize(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)

	cfg := Defaults()

	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("No config file found, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var user Config
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Non-zero user values override defaults; unset fields keep them.
	if err := mergo.Merge(cfg, &user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized", "host", cfg.Server.Host, "port", cfg.Server.Port)
	return cfg, nil
}

// ResolveDatabasePath returns the configured path or the default under the
// base directory.
func (c *Config) ResolveDatabasePath(baseDir string) string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(baseDir, "metaygn.db")
}

func validate(cfg *Config) error {
	if cfg.Pruner.ErrorThreshold < 1 {
		return fmt.Errorf("pruner.error_threshold must be >= 1, got %d", cfg.Pruner.ErrorThreshold)
	}
	if cfg.Fatigue.HighFrictionThreshold <= 0 || cfg.Fatigue.HighFrictionThreshold > 1 {
		return fmt.Errorf("fatigue.high_friction_threshold must be in (0, 1], got %f", cfg.Fatigue.HighFrictionThreshold)
	}
	if cfg.Monitor.AnomalyThreshold >= cfg.Monitor.StagnationThreshold {
		return fmt.Errorf("monitor.anomaly_threshold must be below stagnation_threshold")
	}
	if cfg.Sandbox.TimeoutMS <= 0 {
		return fmt.Errorf("sandbox.timeout_ms must be positive, got %d", cfg.Sandbox.TimeoutMS)
	}
	return nil
}

// BaseDir returns the runtime state directory (~/.claude/aletheia),
// creating it when missing.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".claude", "aletheia")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create state directory: %w", err)
	}
	return dir, nil
}

// PortFilePath returns the daemon discovery file path under baseDir.
func PortFilePath(baseDir string) string {
	return filepath.Join(baseDir, "daemon.port")
}
