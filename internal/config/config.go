package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the environment surface named in spec.md §6. Fields mirror the
// teacher's internal/common.Config: a NewDefaultConfig baseline, merged
// with TOML file(s) in order, then environment overrides on top.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Steam       SteamConfig       `toml:"steam"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Archive     ArchiveConfig     `toml:"archive"`
	Workspace   WorkspaceConfig   `toml:"workspace"`
	LogRing     LogRingConfig     `toml:"log_ring"`
	Auth        AuthConfig        `toml:"auth"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type SteamConfig struct {
	BinaryPath      string `toml:"binary_path"`
	AppID           string `toml:"app_id"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	SecondFactor    string `toml:"second_factor"`
	FetchTimeout    time.Duration `toml:"fetch_timeout"`
	VerifyTimeout   time.Duration `toml:"verify_timeout"`
	SessionCacheTTL time.Duration `toml:"session_cache_ttl"`
	MaxAttempts     int           `toml:"max_attempts"`
	RetryBaseDelay  time.Duration `toml:"retry_base_delay"`
}

type OrchestratorConfig struct {
	MaxConcurrent   int           `toml:"max_concurrent"`
	StaleDeadline   time.Duration `toml:"stale_deadline"`
	SweepInterval   string        `toml:"sweep_interval"` // cron @every spec, e.g. "@every 10m"
}

type ArchiveConfig struct {
	Root        string        `toml:"root"`
	MinBytes    int64         `toml:"min_bytes"`
	BuildDeadline time.Duration `toml:"build_deadline"`
}

type WorkspaceConfig struct {
	Root string `toml:"root"`
}

type LogRingConfig struct {
	Capacity int `toml:"capacity"`
	Burst    int `toml:"burst"`
}

type AuthConfig struct {
	ObserverSecret string `toml:"observer_secret"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Format string   `toml:"format"`
	Output []string `toml:"output"`
}

// NewDefault returns a Config populated with the numeric defaults cited
// throughout spec.md §5/§6.
func NewDefault() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8090},
		Steam: SteamConfig{
			BinaryPath:      "steamcmd",
			AppID:           "0",
			FetchTimeout:    2 * time.Hour,
			VerifyTimeout:   30 * time.Second,
			SessionCacheTTL: 30 * time.Minute,
			MaxAttempts:     5,
			RetryBaseDelay:  2 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrent: 3,
			StaleDeadline: 2 * time.Hour,
			SweepInterval: "@every 10m",
		},
		Archive: ArchiveConfig{
			Root:          "./data/downloads",
			MinBytes:      512,
			BuildDeadline: 30 * time.Minute,
		},
		Workspace: WorkspaceConfig{Root: "./data/workspaces"},
		LogRing:   LogRingConfig{Capacity: 1000, Burst: 50},
		Auth:      AuthConfig{ObserverSecret: ""},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles merges defaults -> file1 -> file2 -> ... -> env, later
// values winning, mirroring the teacher's internal/common.LoadFromFiles.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := NewDefault()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies the environment surface named in spec.md §6.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DZWORKSHOP_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DZWORKSHOP_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("DZWORKSHOP_STEAM_BINARY"); v != "" {
		cfg.Steam.BinaryPath = v
	}
	if v := os.Getenv("DZWORKSHOP_STEAM_APP_ID"); v != "" {
		cfg.Steam.AppID = v
	}
	if v := os.Getenv("DZWORKSHOP_STEAM_USERNAME"); v != "" {
		cfg.Steam.Username = v
	}
	if v := os.Getenv("DZWORKSHOP_STEAM_PASSWORD"); v != "" {
		cfg.Steam.Password = v
	}
	if v := os.Getenv("DZWORKSHOP_STEAM_SECOND_FACTOR"); v != "" {
		cfg.Steam.SecondFactor = v
	}
	if v := os.Getenv("DZWORKSHOP_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.MaxConcurrent = n
		}
	}
	if v := os.Getenv("DZWORKSHOP_WORKSPACE_ROOT"); v != "" {
		cfg.Workspace.Root = v
	}
	if v := os.Getenv("DZWORKSHOP_ARCHIVE_ROOT"); v != "" {
		cfg.Archive.Root = v
	}
	if v := os.Getenv("DZWORKSHOP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DZWORKSHOP_OBSERVER_SECRET"); v != "" {
		cfg.Auth.ObserverSecret = v
	}
}
