// Package config loads the cdpctl configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/luciancaetano/cdpnet"
)

// Config is the resolved CLI configuration.
type Config struct {
	Host        string
	Port        int
	Secure      bool
	UseHostName string
	Target      string
	Local       bool
	Output      string
	LogLevel    string
	Timeout     time.Duration
	// RateLimit caps outbound commands per second; zero disables it.
	RateLimit float64
	Burst     int
}

type fileConfig struct {
	Host        string  `toml:"host"`
	Port        int     `toml:"port"`
	Secure      bool    `toml:"secure"`
	UseHostName string  `toml:"use_host_name"`
	Target      string  `toml:"target"`
	Local       bool    `toml:"local"`
	Output      string  `toml:"output"`
	LogLevel    string  `toml:"log_level"`
	Timeout     string  `toml:"timeout"`
	RateLimit   float64 `toml:"rate_limit"`
	Burst       int     `toml:"rate_limit_burst"`
}

func Default() *Config {
	return &Config{
		Host:    cdpnet.DefaultHost,
		Port:    cdpnet.DefaultPort,
		Output:  "table",
		Timeout: 30 * time.Second,
		Burst:   1,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/cdpctl/config.toml, falling back to
// ~/.config/cdpctl/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "cdpctl.toml"
	}
	return filepath.Join(dir, "cdpctl", "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults
// unless mustExist is set.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Host = host
		}
	}
	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return nil, fmt.Errorf("parse port: %d out of range", raw.Port)
		}
		cfg.Port = raw.Port
	}
	if meta.IsDefined("secure") {
		cfg.Secure = raw.Secure
	}
	if meta.IsDefined("use_host_name") {
		cfg.UseHostName = strings.TrimSpace(raw.UseHostName)
	}
	if meta.IsDefined("target") {
		cfg.Target = strings.TrimSpace(raw.Target)
	}
	if meta.IsDefined("local") {
		cfg.Local = raw.Local
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.ToLower(strings.TrimSpace(raw.Output))
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return nil, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("rate_limit") {
		cfg.RateLimit = raw.RateLimit
	}
	if meta.IsDefined("rate_limit_burst") {
		cfg.Burst = raw.Burst
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return cfg, nil
}
