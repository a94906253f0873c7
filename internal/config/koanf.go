// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vandalwatch/config.yaml",
	"/etc/vandalwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all optional settings defaulted.
// Required wiki settings (api_url, oauth_token, report_page) stay empty and
// are enforced by Validate().
func defaultConfig() *Config {
	return &Config{
		Wiki: WikiConfig{
			APIURL:        "",
			OAuthToken:    "",
			UserAgent:     "Vandalwatch/1.0 (https://github.com/vandalwatch/vandalwatch)",
			ReportPage:    "",
			BotUser:       "Vandalwatch",
			SummaryPrefix: "Bot",
		},
		Monitor: MonitorConfig{
			Mode:         ModeOneShot,
			WindowMins:   60, // one trailing hour of recent changes
			PollInterval: 5 * time.Minute,
			DryRun:       false,
		},
		Server: ServerConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    8424,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, honoring CONFIG_PATH first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so that unrelated environment noise never
// pollutes the configuration.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		// Wiki mappings
		"wiki_api_url":        "wiki.api_url",
		"wiki_oauth_token":    "wiki.oauth_token",
		"wiki_user_agent":     "wiki.user_agent",
		"wiki_report_page":    "wiki.report_page",
		"wiki_bot_user":       "wiki.bot_user",
		"wiki_summary_prefix": "wiki.summary_prefix",

		// Monitor mappings
		"monitor_mode":          "monitor.mode",
		"monitor_window_mins":   "monitor.window_mins",
		"monitor_poll_interval": "monitor.poll_interval",
		"monitor_dry_run":       "monitor.dry_run",

		// Server mappings
		"http_enabled": "server.enabled",
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
