// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

// Package config loads and validates Vandalwatch configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//  1. Environment variables (WIKI_API_URL, WIKI_OAUTH_TOKEN, ...)
//  2. Optional YAML config file (config.yaml)
//  3. Built-in defaults
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Run modes. One-shot suits cron or a systemd timer; daemon keeps the
// process alive under a supervisor and reconciles on a schedule.
const (
	ModeOneShot = "oneshot"
	ModeDaemon  = "daemon"
)

// Config holds all application configuration.
type Config struct {
	Wiki    WikiConfig    `koanf:"wiki"`
	Monitor MonitorConfig `koanf:"monitor"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// WikiConfig holds MediaWiki API connection settings.
//
// The OAuth token is an OAuth 2.0 owner-only consumer access token, sent as
// a bearer header on every request. The report page is the on-wiki status
// page that Vandalwatch reads and conditionally updates.
type WikiConfig struct {
	// APIURL is the full api.php endpoint, e.g. https://en.wikipedia.org/w/api.php.
	APIURL string `koanf:"api_url"`

	// OAuthToken authenticates all API requests. Required.
	OAuthToken string `koanf:"oauth_token"`

	// UserAgent identifies the bot per the Wikimedia User-Agent policy.
	UserAgent string `koanf:"user_agent"`

	// ReportPage is the title of the status page to read and update. Required.
	ReportPage string `koanf:"report_page"`

	// BotUser is the bot's on-wiki account name, used in the rendered
	// status page info line.
	BotUser string `koanf:"bot_user"`

	// SummaryPrefix is prepended to the edit summary, typically a wikilink
	// to the bot's approval page.
	SummaryPrefix string `koanf:"summary_prefix"`
}

// MonitorConfig holds the estimation and reconciliation settings.
type MonitorConfig struct {
	// Mode is "oneshot" (single reconciliation run, then exit) or "daemon"
	// (supervised periodic runs).
	Mode string `koanf:"mode"`

	// WindowMins is the trailing recent-changes window, in minutes. The
	// reverts-per-minute rate is the classified revert count over this
	// window divided by its length.
	WindowMins int `koanf:"window_mins"`

	// PollInterval is how often the daemon mode reconciles.
	PollInterval time.Duration `koanf:"poll_interval"`

	// DryRun computes and logs the level but never submits an edit.
	DryRun bool `koanf:"dry_run"`
}

// ServerConfig holds the daemon-mode HTTP server settings (health, metrics
// and status endpoints). Ignored in one-shot mode.
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for completeness and coherence.
// Required wiki settings fail fast here, before any network activity.
func (c *Config) Validate() error {
	if err := c.validateWiki(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWiki() error {
	if c.Wiki.APIURL == "" {
		return fmt.Errorf("wiki.api_url is required (set WIKI_API_URL)")
	}
	parsed, err := url.Parse(c.Wiki.APIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("wiki.api_url %q is not a valid absolute URL", c.Wiki.APIURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("wiki.api_url scheme must be http or https, got %q", parsed.Scheme)
	}
	if c.Wiki.OAuthToken == "" {
		return fmt.Errorf("wiki.oauth_token is required (set WIKI_OAUTH_TOKEN)")
	}
	if c.Wiki.ReportPage == "" {
		return fmt.Errorf("wiki.report_page is required (set WIKI_REPORT_PAGE)")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.Mode != ModeOneShot && c.Monitor.Mode != ModeDaemon {
		return fmt.Errorf("monitor.mode must be %q or %q, got %q", ModeOneShot, ModeDaemon, c.Monitor.Mode)
	}
	if c.Monitor.WindowMins <= 0 {
		return fmt.Errorf("monitor.window_mins must be positive, got %d", c.Monitor.WindowMins)
	}
	if c.Monitor.Mode == ModeDaemon && c.Monitor.PollInterval < time.Minute {
		return fmt.Errorf("monitor.poll_interval must be at least 1m in daemon mode, got %s", c.Monitor.PollInterval)
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal", "disabled":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
}

// Window returns the trailing recent-changes window as a duration.
func (c *MonitorConfig) Window() time.Duration {
	return time.Duration(c.WindowMins) * time.Minute
}
