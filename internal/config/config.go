// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package config loads cardsmith settings from defaults, a YAML file,
// CARDSMITH_* environment variables, and command-line flags, in that order
// of precedence.
package config

import (
	"net"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/auth"
	"github.com/cardsmith/cardsmith/internal/prompt"
	"github.com/cardsmith/cardsmith/internal/publish"
	"github.com/cardsmith/cardsmith/internal/registry"
)

// Config is the complete cardsmith configuration.
type Config struct {
	Profile  artifact.Profile `koanf:"profile" json:"profile,omitempty"`
	Registry RegistryConfig   `koanf:"registry" json:"registry,omitempty"`
	Publish  PublishConfig    `koanf:"publish" json:"publish,omitempty"`
	Prompt   PromptConfig     `koanf:"prompt" json:"prompt,omitempty"`
	Log      LogConfig        `koanf:"log" json:"log,omitempty"`
	Metrics  MetricsConfig    `koanf:"metrics" json:"metrics,omitempty"`

	// NPM holds registry credentials. They are only read from the
	// environment or prompted for, never from the config file.
	NPM NPMCredentials `koanf:"npm" json:"-"`
}

// RegistryConfig locates the registry and its tooling.
type RegistryConfig struct {
	URL        string `koanf:"url" json:"url,omitempty" jsonschema:"description=Registry URL"`
	NPM        string `koanf:"npm" json:"npm,omitempty" jsonschema:"description=npm executable"`
	NPX        string `koanf:"npx" json:"npx,omitempty" jsonschema:"description=npx executable"`
	Node       string `koanf:"node" json:"node,omitempty" jsonschema:"description=node executable"`
	UserConfig string `koanf:"user_config" json:"user_config,omitempty" jsonschema:"description=npm user config that receives the login token (default ~/.npmrc)"`
}

// PublishConfig holds the publish budgets and delays.
type PublishConfig struct {
	OutputDir          string        `koanf:"output_dir" json:"output_dir,omitempty" jsonschema:"description=Package directory (default ./<package name>)"`
	MaxPublishAttempts int           `koanf:"max_publish_attempts" json:"max_publish_attempts,omitempty" jsonschema:"minimum=1"`
	MaxAuthRetries     int           `koanf:"max_auth_retries" json:"max_auth_retries,omitempty" jsonschema:"minimum=0"`
	MaxVerifyRetries   int           `koanf:"max_verify_retries" json:"max_verify_retries,omitempty" jsonschema:"minimum=0"`
	PropagationDelay   time.Duration `koanf:"propagation_delay" json:"propagation_delay,omitempty"`
	VerifyRetryDelay   time.Duration `koanf:"verify_retry_delay" json:"verify_retry_delay,omitempty"`
}

// PromptConfig selects how questions are asked.
type PromptConfig struct {
	Mode string `koanf:"mode" json:"mode,omitempty" jsonschema:"enum=auto,enum=tui,enum=line"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=text,enum=json"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the optional metrics export.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" json:"pushgateway_url,omitempty" jsonschema:"description=Prometheus Pushgateway URL; empty disables the push"`
	ListenAddr     string `koanf:"listen_addr" json:"listen_addr,omitempty" jsonschema:"description=host:port to serve /metrics on while publishing; empty disables the server"`
}

// NPMCredentials are the registry login values.
type NPMCredentials struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Email    string `koanf:"email"`
	OTP      string `koanf:"otp"`
}

var (
	logFormats  = []string{"text", "json"}
	logLevels   = []string{"debug", "info", "warn", "error"}
	promptModes = []string{string(prompt.ModeAuto), string(prompt.ModeTUI), string(prompt.ModeLine)}
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Profile: artifact.Profile{
			Certifications: artifact.NoCertifications,
			Version:        artifact.DefaultVersion,
		},
		Registry: RegistryConfig{
			URL:  registry.DefaultRegistryURL,
			NPM:  "npm",
			NPX:  "npx",
			Node: "node",
		},
		Publish: PublishConfig{
			MaxPublishAttempts: publish.DefaultMaxPublishAttempts,
			MaxAuthRetries:     auth.DefaultMaxRetries,
			MaxVerifyRetries:   publish.DefaultMaxVerifyRetries,
			PropagationDelay:   publish.DefaultPropagationDelay,
			VerifyRetryDelay:   publish.DefaultVerifyRetryDelay,
		},
		Prompt: PromptConfig{Mode: string(prompt.ModeAuto)},
		Log:    LogConfig{Format: "text", Level: "info"},
	}
}

// Validate checks that the configuration is valid. Profile fields are only
// checked when set; see ValidateProfile.
func (c *Config) Validate() error {
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid("log.format", c.Log.Format, "must be 'json' or 'text'")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return invalid("log.level", c.Log.Level, "must be one of debug, info, warn, error")
	}
	if !slices.Contains(promptModes, c.Prompt.Mode) {
		return invalid("prompt.mode", c.Prompt.Mode, "must be one of auto, tui, line")
	}

	if u, err := url.Parse(c.Registry.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("registry.url", c.Registry.URL, "must be an http(s) URL")
	}
	for key, exe := range map[string]string{"registry.npm": c.Registry.NPM, "registry.npx": c.Registry.NPX, "registry.node": c.Registry.Node} {
		if exe == "" {
			return invalid(key, exe, "is required")
		}
	}

	if c.Publish.MaxPublishAttempts < 1 {
		return invalid("publish.max_publish_attempts", c.Publish.MaxPublishAttempts, "must be at least 1")
	}
	if c.Publish.MaxAuthRetries < 0 {
		return invalid("publish.max_auth_retries", c.Publish.MaxAuthRetries, "must not be negative")
	}
	if c.Publish.MaxVerifyRetries < 0 {
		return invalid("publish.max_verify_retries", c.Publish.MaxVerifyRetries, "must not be negative")
	}
	if c.Publish.PropagationDelay < 0 {
		return invalid("publish.propagation_delay", c.Publish.PropagationDelay, "must not be negative")
	}
	if c.Publish.VerifyRetryDelay < 0 {
		return invalid("publish.verify_retry_delay", c.Publish.VerifyRetryDelay, "must not be negative")
	}

	if c.Metrics.PushgatewayURL != "" {
		if u, err := url.Parse(c.Metrics.PushgatewayURL); err != nil || u.Host == "" {
			return invalid("metrics.pushgateway_url", c.Metrics.PushgatewayURL, "must be a URL")
		}
	}
	if c.Metrics.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.ListenAddr); err != nil {
			return invalid("metrics.listen_addr", c.Metrics.ListenAddr, "must be host:port")
		}
	}

	p := c.Profile
	if p.PackageName != "" {
		if _, err := registry.ParseIdentity(p.PackageName); err != nil {
			return oops.Code("CONFIG_INVALID").
				With("key", "profile.package_name").
				With("value", p.PackageName).
				Errorf("profile.package_name: %v", err)
		}
	}
	if p.Email != "" && !artifact.ValidEmail(p.Email) {
		return invalid("profile.email", p.Email, "must be a valid email")
	}
	if !artifact.ValidLinkedIn(p.LinkedIn) {
		return invalid("profile.linkedin", p.LinkedIn, "must be a LinkedIn username or profile URL")
	}
	if !artifact.ValidPortfolio(p.Portfolio) {
		return invalid("profile.portfolio", p.Portfolio, "must be a hostname or URL")
	}
	return nil
}

// ValidateProfile checks that the profile has everything a card needs.
func (c *Config) ValidateProfile() error {
	required := []struct {
		key, value string
	}{
		{"profile.full_name", c.Profile.FullName},
		{"profile.handle", c.Profile.Handle},
		{"profile.email", c.Profile.Email},
		{"profile.package_name", c.Profile.PackageName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.key, r.value, "is required")
		}
	}
	return nil
}

// OutputDir returns the package directory: publish.output_dir, or the bare
// package name under the working directory.
func (c *Config) OutputDir() string {
	if c.Publish.OutputDir != "" {
		return c.Publish.OutputDir
	}
	id, err := registry.ParseIdentity(c.Profile.PackageName)
	if err != nil {
		return c.Profile.PackageName
	}
	return filepath.Join(".", id.Bare())
}

// Credentials returns the configured registry credentials. Missing fields
// are left empty for the caller to prompt for.
func (c *Config) Credentials() registry.Credentials {
	return registry.Credentials{
		Username: c.NPM.Username,
		Password: c.NPM.Password,
		Email:    c.NPM.Email,
		OTP:      c.NPM.OTP,
	}
}

// PublishOptions converts the publish settings for the orchestrator.
func (c *Config) PublishOptions() publish.Options {
	return publish.Options{
		Dir:                c.OutputDir(),
		Profile:            c.Profile,
		Credentials:        c.Credentials(),
		MaxPublishAttempts: c.Publish.MaxPublishAttempts,
		MaxAuthRetries:     c.Publish.MaxAuthRetries,
		MaxVerifyRetries:   c.Publish.MaxVerifyRetries,
		PropagationDelay:   c.Publish.PropagationDelay,
		VerifyRetryDelay:   c.Publish.VerifyRetryDelay,
	}
}

// NPMConfig converts the registry settings for the npm client.
func (c *Config) NPMConfig(projectConfig string) registry.NPMConfig {
	return registry.NPMConfig{
		RegistryURL:   c.Registry.URL,
		NPM:           c.Registry.NPM,
		NPX:           c.Registry.NPX,
		Node:          c.Registry.Node,
		ProjectConfig: projectConfig,
	}
}

func invalid(key string, value any, msg string) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		With("value", value).
		Errorf("%s %s", key, msg)
}
