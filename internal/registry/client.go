// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package registry talks to the package registry that business cards are
// published to.
package registry

import (
	"context"
	"log/slog"
)

// Credentials are the account details used to log in to the registry.
// A non-empty OTP means the account has two-factor authentication enabled.
type Credentials struct {
	Username string
	Password string
	Email    string
	OTP      string
}

// TwoFactor reports whether the credentials were supplied with a one-time code.
func (c Credentials) TwoFactor() bool {
	return c.OTP != ""
}

// LogValue keeps secrets out of log output.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("email", c.Email),
		slog.Bool("two_factor", c.TwoFactor()),
	)
}

// PublishOptions controls a single publish call.
type PublishOptions struct {
	// Public requests public visibility; required for scoped packages.
	Public bool
	// OTP is the one-time code to publish with, if any.
	OTP string
}

// Client is the set of registry operations the publish workflow needs.
type Client interface {
	// Login authenticates against the registry. On success the registry
	// tooling stores a token in its global user config.
	Login(ctx context.Context, creds Credentials) error

	// Publish publishes the package in dir.
	Publish(ctx context.Context, dir string, opts PublishOptions) error

	// ClearCache clears the local package cache.
	ClearCache(ctx context.Context) error

	// RunEphemeral runs the published package straight from the registry.
	RunEphemeral(ctx context.Context, id PackageIdentity) error
}

// LocalRunner executes a generated package from disk.
type LocalRunner interface {
	RunLocal(ctx context.Context, dir string) error
}
