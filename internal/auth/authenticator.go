// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/cardsmith/cardsmith/internal/console"
	"github.com/cardsmith/cardsmith/internal/credentials"
	"github.com/cardsmith/cardsmith/internal/registry"
)

// DefaultMaxRetries is the number of logins attempted after the first one fails.
const DefaultMaxRetries = 2

// retryOTPMessage is shown when asking for a replacement one-time code.
const retryOTPMessage = "Enter a new npm two-factor authentication code (if enabled, press Enter to skip):"

// TokenStore acquires a token by running a login through the credential file.
type TokenStore interface {
	Acquire(ctx context.Context, creds registry.Credentials, login credentials.LoginFunc) (credentials.Token, error)
}

// Loginer performs a registry login.
type Loginer interface {
	Login(ctx context.Context, creds registry.Credentials) error
}

// OTPPrompter asks the user for a one-time code.
type OTPPrompter interface {
	AskOneTimeCode(ctx context.Context, message string) (string, error)
}

// AttemptRecorder observes login attempts.
type AttemptRecorder interface {
	RecordAuthAttempt(success bool)
}

// Result is the outcome of an authentication sequence.
type Result struct {
	Success  bool
	Token    credentials.Token
	Attempts int
}

// Authenticator logs in to the registry, retrying failed logins with fresh
// one-time codes.
type Authenticator struct {
	store    TokenStore
	client   Loginer
	prompt   OTPPrompter
	console  *console.Console
	logger   *slog.Logger
	recorder AttemptRecorder
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithConsole sets where progress lines are printed.
func WithConsole(c *console.Console) Option {
	return func(a *Authenticator) { a.console = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// WithRecorder sets the attempt recorder.
func WithRecorder(r AttemptRecorder) Option {
	return func(a *Authenticator) { a.recorder = r }
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(store TokenStore, client Loginer, prompt OTPPrompter, opts ...Option) (*Authenticator, error) {
	if store == nil {
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("token store is required")
	}
	if client == nil {
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("registry client is required")
	}
	if prompt == nil {
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("prompt provider is required")
	}

	a := &Authenticator{
		store:  store,
		client: client,
		prompt: prompt,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate performs up to maxRetries+1 logins. Every failed login is
// treated as retryable; before each retry the user is asked for a new
// one-time code and the rest of creds is reused. A returned error always
// comes with Success == false.
func (a *Authenticator) Authenticate(ctx context.Context, creds registry.Credentials, maxRetries int) (Result, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var result Result
	backoff := retry.WithMaxRetries(uint64(maxRetries), immediate())

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if result.Attempts > 0 {
			a.console.Infof("Retrying authentication...")
			code, err := a.prompt.AskOneTimeCode(ctx, retryOTPMessage)
			if err != nil {
				return oops.Code("PROMPT_FAILED").With("attempt", result.Attempts).Wrap(err)
			}
			creds.OTP = code
		}

		result.Attempts++
		a.console.Warnf("Close all browsers to avoid authentication errors.")

		token, err := a.store.Acquire(ctx, creds, a.client.Login)
		if err != nil {
			a.record(false)
			a.console.Errorf("Authentication attempt %d failed: %v", result.Attempts, err)
			a.logger.WarnContext(ctx, "authentication attempt failed",
				"attempt", result.Attempts,
				"max_attempts", maxRetries+1,
				"credentials", creds,
				"error", err,
			)
			return retry.RetryableError(err)
		}

		a.record(true)
		result.Token = token
		return nil
	})
	if err != nil {
		if ctx.Err() == nil && result.Attempts > maxRetries {
			a.console.Warnf("Maximum authentication attempts reached.")
		}
		return Result{Attempts: result.Attempts}, oops.Code("AUTH_FAILED").
			With("attempts", result.Attempts).
			Wrap(err)
	}

	result.Success = true
	a.console.Successf("Successfully authenticated with npm!")
	a.logger.InfoContext(ctx, "authenticated", "attempts", result.Attempts, "token", result.Token)
	return result, nil
}

func (a *Authenticator) record(success bool) {
	if a.recorder != nil {
		a.recorder.RecordAuthAttempt(success)
	}
}

// immediate retries without waiting; the user-supplied code is the pacing.
func immediate() retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
}
