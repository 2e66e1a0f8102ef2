// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package publish drives a generated card package through local testing,
// registry authentication, publishing, and verification.
package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/auth"
	"github.com/cardsmith/cardsmith/internal/console"
	"github.com/cardsmith/cardsmith/internal/registry"
	"github.com/cardsmith/cardsmith/pkg/errutil"
)

// Defaults for Options.
const (
	DefaultMaxPublishAttempts = 3
	DefaultMaxVerifyRetries   = 2
	DefaultPropagationDelay   = 10 * time.Second
	DefaultVerifyRetryDelay   = 5 * time.Second
)

const publishOTPMessage = "Enter your npm two-factor authentication code for publishing:"

// Registry is the registry tooling the orchestrator needs.
type Registry interface {
	registry.Client
	registry.LocalRunner
}

// Authenticator logs in to the registry with a bounded retry budget.
type Authenticator interface {
	Authenticate(ctx context.Context, creds registry.Credentials, maxRetries int) (auth.Result, error)
}

// CredentialReleaser removes the project credential file.
type CredentialReleaser interface {
	Release() error
}

// Generator rewrites the package files for a profile.
type Generator interface {
	Generate(ctx context.Context, p artifact.Profile, dir string) error
}

// Prompter asks the user for publish-time decisions.
type Prompter interface {
	AskOneTimeCode(ctx context.Context, message string) (string, error)
	AskNewPackageName(ctx context.Context, suggestion string) (string, error)
}

// Recorder observes the workflow.
type Recorder interface {
	RecordPublishAttempt()
	RecordVerifyAttempt(success bool)
	RecordSession(outcome string)
}

// Deps are the collaborators of an Orchestrator. Console, Logger, and
// Metrics are optional.
type Deps struct {
	Registry    Registry
	Auth        Authenticator
	Credentials CredentialReleaser
	Generator   Generator
	Prompt      Prompter
	Classifier  *Classifier
	Console     *console.Console
	Logger      *slog.Logger
	Metrics     Recorder
}

// Options configure one publish run.
type Options struct {
	// Dir is the generated package directory.
	Dir string
	// Profile is the profile the package was generated from. Its package
	// name is the starting identity.
	Profile artifact.Profile
	// Credentials are the registry login. A non-empty OTP means the account
	// uses two-factor authentication.
	Credentials registry.Credentials

	MaxPublishAttempts int
	MaxAuthRetries     int
	MaxVerifyRetries   int
	PropagationDelay   time.Duration
	VerifyRetryDelay   time.Duration
}

// DefaultOptions returns Options with the default budgets and delays.
func DefaultOptions() Options {
	return Options{
		MaxPublishAttempts: DefaultMaxPublishAttempts,
		MaxAuthRetries:     auth.DefaultMaxRetries,
		MaxVerifyRetries:   DefaultMaxVerifyRetries,
		PropagationDelay:   DefaultPropagationDelay,
		VerifyRetryDelay:   DefaultVerifyRetryDelay,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Dir == "" {
		return oops.Code("INVALID_ARGUMENT").Errorf("package directory is required")
	}
	if o.MaxPublishAttempts < 1 {
		return oops.Code("INVALID_ARGUMENT").With("max_publish_attempts", o.MaxPublishAttempts).
			Errorf("max publish attempts must be at least 1")
	}
	if o.MaxAuthRetries < 0 || o.MaxVerifyRetries < 0 {
		return oops.Code("INVALID_ARGUMENT").Errorf("retry budgets must not be negative")
	}
	if o.PropagationDelay < 0 || o.VerifyRetryDelay < 0 {
		return oops.Code("INVALID_ARGUMENT").Errorf("delays must not be negative")
	}
	return nil
}

// Orchestrator runs the publish workflow for one package.
type Orchestrator struct {
	registry    Registry
	auth        Authenticator
	credentials CredentialReleaser
	generator   Generator
	prompt      Prompter
	classifier  *Classifier
	console     *console.Console
	logger      *slog.Logger
	metrics     Recorder

	opts    Options
	profile artifact.Profile
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Registry == nil:
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("registry is required")
	case deps.Auth == nil:
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("authenticator is required")
	case deps.Credentials == nil:
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("credential store is required")
	case deps.Generator == nil:
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("artifact generator is required")
	case deps.Prompt == nil:
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("prompt provider is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		registry:    deps.Registry,
		auth:        deps.Auth,
		credentials: deps.Credentials,
		generator:   deps.Generator,
		prompt:      deps.Prompt,
		classifier:  deps.Classifier,
		console:     deps.Console,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		opts:        opts,
		profile:     opts.Profile,
	}
	if o.classifier == nil {
		o.classifier = DefaultClassifier()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = nopRecorder{}
	}
	return o, nil
}

// Run drives the package to Success or Failure. The returned session is
// never nil and the terminal summary is always printed. Classified failures
// are reported through the session; the error is non-nil only when the
// package name is invalid or ctx ends. The project credential file never
// outlives Run.
func (o *Orchestrator) Run(ctx context.Context) (_ *Session, err error) {
	id, err := registry.ParseIdentity(o.profile.PackageName)
	if err != nil {
		s := NewSession(registry.PackageIdentity{Name: o.profile.PackageName})
		s.fail(err, ClassUnclassified)
		o.finish(ctx, s)
		return s, err
	}

	s := NewSession(id)
	ctx, endSpan := startRunSpan(ctx, s)
	defer func() { endSpan(err) }()

	o.logger.InfoContext(ctx, "publish session started", "session", s)
	defer o.finish(ctx, s)

	for {
		done, err := o.attempt(ctx, s)
		if err != nil {
			return s, err
		}
		if done {
			return s, nil
		}
	}
}

// attempt runs LocalTest through Verifying once. It returns done=false only
// after a successful rename, when the workflow restarts at LocalTest.
func (o *Orchestrator) attempt(ctx context.Context, s *Session) (bool, error) {
	ctx, span := startAttemptSpan(ctx, s)
	defer span.End()
	defer o.release(ctx)

	o.enter(ctx, s, StateLocalTest)
	o.console.Infof("Testing local execution of %s...", s.Identity)
	if err := o.registry.RunLocal(ctx, o.opts.Dir); err != nil {
		o.console.Errorf("Local execution failed: %v", err)
		return o.stop(ctx, s, err, ClassUnclassified)
	}

	o.enter(ctx, s, StateCacheClear)
	o.console.Infof("Clearing npm cache before publishing...")
	if err := o.registry.ClearCache(ctx); err != nil {
		o.console.Warnf("Clearing the npm cache failed, continuing: %v", err)
		o.logger.WarnContext(ctx, "cache clear failed", "session", s, "error", err)
	}

	o.enter(ctx, s, StateAuthenticating)
	result, err := o.auth.Authenticate(ctx, o.opts.Credentials, o.opts.MaxAuthRetries)
	s.AuthAttempts += result.Attempts
	if err == nil && !result.Success {
		err = oops.Code("AUTH_FAILED").Errorf("authentication did not succeed")
	}
	if err != nil {
		o.console.Errorf("Failed to authenticate for publishing.")
		return o.stop(ctx, s, err, ClassAuthRequired)
	}

	o.enter(ctx, s, StatePublishing)
	var otp string
	if o.opts.Credentials.TwoFactor() {
		otp, err = o.prompt.AskOneTimeCode(ctx, publishOTPMessage)
		if err != nil {
			return o.stop(ctx, s, oops.Code("PROMPT_FAILED").Wrap(err), ClassUnclassified)
		}
	}

	s.PublishAttempts++
	o.metrics.RecordPublishAttempt()
	o.console.Infof("Publishing %s to npm...", s.Identity)
	err = o.registry.Publish(ctx, o.opts.Dir, registry.PublishOptions{Public: s.Identity.Scoped, OTP: otp})
	if err != nil {
		class := o.classifier.Classify(err)
		s.LastError, s.LastClass = err, class
		if class != ClassNameConflict {
			o.console.Errorf("Publishing failed: %v", err)
			return o.stop(ctx, s, err, class)
		}
		o.console.Errorf("Error publishing '%s': %v", s.Identity, err)
		return o.rename(ctx, s)
	}

	o.enter(ctx, s, StateAwaitingPropagation)
	o.console.Infof("Waiting for package to propagate...")
	if err := sleep(ctx, o.opts.PropagationDelay); err != nil {
		return o.stop(ctx, s, err, ClassUnclassified)
	}

	o.enter(ctx, s, StateVerifying)
	if err := o.verify(ctx, s); err != nil {
		o.console.Errorf("Publishing failed: %v", err)
		if ctx.Err() == nil {
			o.console.Warnf("%s was accepted by the registry and may already be live even though it could not be run.", s.Identity)
		}
		return o.stop(ctx, s, err, ClassVerificationFailed)
	}

	s.succeed()
	o.logger.InfoContext(ctx, "package published", "session", s)
	return true, nil
}

// rename asks for a new name after a name conflict and regenerates the
// package under it. done=false restarts the workflow.
func (o *Orchestrator) rename(ctx context.Context, s *Session) (bool, error) {
	conflict := oops.Code("NAME_CONFLICT").
		With("package", s.Identity.String()).
		With("publish_attempts", s.PublishAttempts).
		Wrap(s.LastError)

	if s.PublishAttempts >= o.opts.MaxPublishAttempts {
		o.console.Warnf("Maximum attempts (%d) reached. You can publish manually later.", o.opts.MaxPublishAttempts)
		return o.stop(ctx, s, conflict, ClassNameConflict)
	}

	// The credential file belongs to the identity being abandoned.
	o.release(ctx)
	o.enter(ctx, s, StateRenaming)

	suggestion := registry.Suggest(o.profile.Handle, s.Identity)
	o.console.Infof("Please choose a different package name (e.g., %s or %s-card).", suggestion, s.Identity.Bare())
	answer, err := o.prompt.AskNewPackageName(ctx, suggestion.String())
	if err != nil {
		return o.stop(ctx, s, oops.Code("PROMPT_FAILED").Wrap(err), ClassNameConflict)
	}
	if answer == "" {
		o.console.Warnf("Publishing skipped.")
		s.fail(conflict, ClassNameConflict)
		s.Outcome = OutcomeSkipped
		o.logger.InfoContext(ctx, "publish skipped by user", "session", s)
		return true, nil
	}

	id, err := registry.ParseIdentity(answer)
	if err != nil {
		o.console.Errorf("Invalid package name %q: %v", answer, err)
		return o.stop(ctx, s, err, ClassUnclassified)
	}

	previous := s.Identity
	o.profile.PackageName = id.String()
	if err := o.generator.Generate(ctx, o.profile, o.opts.Dir); err != nil {
		o.console.Errorf("Regenerating the package failed: %v", err)
		return o.stop(ctx, s, err, ClassUnclassified)
	}
	s.Identity = id

	o.logger.InfoContext(ctx, "package renamed",
		"session", s,
		"previous", previous.String(),
	)
	return false, nil
}

// verify runs the package through npx until it succeeds or the retry
// budget is spent.
func (o *Orchestrator) verify(ctx context.Context, s *Session) error {
	maxAttempts := o.opts.MaxVerifyRetries + 1
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(o.opts.MaxVerifyRetries), constant(o.opts.VerifyRetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		s.VerifyAttempts++
		o.console.Infof("Testing npx execution of %s (attempt %d/%d)...", s.Identity, attempt, maxAttempts)

		err := o.registry.RunEphemeral(ctx, s.Identity)
		o.metrics.RecordVerifyAttempt(err == nil)
		if err != nil {
			o.console.Warnf("npx test failed (attempt %d): %v", attempt, err)
			o.logger.WarnContext(ctx, "verification attempt failed",
				"session", s,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err,
			)
			if attempt < maxAttempts {
				o.console.Infof("Retrying after delay...")
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return oops.Code("VERIFICATION_FAILED").
			With("package", s.Identity.String()).
			With("attempts", attempt).
			Wrapf(err, "npx test failed after %d attempts", attempt)
	}
	return nil
}

// stop ends the session as a failure. Context errors are returned so Run
// can report them; classified failures are not.
func (o *Orchestrator) stop(ctx context.Context, s *Session, err error, class Classification) (bool, error) {
	s.fail(err, class)
	errutil.LogError(o.logger, "publish session failed", err,
		"session_id", s.ID.String(),
		"package", s.Identity.String(),
		"class", class.String(),
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return true, ctxErr
	}
	return true, nil
}

func (o *Orchestrator) enter(ctx context.Context, s *Session, state State) {
	s.State = state
	o.logger.DebugContext(ctx, "publish state", "session", s)
}

func (o *Orchestrator) release(ctx context.Context) {
	if err := o.credentials.Release(); err != nil {
		o.logger.WarnContext(ctx, "failed to remove credential file", "error", err)
	}
}

// finish prints the terminal summary and records the outcome.
func (o *Orchestrator) finish(ctx context.Context, s *Session) {
	if s.Succeeded() {
		o.console.PrintPublished(s.Identity.String())
	} else {
		o.console.PrintManualRecovery(o.opts.Dir, s.Identity.Scoped)
	}
	o.metrics.RecordSession(string(s.Outcome))
	o.logger.InfoContext(ctx, "publish session finished", "session", s)
}

// constant waits d between attempts; zero retries immediately.
func constant(d time.Duration) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return d, false
	})
}

// sleep blocks for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordPublishAttempt()    {}
func (nopRecorder) RecordVerifyAttempt(bool) {}
func (nopRecorder) RecordSession(string)     {}
