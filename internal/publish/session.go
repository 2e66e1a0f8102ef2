// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package publish

import (
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/cardsmith/cardsmith/internal/registry"
)

// State is a step of the publish workflow.
type State int

// Workflow states.
const (
	StateLocalTest State = iota
	StateCacheClear
	StateAuthenticating
	StatePublishing
	StateAwaitingPropagation
	StateVerifying
	StateRenaming
	StateSuccess
	StateFailure
)

var stateNames = [...]string{
	StateLocalTest:           "local_test",
	StateCacheClear:          "cache_clear",
	StateAuthenticating:      "authenticating",
	StatePublishing:          "publishing",
	StateAwaitingPropagation: "awaiting_propagation",
	StateVerifying:           "verifying",
	StateRenaming:            "renaming",
	StateSuccess:             "success",
	StateFailure:             "failure",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends the workflow.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// Outcome is how a session ended.
type Outcome string

// Session outcomes. Skipped is a failure the user chose by declining to
// rename a conflicting package.
const (
	OutcomePending Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// Session is the working state of one publish run. It is owned by the
// orchestrator for the duration of Run.
type Session struct {
	ID       ulid.ULID
	Identity registry.PackageIdentity
	State    State

	PublishAttempts int
	AuthAttempts    int
	VerifyAttempts  int

	LastError error
	LastClass Classification
	Outcome   Outcome
}

// NewSession starts a session for id.
func NewSession(id registry.PackageIdentity) *Session {
	return &Session{
		ID:       ulid.Make(),
		Identity: id,
		State:    StateLocalTest,
	}
}

// Succeeded reports whether the package was published and verified.
func (s *Session) Succeeded() bool {
	return s.Outcome == OutcomeSuccess
}

// Skipped reports whether the user opted out of renaming.
func (s *Session) Skipped() bool {
	return s.Outcome == OutcomeSkipped
}

// fail records err and its classification and ends the session.
func (s *Session) fail(err error, class Classification) {
	s.LastError = err
	s.LastClass = class
	s.State = StateFailure
	s.Outcome = OutcomeFailure
}

func (s *Session) succeed() {
	s.State = StateSuccess
	s.Outcome = OutcomeSuccess
}

// LogValue implements slog.LogValuer.
func (s *Session) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", s.ID.String()),
		slog.String("package", s.Identity.String()),
		slog.String("state", s.State.String()),
		slog.Int("publish_attempts", s.PublishAttempts),
		slog.Int("auth_attempts", s.AuthAttempts),
		slog.Int("verify_attempts", s.VerifyAttempts),
	}
	if s.LastClass != ClassNone {
		attrs = append(attrs, slog.String("last_class", s.LastClass.String()))
	}
	if s.Outcome != OutcomePending {
		attrs = append(attrs, slog.String("outcome", string(s.Outcome)))
	}
	return slog.GroupValue(attrs...)
}
