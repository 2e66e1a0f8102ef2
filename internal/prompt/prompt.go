// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package prompt asks the user for the values the publish workflow cannot
// know ahead of time: one-time codes, replacement package names, and
// registry credentials.
package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/registry"
)

// ErrCanceled is returned when the user aborts a prompt (Ctrl-C, Esc).
var ErrCanceled = errors.New("prompt canceled")

// Provider asks questions synchronously.
type Provider interface {
	// AskOneTimeCode asks for a two-factor code. An empty answer is allowed.
	AskOneTimeCode(ctx context.Context, message string) (string, error)

	// AskNewPackageName asks for a replacement package name, offering
	// suggestion. An empty answer means the user opted out.
	AskNewPackageName(ctx context.Context, suggestion string) (string, error)

	// AskCredentials fills in the fields of partial that are empty.
	AskCredentials(ctx context.Context, partial registry.Credentials) (registry.Credentials, error)
}

// Mode selects the prompt implementation.
type Mode string

// Prompt modes.
const (
	ModeAuto Mode = "auto"
	ModeTUI  Mode = "tui"
	ModeLine Mode = "line"
)

// New returns a provider for mode reading from in and writing to out. In
// auto mode the TUI is used only when in is a terminal.
func New(mode Mode, in io.Reader, out io.Writer) Provider {
	switch mode {
	case ModeTUI:
		return NewTUI(in, out)
	case ModeLine:
		return NewLine(in, out)
	default:
		if isTerminal(in) {
			return NewTUI(in, out)
		}
		return NewLine(in, out)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// question is one prompt with its validation.
type question struct {
	message     string
	initial     string
	placeholder string
	secret      bool
	validate    func(string) error
}

const newPackageNameMessage = "Enter a new package name (or clear the field and press Enter to skip publishing):"

func packageNameQuestion(suggestion string) question {
	return question{
		message:  newPackageNameMessage,
		initial:  suggestion,
		validate: validatePackageNameAnswer,
	}
}

// validatePackageNameAnswer accepts an empty answer (opt-out) or a valid name.
func validatePackageNameAnswer(answer string) error {
	if strings.TrimSpace(answer) == "" {
		return nil
	}
	_, err := registry.ParseIdentity(answer)
	return err
}

func required(field string) func(string) error {
	return func(answer string) error {
		if strings.TrimSpace(answer) == "" {
			return oops.Code("PROMPT_INVALID").Errorf("%s is required", field)
		}
		return nil
	}
}

func validEmail(answer string) error {
	if !artifact.ValidEmail(strings.TrimSpace(answer)) {
		return oops.Code("PROMPT_INVALID").Errorf("please enter a valid email")
	}
	return nil
}

// credentialField is a credential question and where its answer goes.
type credentialField struct {
	q   question
	set func(*registry.Credentials, string)
}

// credentialQuestions lists the questions needed to complete partial.
func credentialQuestions(partial registry.Credentials) []credentialField {
	var qs []credentialField
	if partial.Username == "" {
		qs = append(qs, credentialField{
			q:   question{message: "Enter your npm username:", validate: required("username")},
			set: func(c *registry.Credentials, v string) { c.Username = strings.TrimSpace(v) },
		})
	}
	if partial.Password == "" {
		qs = append(qs, credentialField{
			q:   question{message: "Enter your npm password:", secret: true, validate: required("password")},
			set: func(c *registry.Credentials, v string) { c.Password = v },
		})
	}
	if partial.Email == "" {
		qs = append(qs, credentialField{
			q:   question{message: "Enter your npm email address:", validate: validEmail},
			set: func(c *registry.Credentials, v string) { c.Email = strings.TrimSpace(v) },
		})
	}
	if partial.OTP == "" {
		qs = append(qs, credentialField{
			q:   question{message: "Enter your npm two-factor authentication code (if enabled, press Enter to skip):"},
			set: func(c *registry.Credentials, v string) { c.OTP = strings.TrimSpace(v) },
		})
	}
	return qs
}

// askCredentials runs the credential questions through ask.
func askCredentials(ctx context.Context, partial registry.Credentials, ask func(context.Context, question) (string, error)) (registry.Credentials, error) {
	creds := partial
	for _, e := range credentialQuestions(partial) {
		answer, err := ask(ctx, e.q)
		if err != nil {
			return registry.Credentials{}, err
		}
		e.set(&creds, answer)
	}
	return creds, nil
}
