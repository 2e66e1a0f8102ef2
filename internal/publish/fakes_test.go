// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/registry"
)

// fakeRegistry scripts the npm tooling. Each *Errs slice is consumed one
// entry per call; once empty, calls succeed.
type fakeRegistry struct {
	global      string
	projectFile string

	localErr    error
	cacheErr    error
	loginErrs   []error
	publishErrs []error
	verifyErrs  []error

	localRuns   int
	logins      []registry.Credentials
	publishes   []publishCall
	verified    []registry.PackageIdentity
	tokenIssued int
}

type publishCall struct {
	name          string
	opts          registry.PublishOptions
	hadCredential bool
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeRegistry) Login(_ context.Context, creds registry.Credentials) error {
	f.logins = append(f.logins, creds)
	if err := pop(&f.loginErrs); err != nil {
		return err
	}
	f.tokenIssued++
	line := fmt.Sprintf("//registry.npmjs.org/:_authToken=npm_token_%d\n", f.tokenIssued)
	return os.WriteFile(f.global, []byte(line), 0o600)
}

func (f *fakeRegistry) Publish(_ context.Context, dir string, opts registry.PublishOptions) error {
	_, statErr := os.Stat(f.projectFile)
	f.publishes = append(f.publishes, publishCall{
		name:          manifestName(dir),
		opts:          opts,
		hadCredential: statErr == nil,
	})
	return pop(&f.publishErrs)
}

func (f *fakeRegistry) ClearCache(context.Context) error {
	return f.cacheErr
}

func (f *fakeRegistry) RunEphemeral(_ context.Context, id registry.PackageIdentity) error {
	f.verified = append(f.verified, id)
	return pop(&f.verifyErrs)
}

func (f *fakeRegistry) RunLocal(context.Context, string) error {
	f.localRuns++
	return f.localErr
}

func manifestName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, artifact.ManifestFile))
	if err != nil {
		return ""
	}
	var m struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	return m.Name
}

// fakePrompter answers from scripts. Running out of answers is an error so
// unexpected prompts fail loudly.
type fakePrompter struct {
	codes []string
	names []string

	codeAsks    []string
	nameAsks    []string
	codeErr     error
	nameErr     error
	cancelOnAsk context.CancelFunc
}

var errNoAnswer = errors.New("no scripted answer")

func (p *fakePrompter) AskOneTimeCode(_ context.Context, message string) (string, error) {
	p.codeAsks = append(p.codeAsks, message)
	if p.codeErr != nil {
		return "", p.codeErr
	}
	if len(p.codes) == 0 {
		return "", errNoAnswer
	}
	code := p.codes[0]
	p.codes = p.codes[1:]
	return code, nil
}

func (p *fakePrompter) AskNewPackageName(_ context.Context, suggestion string) (string, error) {
	p.nameAsks = append(p.nameAsks, suggestion)
	if p.cancelOnAsk != nil {
		p.cancelOnAsk()
		return "", context.Canceled
	}
	if p.nameErr != nil {
		return "", p.nameErr
	}
	if len(p.names) == 0 {
		return "", errNoAnswer
	}
	name := p.names[0]
	p.names = p.names[1:]
	return name, nil
}

type countingRecorder struct {
	publishes int
	verifies  map[bool]int
	sessions  []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{verifies: map[bool]int{}}
}

func (c *countingRecorder) RecordPublishAttempt()            { c.publishes++ }
func (c *countingRecorder) RecordVerifyAttempt(success bool) { c.verifies[success]++ }
func (c *countingRecorder) RecordSession(outcome string)     { c.sessions = append(c.sessions, outcome) }
