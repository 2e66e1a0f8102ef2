// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package credentials manages the project-scoped registry credential file
// that exists only for the duration of a publish.
package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/registry"
)

// FileName is the name of the project-scoped credential file.
const FileName = ".npmrc"

// tokenPlaceholder lets the registry tooling resolve the token from the
// environment while login is in progress.
const tokenPlaceholder = "${NPM_TOKEN}"

// Token is a registry bearer token.
type Token string

// LogValue keeps the token out of log output.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(fmt.Sprintf("[REDACTED:%d]", len(t)))
}

// LoginFunc performs the registry login for one attempt.
type LoginFunc func(ctx context.Context, creds registry.Credentials) error

// Store writes, refreshes, and removes the project-scoped credential file.
type Store struct {
	path       string
	globalPath string
	key        string
}

// NewStore creates a store that keeps its file in dir and reads tokens from
// globalPath, the registry tooling's user config. An empty globalPath
// defaults to ~/.npmrc.
func NewStore(dir, globalPath, registryURL string) (*Store, error) {
	if globalPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, oops.Code("CREDENTIAL_FILE_FAILED").Wrapf(err, "resolve home directory")
		}
		globalPath = filepath.Join(home, FileName)
	}

	key, err := authKey(registryURL)
	if err != nil {
		return nil, err
	}

	return &Store{
		path:       filepath.Join(dir, FileName),
		globalPath: globalPath,
		key:        key,
	}, nil
}

// Path returns the location of the project-scoped credential file.
func (s *Store) Path() string {
	return s.path
}

// Acquire writes the project file, runs login, and rewrites the file with the
// token the login left in the global config.
func (s *Store) Acquire(ctx context.Context, creds registry.Credentials, login LoginFunc) (Token, error) {
	if err := s.write(tokenPlaceholder, creds.Email); err != nil {
		return "", err
	}

	if err := login(ctx, creds); err != nil {
		return "", oops.Code("AUTH_FAILED").With("username", creds.Username).Wrap(err)
	}

	token, err := s.readGlobalToken()
	if err != nil {
		return "", err
	}

	if err := s.write(string(token), creds.Email); err != nil {
		return "", err
	}
	return token, nil
}

// Release removes the project-scoped file. It is safe to call any number of
// times, including when Acquire never ran.
func (s *Store) Release() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return oops.Code("CREDENTIAL_FILE_FAILED").With("path", s.path).Wrap(err)
	}
	return nil
}

func (s *Store) write(token, email string) error {
	content := fmt.Sprintf("%s:_authToken=%s\nemail=%s\n", s.key, token, email)
	if err := os.WriteFile(s.path, []byte(content), 0o600); err != nil {
		return oops.Code("CREDENTIAL_FILE_FAILED").With("path", s.path).Wrap(err)
	}
	return nil
}

func (s *Store) readGlobalToken() (Token, error) {
	data, err := os.ReadFile(s.globalPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", oops.Code("AUTH_TOKEN_NOT_FOUND").
				With("path", s.globalPath).
				Errorf("registry user config not found after login")
		}
		return "", oops.Code("CREDENTIAL_FILE_FAILED").With("path", s.globalPath).Wrap(err)
	}

	token := ExtractToken(data, s.key)
	if token == "" {
		return "", oops.Code("AUTH_TOKEN_NOT_FOUND").
			With("path", s.globalPath).
			With("registry", s.key).
			Errorf("no auth token for %s in registry user config", s.key)
	}
	return token, nil
}

// ExtractToken returns the last auth token recorded for key ("//host/path/")
// in an npmrc-formatted document.
func ExtractToken(data []byte, key string) Token {
	prefix := key + ":_authToken="
	var token string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, prefix); ok {
			token = strings.TrimSpace(v)
		}
	}
	return Token(token)
}

// authKey converts a registry URL into the npmrc key form "//host/path/".
func authKey(registryURL string) (string, error) {
	if registryURL == "" {
		registryURL = registry.DefaultRegistryURL
	}
	u, err := url.Parse(registryURL)
	if err != nil || u.Host == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("registry_url", registryURL).
			Errorf("invalid registry URL %q", registryURL)
	}
	path := u.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return "//" + u.Host + path, nil
}
