// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/registry"
)

// Line asks questions one line at a time. It is used when stdin is not a
// terminal, e.g. answers piped in from a script.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLine creates a line-based provider.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

// AskOneTimeCode implements Provider.
func (l *Line) AskOneTimeCode(ctx context.Context, message string) (string, error) {
	answer, err := l.ask(ctx, question{message: message})
	return strings.TrimSpace(answer), err
}

// AskNewPackageName implements Provider. An empty line opts out.
func (l *Line) AskNewPackageName(ctx context.Context, suggestion string) (string, error) {
	q := packageNameQuestion(suggestion)
	q.message = fmt.Sprintf("Enter a new package name, e.g. %s (or press Enter to skip publishing):", suggestion)
	answer, err := l.ask(ctx, q)
	return strings.TrimSpace(answer), err
}

// AskCredentials implements Provider.
func (l *Line) AskCredentials(ctx context.Context, partial registry.Credentials) (registry.Credentials, error) {
	return askCredentials(ctx, partial, l.ask)
}

func (l *Line) ask(ctx context.Context, q question) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(l.out, "? %s ", q.message)

		line, readErr := l.in.ReadString('\n')
		if readErr != nil && !(errors.Is(readErr, io.EOF) && line != "") {
			return "", oops.Code("PROMPT_FAILED").With("question", q.message).Wrap(readErr)
		}
		answer := strings.TrimRight(line, "\r\n")

		if q.validate != nil {
			if err := q.validate(answer); err != nil {
				fmt.Fprintf(l.out, ">> %v\n", err)
				if readErr != nil {
					return "", oops.Code("PROMPT_FAILED").With("question", q.message).Wrap(err)
				}
				continue
			}
		}
		return answer, nil
	}
}
