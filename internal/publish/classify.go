// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package publish

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/registry"
)

// Classification is the kind of a publish-workflow failure. It decides
// whether the orchestrator retries, prompts, or aborts.
type Classification int

// Classifications. ClassNone means no error has been classified yet.
const (
	ClassNone Classification = iota
	ClassAuthRequired
	ClassNameConflict
	ClassVerificationFailed
	ClassUnclassified
)

func (c Classification) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAuthRequired:
		return "auth_required"
	case ClassNameConflict:
		return "name_conflict"
	case ClassVerificationFailed:
		return "verification_failed"
	case ClassUnclassified:
		return "unclassified"
	default:
		return "unknown"
	}
}

// Rule maps a glob pattern over the lowercased registry message to a
// classification.
type Rule struct {
	Pattern string
	Class   Classification
}

// DefaultRules recognizes the npm registry's wording. Rules are tried in
// order and the first match wins.
var DefaultRules = []Rule{
	{Pattern: "*eotp*", Class: ClassAuthRequired},
	{Pattern: "*one-time password*", Class: ClassAuthRequired},
	{Pattern: "*403*", Class: ClassNameConflict},
	{Pattern: "*eneedauth*", Class: ClassNameConflict},
	{Pattern: "*cannot publish*", Class: ClassNameConflict},
	{Pattern: "*package name too*", Class: ClassNameConflict},
	{Pattern: "*you do not have permission*", Class: ClassNameConflict},
}

type compiledRule struct {
	pattern string
	glob    glob.Glob
	class   Classification
}

// Classifier maps registry errors to classifications.
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles rules.
func NewClassifier(rules []Rule) (*Classifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		pattern := strings.ToLower(r.Pattern)
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code("INVALID_ARGUMENT").With("pattern", r.Pattern).Wrap(err)
		}
		compiled = append(compiled, compiledRule{pattern: pattern, glob: g, class: r.Class})
	}
	return &Classifier{rules: compiled}, nil
}

// DefaultClassifier returns a classifier for DefaultRules.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the classification of err. Errors that match no rule are
// ClassUnclassified; a nil error is ClassNone. When err carries the output
// of a failed registry command only that output is matched, never the
// command line.
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return ClassNone
	}
	text, ok := registry.CommandOutput(err)
	if !ok {
		text = err.Error()
	}
	msg := normalize(text)
	for _, r := range c.rules {
		if r.glob.Match(msg) {
			return r.class
		}
	}
	return ClassUnclassified
}

// normalize lowercases msg and collapses whitespace so patterns never have
// to account for line breaks in command output.
func normalize(msg string) string {
	return strings.ToLower(strings.Join(strings.Fields(msg), " "))
}
