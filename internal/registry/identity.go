// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package registry

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// MaxNameLength is the longest package name the registry accepts.
const MaxNameLength = 214

var (
	// scopePrefix matches the "@scope/" part of a scoped name.
	scopePrefix = regexp.MustCompile(`^@[^/]+/`)
	// barePattern validates the unscoped part: starts with a letter,
	// then lowercase letters, digits, or hyphens.
	barePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// PackageIdentity is the name a package is published under.
type PackageIdentity struct {
	Name   string
	Scoped bool
}

// ParseIdentity validates name against the package naming convention and
// returns its identity.
func ParseIdentity(name string) (PackageIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PackageIdentity{}, oops.Code("INVALID_PACKAGE_NAME").Errorf("package name must be non-empty")
	}
	if strings.ToLower(name) != name {
		return PackageIdentity{}, oops.Code("INVALID_PACKAGE_NAME").
			With("name", name).
			Errorf("package name must be lowercase")
	}
	if len(name) > MaxNameLength {
		return PackageIdentity{}, oops.Code("INVALID_PACKAGE_NAME").
			With("name", name).
			Errorf("package name must be %d characters or less, got %d", MaxNameLength, len(name))
	}

	scoped := scopePrefix.MatchString(name)
	if strings.HasPrefix(name, "@") && !scoped {
		return PackageIdentity{}, oops.Code("INVALID_PACKAGE_NAME").
			With("name", name).
			Errorf("scoped package name must have the form @scope/name")
	}

	bare := scopePrefix.ReplaceAllString(name, "")
	if !barePattern.MatchString(bare) {
		return PackageIdentity{}, oops.Code("INVALID_PACKAGE_NAME").
			With("name", name).
			Errorf("package name must start with a letter and contain only lowercase letters, numbers, or hyphens")
	}

	return PackageIdentity{Name: name, Scoped: scoped}, nil
}

// Bare returns the name without its scope. It is also the bin name of the
// generated card.
func (p PackageIdentity) Bare() string {
	return scopePrefix.ReplaceAllString(p.Name, "")
}

// String returns the full package name.
func (p PackageIdentity) String() string {
	return p.Name
}

// Suggest derives a scoped replacement for current from a user handle,
// e.g. handle "@alice" and "my-card" give "@alice/my-card".
func Suggest(handle string, current PackageIdentity) PackageIdentity {
	scope := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if scope == "" {
		return PackageIdentity{Name: current.Bare() + "-card"}
	}
	return PackageIdentity{Name: "@" + scope + "/" + current.Bare(), Scoped: true}
}
