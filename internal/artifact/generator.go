// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package artifact generates the files of a business-card package.
package artifact

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/registry"
)

// DefaultVersion is the version a new card is published at.
const DefaultVersion = "1.0.0"

// Generated file names.
const (
	CardFile     = "card.js"
	ManifestFile = "package.json"
	ReadmeFile   = "README.md"
	LicenseFile  = "LICENSE"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{"quote": quote}).ParseFS(templateFS, "templates/*.tmpl"),
)

// Generator writes the card package for a profile.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// cardData is the template view of a profile.
type cardData struct {
	Profile
	Scoped            bool
	Bare              string
	LinkedInMessageID string
	GitHubUser        string
	LinkedInUser      string
	Year              int
}

// Generate writes card.js, package.json, README.md, and LICENSE into dir,
// replacing any previous content. The profile's package name must already be
// valid.
func (g *Generator) Generate(ctx context.Context, p Profile, dir string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ARTIFACT_WRITE_FAILED").Wrap(err)
	}

	p = p.Normalize()
	id, err := registry.ParseIdentity(p.PackageName)
	if err != nil {
		return err
	}
	version, err := semver.NewVersion(p.Version)
	if err != nil {
		return oops.Code("INVALID_VERSION").With("version", p.Version).Wrap(err)
	}
	p.Version = version.String()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return oops.Code("ARTIFACT_WRITE_FAILED").With("dir", dir).Wrap(err)
	}

	data := cardData{
		Profile:           p,
		Scoped:            id.Scoped,
		Bare:              id.Bare(),
		LinkedInMessageID: p.LinkedInMessageID(),
		GitHubUser:        lastSegment(p.GitHub),
		LinkedInUser:      lastSegment(p.LinkedIn),
		Year:              g.now().Year(),
	}

	manifest, err := json.MarshalIndent(NewManifest(p, id), "", "  ")
	if err != nil {
		return oops.Code("ARTIFACT_WRITE_FAILED").Wrap(err)
	}

	files := []struct {
		name     string
		template string
		raw      []byte
		mode     os.FileMode
	}{
		{name: CardFile, template: "card.js.tmpl", mode: 0o755},
		{name: ManifestFile, raw: append(manifest, '\n'), mode: 0o644},
		{name: ReadmeFile, template: "README.md.tmpl", mode: 0o644},
		{name: LicenseFile, template: "LICENSE.tmpl", mode: 0o644},
	}

	for _, f := range files {
		content := f.raw
		if f.template != "" {
			var buf bytes.Buffer
			if err := templates.ExecuteTemplate(&buf, f.template, data); err != nil {
				return oops.Code("ARTIFACT_WRITE_FAILED").With("file", f.name).Wrap(err)
			}
			content = buf.Bytes()
		}
		if err := writeFile(filepath.Join(dir, f.name), content, f.mode); err != nil {
			return err
		}
	}
	return nil
}

// writeFile writes content and forces mode even when the file already exists.
func writeFile(path string, content []byte, mode os.FileMode) error {
	if err := os.WriteFile(path, content, mode); err != nil {
		return oops.Code("ARTIFACT_WRITE_FAILED").With("path", path).Wrap(err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return oops.Code("ARTIFACT_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// quote renders s as a JavaScript string literal.
func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
