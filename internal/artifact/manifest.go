// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package artifact

import "github.com/cardsmith/cardsmith/internal/registry"

// Manifest is the generated package.json.
type Manifest struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Description   string            `json:"description"`
	Main          string            `json:"main"`
	Type          string            `json:"type"`
	Bin           map[string]string `json:"bin"`
	Scripts       map[string]string `json:"scripts"`
	Repository    Repository        `json:"repository"`
	Files         []string          `json:"files"`
	Keywords      []string          `json:"keywords"`
	Author        string            `json:"author"`
	License       string            `json:"license"`
	Dependencies  map[string]string `json:"dependencies"`
	PublishConfig *PublishConfig    `json:"publishConfig,omitempty"`
}

// Repository is the package.json repository field.
type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// PublishConfig is the package.json publishConfig field.
type PublishConfig struct {
	Access string `json:"access"`
}

// cardDependencies are the runtime dependencies of card.js.
var cardDependencies = map[string]string{
	"boxen":    "^7.1.1",
	"chalk":    "^5.3.0",
	"clear":    "^0.1.0",
	"inquirer": "^9.2.12",
	"open":     "^10.1.0",
}

// NewManifest builds the package.json for a normalized profile.
func NewManifest(p Profile, id registry.PackageIdentity) Manifest {
	deps := make(map[string]string, len(cardDependencies))
	for k, v := range cardDependencies {
		deps[k] = v
	}

	m := Manifest{
		Name:        id.Name,
		Version:     p.Version,
		Description: "Professional business card for " + p.FullName,
		Main:        CardFile,
		Type:        "module",
		Bin:         map[string]string{id.Bare(): CardFile},
		Scripts: map[string]string{
			"start":          "node " + CardFile,
			"prepublishOnly": "node " + CardFile,
		},
		Repository: Repository{
			Type: "git",
			URL:  "git+https://github.com/USERNAME/REPO.git",
		},
		Files:        []string{CardFile, ManifestFile, ReadmeFile, LicenseFile},
		Keywords:     []string{id.Name, "businesscard", "npxcard", "npmcard", "developer"},
		Author:       p.FullName,
		License:      "MIT",
		Dependencies: deps,
	}
	if id.Scoped {
		m.PublishConfig = &PublishConfig{Access: "public"}
	}
	return m
}
