// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package main

import (
	"context"
	"io"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/observability"
	"github.com/cardsmith/cardsmith/internal/prompt"
	"github.com/cardsmith/cardsmith/internal/publish"
	"github.com/cardsmith/cardsmith/internal/registry"
)

// PublishDeps contains injectable dependencies for the publish command.
// All fields with nil values will use their default implementations.
type PublishDeps struct {
	// RegistryFactory creates the registry client. Tool output goes to out.
	// Default: registry.NewNPM with an ExecExecutor
	RegistryFactory func(cfg registry.NPMConfig, in io.Reader, out io.Writer) publish.Registry

	// PromptFactory creates the prompt provider.
	// Default: prompt.New
	PromptFactory func(mode prompt.Mode, in io.Reader, out io.Writer) prompt.Provider

	// Generator writes the package files.
	// Default: artifact.NewGenerator
	Generator publish.Generator

	// MetricsPusher exports the session metrics.
	// Default: (*observability.Metrics).Push
	MetricsPusher func(ctx context.Context, m *observability.Metrics, url string) error
}

func (d *PublishDeps) withDefaults() *PublishDeps {
	out := PublishDeps{}
	if d != nil {
		out = *d
	}
	if out.RegistryFactory == nil {
		out.RegistryFactory = func(cfg registry.NPMConfig, in io.Reader, w io.Writer) publish.Registry {
			return registry.NewNPM(cfg, &registry.ExecExecutor{Stdin: in, Stdout: w, Stderr: w})
		}
	}
	if out.PromptFactory == nil {
		out.PromptFactory = prompt.New
	}
	if out.Generator == nil {
		out.Generator = artifact.NewGenerator()
	}
	if out.MetricsPusher == nil {
		out.MetricsPusher = func(ctx context.Context, m *observability.Metrics, url string) error {
			return m.Push(ctx, url)
		}
	}
	return &out
}
