// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/console"
)

// NewGenerateCmd creates the generate subcommand.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the business card package",
		Long: `Generate writes the card script, package.json, README and LICENSE for
the configured profile into the output directory. Nothing is published.`,
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}

	addProfileFlags(cmd.Flags())

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateProfile(); err != nil {
		return err
	}

	dir := cfg.OutputDir()
	if err := artifact.NewGenerator().Generate(cmd.Context(), cfg.Profile, dir); err != nil {
		return err
	}

	logger.Info("card generated", "package", cfg.Profile.PackageName, "dir", dir)
	console.New(cmd.OutOrStdout()).Successf("Business card generated in %s", dir)
	return nil
}
