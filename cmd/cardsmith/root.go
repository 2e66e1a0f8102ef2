// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/config"
	"github.com/cardsmith/cardsmith/internal/logging"
	"github.com/cardsmith/cardsmith/internal/prompt"
)

const serviceName = "cardsmith"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the cardsmith CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cardsmith",
		Short: "cardsmith - terminal business cards on npm",
		Long: `cardsmith generates a business card you can run with npx and
publishes it to the npm registry, recovering from taken names and
two-factor authentication prompts along the way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/cardsmith/config.yaml)")
	cmd.PersistentFlags().String("log-format", "text", "log format (json or text)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("prompt", string(prompt.ModeAuto), "prompt mode (auto, tui, line)")

	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewPublishCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// addProfileFlags registers the flags that override profile settings.
func addProfileFlags(fs *pflag.FlagSet) {
	fs.String("package-name", "", "npm package name, optionally @scope/name")
	fs.String("card-version", artifact.DefaultVersion, "version of the generated package")
	fs.String("output-dir", "", "package directory (default: ./<package name>)")
}

// loadConfig loads the configuration for cmd and installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	return cfg, logger, nil
}
