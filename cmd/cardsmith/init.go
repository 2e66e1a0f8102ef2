// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cardsmith/cardsmith/internal/console"
	"github.com/cardsmith/cardsmith/internal/xdg"
)

const starterConfig = `# cardsmith configuration
# Registry credentials are never read from this file. Set
# CARDSMITH_NPM_USERNAME, CARDSMITH_NPM_PASSWORD and CARDSMITH_NPM_EMAIL,
# or answer the prompts.

profile:
  full_name: ""
  handle: ""
  email: ""
  package_name: ""
  # job_profile: ""
  # tagline: ""
  # github: ""
  # linkedin: ""
  # portfolio: ""
  # certifications: ""
  # version: 1.0.0

# publish:
#   max_publish_attempts: 3
#   max_auth_retries: 2
#   max_verify_retries: 2
#   propagation_delay: 10s
#   verify_retry_delay: 5s

# log:
#   format: text
#   level: info
`

// NewInitCmd creates the init subcommand.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Init writes a commented starter config to the --config path, or to
XDG_CONFIG_HOME/cardsmith/config.yaml. An existing file is kept unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := initPath()
			if err != nil {
				return err
			}
			if err := writeStarterConfig(path, force); err != nil {
				return err
			}
			console.New(cmd.OutOrStdout()).Successf("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func initPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.ConfigFile()
}

func writeStarterConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("%s already exists; use --force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "stat config")
		}
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o600); err != nil {
		return oops.Code("WRITE_FAILED").With("path", path).Wrapf(err, "write config")
	}
	return nil
}
