// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package main is the entry point for the cardsmith CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardsmith/cardsmith/pkg/errutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

// errPublishIncomplete reports a publish session that ended in failure. The
// console has already explained why.
var errPublishIncomplete = errors.New("package was not published")

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	os.Exit(execute(cmd, os.Stderr))
}

// execute runs cmd and maps its error to an exit code.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	if !errors.Is(err, errPublishIncomplete) {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch errutil.Code(err) {
	case "CONFIG_INVALID", "INVALID_PACKAGE_NAME", "INVALID_VERSION":
		return exitConfig
	default:
		return exitFailure
	}
}
