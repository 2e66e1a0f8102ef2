// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package registry

import (
	"context"
	"os"
	"strings"

	"github.com/samber/oops"
)

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org/"

// NPMConfig holds the tool paths and registry used by NPM.
type NPMConfig struct {
	RegistryURL string
	NPM         string
	NPX         string
	Node        string
	// ProjectConfig is the project-scoped credential file. When it exists
	// it is passed to publish and npx so they use the session token.
	ProjectConfig string
}

// NPM implements Client and LocalRunner by shelling out to the npm tooling.
type NPM struct {
	cfg  NPMConfig
	exec Executor
}

// NewNPM creates an npm-backed client. Empty tool paths fall back to the
// binaries on PATH.
func NewNPM(cfg NPMConfig, executor Executor) *NPM {
	if cfg.RegistryURL == "" {
		cfg.RegistryURL = DefaultRegistryURL
	}
	if cfg.NPM == "" {
		cfg.NPM = "npm"
	}
	if cfg.NPX == "" {
		cfg.NPX = "npx"
	}
	if cfg.Node == "" {
		cfg.Node = "node"
	}
	if executor == nil {
		executor = NewExecExecutor()
	}
	return &NPM{cfg: cfg, exec: executor}
}

// Login runs npm login, answering its prompts on stdin.
func (n *NPM) Login(ctx context.Context, creds Credentials) error {
	var input strings.Builder
	input.WriteString(creds.Username + "\n")
	input.WriteString(creds.Password + "\n")
	input.WriteString(creds.Email)
	if creds.OTP != "" {
		input.WriteString("\n" + creds.OTP)
	}
	input.WriteString("\n")

	err := n.exec.Run(ctx, Command{
		Name:  n.cfg.NPM,
		Args:  []string{"login", "--registry=" + n.cfg.RegistryURL},
		Stdin: input.String(),
	})
	if err != nil {
		return oops.Code("AUTH_FAILED").With("username", creds.Username).Wrap(err)
	}
	return nil
}

// Publish runs npm publish in dir.
func (n *NPM) Publish(ctx context.Context, dir string, opts PublishOptions) error {
	args := []string{"publish", "--registry=" + n.cfg.RegistryURL}
	if opts.Public {
		args = append(args, "--access=public")
	}
	if opts.OTP != "" {
		args = append(args, "--otp="+opts.OTP)
	}
	args = append(args, n.userConfigArgs()...)

	if err := n.exec.Run(ctx, Command{Name: n.cfg.NPM, Args: args, Dir: dir}); err != nil {
		return oops.Code("PUBLISH_FAILED").With("dir", dir).Wrap(err)
	}
	return nil
}

// ClearCache runs npm cache clean --force.
func (n *NPM) ClearCache(ctx context.Context) error {
	if err := n.exec.Run(ctx, Command{Name: n.cfg.NPM, Args: []string{"cache", "clean", "--force"}}); err != nil {
		return oops.Code("CACHE_CLEAR_FAILED").Wrap(err)
	}
	return nil
}

// RunEphemeral runs the package through npx without installing it.
func (n *NPM) RunEphemeral(ctx context.Context, id PackageIdentity) error {
	args := []string{"--yes", "--registry=" + n.cfg.RegistryURL}
	args = append(args, n.userConfigArgs()...)
	args = append(args, id.Name)

	if err := n.exec.Run(ctx, Command{Name: n.cfg.NPX, Args: args}); err != nil {
		return oops.Code("VERIFICATION_FAILED").With("package", id.Name).Wrap(err)
	}
	return nil
}

// RunLocal installs the package's dependencies and runs its entry point.
func (n *NPM) RunLocal(ctx context.Context, dir string) error {
	install := Command{
		Name: n.cfg.NPM,
		Args: []string{"install", "--no-audit", "--no-fund", "--registry=" + n.cfg.RegistryURL},
		Dir:  dir,
	}
	if err := n.exec.Run(ctx, install); err != nil {
		return oops.Code("LOCAL_EXECUTION_FAILED").With("dir", dir).Wrap(err)
	}
	if err := n.exec.Run(ctx, Command{Name: n.cfg.Node, Args: []string{"card.js"}, Dir: dir}); err != nil {
		return oops.Code("LOCAL_EXECUTION_FAILED").With("dir", dir).Wrap(err)
	}
	return nil
}

func (n *NPM) userConfigArgs() []string {
	if n.cfg.ProjectConfig == "" {
		return nil
	}
	if _, err := os.Stat(n.cfg.ProjectConfig); err != nil {
		return nil
	}
	return []string{"--userconfig=" + n.cfg.ProjectConfig}
}
