// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardsmith/cardsmith/internal/auth"
	"github.com/cardsmith/cardsmith/internal/console"
	"github.com/cardsmith/cardsmith/internal/credentials"
	"github.com/cardsmith/cardsmith/internal/observability"
	"github.com/cardsmith/cardsmith/internal/prompt"
	"github.com/cardsmith/cardsmith/internal/publish"
)

// metricsPushTimeout bounds the Pushgateway export after a session.
const metricsPushTimeout = 5 * time.Second

// publishConfig holds the publish command's own flags.
type publishConfig struct {
	noGenerate bool
}

// NewPublishCmd creates the publish subcommand.
func NewPublishCmd() *cobra.Command {
	cfg := &publishConfig{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Generate the card and publish it to npm",
		Long: `Publish generates the card package, tests it locally, logs in to the
registry, publishes it and checks that it runs with npx.

When the name is taken you are asked for another one. Two-factor codes
are requested as the registry asks for them. Login credentials come from
CARDSMITH_NPM_USERNAME, CARDSMITH_NPM_PASSWORD and CARDSMITH_NPM_EMAIL,
or are prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublishWithDeps(cmd.Context(), cmd, cfg, nil)
		},
	}

	addProfileFlags(cmd.Flags())
	cmd.Flags().String("registry", "", "registry URL")
	cmd.Flags().Int("max-publish-attempts", publish.DefaultMaxPublishAttempts, "publish attempts, including renames")
	cmd.Flags().Int("max-auth-retries", auth.DefaultMaxRetries, "login retries after the first failure")
	cmd.Flags().Int("max-verify-retries", publish.DefaultMaxVerifyRetries, "npx test retries after the first failure")
	cmd.Flags().Duration("propagation-delay", publish.DefaultPropagationDelay, "wait before the first npx test")
	cmd.Flags().Duration("verify-retry-delay", publish.DefaultVerifyRetryDelay, "wait between npx tests")
	cmd.Flags().String("pushgateway-url", "", "Prometheus Pushgateway URL for session metrics")
	cmd.Flags().String("metrics-addr", "", "serve /metrics on host:port while publishing")
	cmd.Flags().BoolVar(&cfg.noGenerate, "no-generate", false, "publish the existing package directory as is")

	return cmd
}

// runPublishWithDeps runs the publish workflow with injectable dependencies.
func runPublishWithDeps(ctx context.Context, cmd *cobra.Command, pcfg *publishConfig, deps *PublishDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateProfile(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()
	con := console.New(out)

	opts := cfg.PublishOptions()
	if !pcfg.noGenerate {
		if err := deps.Generator.Generate(ctx, opts.Profile, opts.Dir); err != nil {
			return err
		}
		con.Successf("Business card generated in %s", opts.Dir)
	}

	prompter := deps.PromptFactory(prompt.Mode(cfg.Prompt.Mode), in, out)
	creds, err := prompter.AskCredentials(ctx, cfg.Credentials())
	if err != nil {
		return err
	}
	opts.Credentials = creds

	store, err := credentials.NewStore(opts.Dir, cfg.Registry.UserConfig, cfg.Registry.URL)
	if err != nil {
		return err
	}
	client := deps.RegistryFactory(cfg.NPMConfig(store.Path()), in, out)
	metrics := observability.NewMetrics()
	var running atomic.Bool
	if cfg.Metrics.ListenAddr != "" {
		srv := observability.NewServer(cfg.Metrics.ListenAddr, metrics, running.Load)
		if _, err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", srv.Addr())
	}

	authenticator, err := auth.NewAuthenticator(store, client, prompter,
		auth.WithConsole(con),
		auth.WithLogger(logger),
		auth.WithRecorder(metrics),
	)
	if err != nil {
		return err
	}

	orch, err := publish.NewOrchestrator(publish.Deps{
		Registry:    client,
		Auth:        authenticator,
		Credentials: store,
		Generator:   deps.Generator,
		Prompt:      prompter,
		Console:     con,
		Logger:      logger,
		Metrics:     metrics,
	}, opts)
	if err != nil {
		return err
	}

	running.Store(true)
	sess, runErr := orch.Run(ctx)
	running.Store(false)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
	defer cancel()
	if err := deps.MetricsPusher(pushCtx, metrics, cfg.Metrics.PushgatewayURL); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if sess == nil || !sess.Succeeded() {
		return errPublishIncomplete
	}
	return nil
}
