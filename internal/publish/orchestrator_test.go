// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package publish_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/cardsmith/cardsmith/internal/artifact"
	"github.com/cardsmith/cardsmith/internal/auth"
	"github.com/cardsmith/cardsmith/internal/console"
	"github.com/cardsmith/cardsmith/internal/credentials"
	"github.com/cardsmith/cardsmith/internal/publish"
	"github.com/cardsmith/cardsmith/internal/registry"
	"github.com/cardsmith/cardsmith/pkg/errutil"
)

var errForbidden = errors.New("npm error code E403\nnpm error 403 Forbidden - PUT https://registry.npmjs.org/bizcard-demo - You do not have permission to publish \"bizcard-demo\"")

type harness struct {
	dir         string
	projectFile string

	profile  artifact.Profile
	creds    registry.Credentials
	opts     publish.Options
	reg      *fakeRegistry
	prompter *fakePrompter
	recorder *countingRecorder

	out  bytes.Buffer
	logs bytes.Buffer
}

func newHarness(packageName string) *harness {
	root := GinkgoT().TempDir()
	h := &harness{
		dir: filepath.Join(root, "card"),
		profile: artifact.Profile{
			FullName:    "Alice Example",
			Handle:      "@alice",
			JobProfile:  "Software Developer",
			GitHub:      "alice",
			Email:       "alice@example.com",
			PackageName: packageName,
		},
		creds: registry.Credentials{
			Username: "alice",
			Password: "correct horse",
			Email:    "alice@example.com",
		},
		prompter: &fakePrompter{},
		recorder: newCountingRecorder(),
	}
	h.projectFile = filepath.Join(h.dir, credentials.FileName)
	h.reg = &fakeRegistry{
		global:      filepath.Join(root, "global.npmrc"),
		projectFile: h.projectFile,
	}

	h.opts = publish.DefaultOptions()
	h.opts.PropagationDelay = 0
	h.opts.VerifyRetryDelay = 0

	Expect(artifact.NewGenerator().Generate(context.Background(), h.profile, h.dir)).To(Succeed())
	return h
}

func (h *harness) run(ctx context.Context) (*publish.Session, error) {
	store, err := credentials.NewStore(h.dir, h.reg.global, registry.DefaultRegistryURL)
	Expect(err).NotTo(HaveOccurred())

	con := console.New(&h.out)
	logger := slog.New(slog.NewTextHandler(&h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	authn, err := auth.NewAuthenticator(store, h.reg, h.prompter,
		auth.WithConsole(con),
		auth.WithLogger(logger),
	)
	Expect(err).NotTo(HaveOccurred())

	opts := h.opts
	opts.Dir = h.dir
	opts.Profile = h.profile
	opts.Credentials = h.creds

	orch, err := publish.NewOrchestrator(publish.Deps{
		Registry:    h.reg,
		Auth:        authn,
		Credentials: store,
		Generator:   artifact.NewGenerator(),
		Prompt:      h.prompter,
		Console:     con,
		Logger:      logger,
		Metrics:     h.recorder,
	}, opts)
	Expect(err).NotTo(HaveOccurred())

	return orch.Run(ctx)
}

func publishedNames(calls []publishCall) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.name)
	}
	return names
}

var _ = Describe("Orchestrator", func() {
	var (
		h   *harness
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness("bizcard-demo")
	})

	AfterEach(func() {
		Expect(h.projectFile).NotTo(BeAnExistingFile(), "credential file must not outlive Run")
		Expect(h.logs.String()).NotTo(ContainSubstring("npm_token_"))
		Expect(h.logs.String()).NotTo(ContainSubstring("correct horse"))
	})

	Describe("name available without two-factor auth", func() {
		It("publishes, verifies, and reports success", func() {
			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeTrue())
			Expect(sess.State).To(Equal(publish.StateSuccess))
			Expect(sess.Identity.String()).To(Equal("bizcard-demo"))
			Expect(sess.PublishAttempts).To(Equal(1))
			Expect(sess.AuthAttempts).To(Equal(1))
			Expect(sess.VerifyAttempts).To(Equal(1))

			Expect(h.reg.localRuns).To(Equal(1))
			Expect(h.reg.logins).To(HaveLen(1))
			Expect(h.reg.publishes).To(HaveLen(1))
			Expect(h.reg.publishes[0].opts).To(Equal(registry.PublishOptions{}))
			Expect(h.reg.publishes[0].hadCredential).To(BeTrue())
			Expect(h.reg.verified).To(HaveLen(1))
			Expect(h.prompter.codeAsks).To(BeEmpty())

			Expect(h.out.String()).To(ContainSubstring("published as bizcard-demo!"))
			Expect(h.out.String()).To(ContainSubstring("npx bizcard-demo"))
			Expect(h.recorder.sessions).To(Equal([]string{"success"}))
		})

		It("continues when clearing the cache fails", func() {
			h.reg.cacheErr = errors.New("EPERM: operation not permitted")

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Succeeded()).To(BeTrue())
			Expect(h.out.String()).To(ContainSubstring("Clearing the npm cache failed"))
		})
	})

	Describe("name taken on the first publish", func() {
		BeforeEach(func() {
			h.reg.publishErrs = []error{errForbidden}
			h.prompter.names = []string{"@alice/my-card"}
		})

		It("renames, regenerates, and publishes under the new scoped name", func() {
			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeTrue())
			Expect(sess.Identity).To(Equal(registry.PackageIdentity{Name: "@alice/my-card", Scoped: true}))
			Expect(sess.PublishAttempts).To(Equal(2))
			Expect(h.prompter.nameAsks).To(Equal([]string{"@alice/bizcard-demo"}))

			Expect(publishedNames(h.reg.publishes)).To(Equal([]string{"bizcard-demo", "@alice/my-card"}))
			Expect(h.reg.publishes[0].opts.Public).To(BeFalse())
			Expect(h.reg.publishes[1].opts.Public).To(BeTrue())
			Expect(h.reg.publishes[1].hadCredential).To(BeTrue())
			Expect(h.reg.localRuns).To(Equal(2))
			Expect(h.reg.logins).To(HaveLen(2))
			Expect(h.reg.verified).To(Equal([]registry.PackageIdentity{{Name: "@alice/my-card", Scoped: true}}))

			Expect(h.out.String()).To(ContainSubstring("Error publishing 'bizcard-demo'"))
			Expect(h.out.String()).To(ContainSubstring("published as @alice/my-card!"))
		})

		It("leaves no reference to the previous name in the regenerated files", func() {
			_, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			for _, name := range []string{artifact.CardFile, artifact.ManifestFile, artifact.ReadmeFile, artifact.LicenseFile} {
				data, err := os.ReadFile(filepath.Join(h.dir, name))
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).NotTo(ContainSubstring("bizcard-demo"), name)
			}
		})
	})

	Describe("authentication fails twice then succeeds", func() {
		BeforeEach(func() {
			h.creds.OTP = "111111"
			h.reg.loginErrs = []error{errors.New("npm ERR! code EOTP"), errors.New("npm ERR! code EOTP")}
			h.prompter.codes = []string{"222222", "333333", "444444"}
		})

		It("logs in exactly three times with fresh codes and publishes", func() {
			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeTrue())
			Expect(sess.AuthAttempts).To(Equal(3))
			Expect(h.reg.logins).To(HaveLen(3))

			otps := []string{h.reg.logins[0].OTP, h.reg.logins[1].OTP, h.reg.logins[2].OTP}
			Expect(otps).To(Equal([]string{"111111", "222222", "333333"}))
			Expect(h.prompter.codeAsks).To(HaveLen(3))

			Expect(h.reg.publishes).To(HaveLen(1))
			Expect(h.reg.publishes[0].opts.OTP).To(Equal("444444"))
		})
	})

	Describe("authentication budget exhausted", func() {
		It("aborts as auth-required without publishing", func() {
			loginErr := errors.New("npm ERR! 401 Unauthorized")
			h.reg.loginErrs = []error{loginErr, loginErr, loginErr, loginErr}
			h.prompter.codes = []string{"", "", ""}

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeFalse())
			Expect(sess.LastClass).To(Equal(publish.ClassAuthRequired))
			Expect(errutil.Code(sess.LastError)).To(Equal("AUTH_FAILED"))
			Expect(h.reg.logins).To(HaveLen(auth.DefaultMaxRetries + 1))
			Expect(h.reg.publishes).To(BeEmpty())
			Expect(h.out.String()).To(ContainSubstring("Maximum authentication attempts reached."))
			Expect(h.out.String()).To(ContainSubstring("npm login"))
		})
	})

	Describe("user opts out at the rename prompt", func() {
		It("ends as a skipped failure without another publish", func() {
			h.reg.publishErrs = []error{errForbidden}
			h.prompter.names = []string{""}

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeFalse())
			Expect(sess.Skipped()).To(BeTrue())
			Expect(sess.State).To(Equal(publish.StateFailure))
			Expect(sess.LastClass).To(Equal(publish.ClassNameConflict))
			Expect(h.reg.publishes).To(HaveLen(1))

			out := h.out.String()
			Expect(out).To(ContainSubstring("Publishing skipped."))
			Expect(out).To(ContainSubstring("cd " + h.dir))
			Expect(out).To(ContainSubstring("npm publish"))
			Expect(out).NotTo(ContainSubstring("--access=public"))
			Expect(h.recorder.sessions).To(Equal([]string{"skipped"}))
		})
	})

	Describe("publish succeeds but the package never runs", func() {
		It("fails the session after every verification attempt", func() {
			notFound := errors.New("npm error 404 Not Found - GET https://registry.npmjs.org/bizcard-demo")
			h.reg.verifyErrs = []error{notFound, notFound, notFound}

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeFalse())
			Expect(sess.LastClass).To(Equal(publish.ClassVerificationFailed))
			Expect(errutil.Code(sess.LastError)).To(Equal("VERIFICATION_FAILED"))
			Expect(sess.VerifyAttempts).To(Equal(publish.DefaultMaxVerifyRetries + 1))
			Expect(h.reg.publishes).To(HaveLen(1))
			Expect(h.recorder.verifies[false]).To(Equal(3))

			out := h.out.String()
			Expect(out).To(ContainSubstring("npx test failed after 3 attempts"))
			Expect(out).To(ContainSubstring("may already be live"))
			Expect(out).NotTo(ContainSubstring("Error publishing"))
		})

		It("succeeds when a later verification attempt passes", func() {
			h.reg.verifyErrs = []error{errors.New("404"), errors.New("404")}

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Succeeded()).To(BeTrue())
			Expect(sess.VerifyAttempts).To(Equal(3))
		})
	})

	Describe("bounded conflict recovery", func() {
		It("never publishes more than the attempt budget", func() {
			h.reg.publishErrs = []error{errForbidden, errForbidden, errForbidden, errForbidden, errForbidden}
			h.prompter.names = []string{"@alice/one", "@alice/two", "@alice/three", "@alice/four"}

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sess.Succeeded()).To(BeFalse())
			Expect(h.reg.publishes).To(HaveLen(publish.DefaultMaxPublishAttempts))
			Expect(h.recorder.publishes).To(Equal(publish.DefaultMaxPublishAttempts))
			Expect(h.prompter.nameAsks).To(HaveLen(2))
			Expect(sess.LastClass).To(Equal(publish.ClassNameConflict))
			Expect(errutil.Code(sess.LastError)).To(Equal("NAME_CONFLICT"))
			Expect(h.out.String()).To(ContainSubstring("Maximum attempts (3) reached."))
			Expect(h.out.String()).To(ContainSubstring("npm publish --access=public"))
		})
	})

	Describe("fatal errors", func() {
		It("aborts before logging in when the local run fails", func() {
			h.reg.localErr = errors.New("SyntaxError: Unexpected token")

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Succeeded()).To(BeFalse())
			Expect(sess.LastClass).To(Equal(publish.ClassUnclassified))
			Expect(h.reg.logins).To(BeEmpty())
			Expect(h.reg.publishes).To(BeEmpty())
		})

		It("never retries an unrecognized publish error", func() {
			h.reg.publishErrs = []error{errors.New("npm error code ECONNRESET")}

			sess, err := h.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.LastClass).To(Equal(publish.ClassUnclassified))
			Expect(h.reg.publishes).To(HaveLen(1))
			Expect(h.prompter.nameAsks).To(BeEmpty())
			Expect(h.out.String()).To(ContainSubstring("Publishing failed:"))
		})

		It("rejects an invalid starting package name", func() {
			h.profile.PackageName = "Not Valid"

			sess, err := h.run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(errutil.Code(err)).To(Equal("INVALID_PACKAGE_NAME"))
			Expect(sess.Succeeded()).To(BeFalse())
			Expect(sess.Outcome).To(Equal(publish.OutcomeFailure))
			Expect(h.reg.localRuns).To(BeZero())
			Expect(h.recorder.sessions).To(Equal([]string{"failure"}))
			Expect(h.out.String()).To(ContainSubstring("You can try publishing manually by running:"))
		})
	})

	Describe("context cancellation", func() {
		It("returns the context error and still removes the credential file", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			h.reg.publishErrs = []error{errForbidden}
			h.prompter.cancelOnAsk = cancel

			sess, err := h.run(cctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(sess.Succeeded()).To(BeFalse())
		})

		It("stops waiting for propagation when the deadline passes", func() {
			h.opts.PropagationDelay = time.Hour
			tctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()

			sess, err := h.run(tctx)
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(sess.State).To(Equal(publish.StateFailure))
			Expect(h.reg.verified).To(BeEmpty())
		})
	})
})

var _ = Describe("Options", func() {
	It("rejects a zero publish budget", func() {
		opts := publish.DefaultOptions()
		opts.Dir = "card"
		opts.MaxPublishAttempts = 0
		Expect(opts.Validate()).To(HaveOccurred())
	})

	It("requires a package directory", func() {
		Expect(publish.DefaultOptions().Validate()).To(HaveOccurred())
	})

	It("rejects negative delays", func() {
		opts := publish.DefaultOptions()
		opts.Dir = "card"
		opts.VerifyRetryDelay = -time.Second
		Expect(opts.Validate()).To(HaveOccurred())
	})
})
