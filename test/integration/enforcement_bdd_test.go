//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
	"github.com/eliteGoblin/focusd/focuslock/test/fixtures"
)

var _ = Describe("Enforcement", func() {
	var (
		tmpDir string
		clk    *clock.FakeClock
		e      *env
		ctx    context.Context
		bait   *fixtures.FakeApp
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focuslock-enforce-*")
		Expect(err).NotTo(HaveOccurred())
		clk = clock.Fake(time.Unix(1_700_000_000, 0))
		e = startEnv(tmpDir, clk, true)
		ctx = context.Background()

		bait = fixtures.NewFakeApp(tmpDir, "focusbait")
		Expect(bait.Start()).To(Succeed())
	})

	AfterEach(func() {
		bait.Stop()
		e.stop()
		os.RemoveAll(tmpDir)
	})

	readSnapshot := func() domain.BlockSetSnapshot {
		data, err := os.ReadFile(filepath.Join(tmpDir, "blockset.json"))
		Expect(err).NotTo(HaveOccurred())
		var snap domain.BlockSetSnapshot
		Expect(json.Unmarshal(data, &snap)).To(Succeed())
		return snap
	}

	It("leaves a blocked app alone while no session runs", func() {
		_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "focusbait", MatchKind: "exe", Mode: "hard"})
		Expect(err).NotTo(HaveOccurred())

		e.app.Reconciler.Reconcile(ctx)

		Expect(bait.Exited(200 * time.Millisecond)).To(BeFalse())
		Expect(readSnapshot().Entries).To(BeEmpty())
	})

	It("kills a hard-blocked app during a session", func() {
		_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "focusbait", MatchKind: "exe", Mode: "hard"})
		Expect(err).NotTo(HaveOccurred())
		sess, err := e.client.StartSession(ctx, 25*time.Minute)
		Expect(err).NotTo(HaveOccurred())

		e.app.Reconciler.Reconcile(ctx)

		Expect(bait.Exited(5 * time.Second)).To(BeTrue())
		snap := readSnapshot()
		Expect(snap.SessionID).To(Equal(sess.ID))
		Expect(snap.Entries).To(HaveLen(1))
		Expect(snap.Entries[0].Mode).To(Equal(domain.ModeHard))
	})

	It("kills an app matched by path", func() {
		_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: bait.Path(), MatchKind: "path", Mode: "hard"})
		Expect(err).NotTo(HaveOccurred())
		_, err = e.client.StartSession(ctx, 25*time.Minute)
		Expect(err).NotTo(HaveOccurred())

		e.app.Reconciler.Reconcile(ctx)

		Expect(bait.Exited(5 * time.Second)).To(BeTrue())
	})

	It("only reminds for a soft-blocked app", func() {
		_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "focusbait", MatchKind: "exe", Mode: "soft"})
		Expect(err).NotTo(HaveOccurred())
		_, err = e.client.StartSession(ctx, 25*time.Minute)
		Expect(err).NotTo(HaveOccurred())

		e.app.Reconciler.Reconcile(ctx)

		Expect(bait.Exited(200 * time.Millisecond)).To(BeFalse())
	})

	It("keeps blocking while the session is paused", func() {
		_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "focusbait", MatchKind: "exe", Mode: "hard"})
		Expect(err).NotTo(HaveOccurred())
		sess, err := e.client.StartSession(ctx, 25*time.Minute)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.client.SessionAction(ctx, sess.ID, usecase.ActionPause)
		Expect(err).NotTo(HaveOccurred())

		e.app.Reconciler.Reconcile(ctx)

		Expect(bait.Exited(5 * time.Second)).To(BeTrue())
		Expect(readSnapshot().Status).To(Equal(domain.StatusPaused))
	})
})
