//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/app"
	"github.com/eliteGoblin/focusd/focuslock/internal/client"
	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/config"
	"github.com/eliteGoblin/focusd/focuslock/internal/daemon"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/infra"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

// env is one running focuslock instance over an encrypted store in dir.
type env struct {
	dir    string
	store  domain.Store
	app    *app.App
	server *httptest.Server
	client *client.Client
}

func startEnv(dir string, clk clock.Clock, enforce bool) *env {
	store, err := app.OpenStore(config.StoreConfig{
		Driver: config.DriverSQLCipher,
		Path:   filepath.Join(dir, "focuslock.db"),
	}, dir)
	Expect(err).NotTo(HaveOccurred())

	a := app.New(app.Options{
		Store:          store,
		ProcessManager: infra.NewProcessManager(),
		Clock:          clk,
		Publisher:      infra.NewFileSnapshotPublisher(filepath.Join(dir, "blockset.json")),
		Reconciler:     daemon.DefaultReconcilerConfig(),
		Enforce:        enforce,
		Token:          "integration",
		Version:        "integration",
		Logger:         zap.NewNop(),
	})
	srv := httptest.NewServer(a.Handler)
	return &env{
		dir:    dir,
		store:  store,
		app:    a,
		server: srv,
		client: client.New(srv.URL, "integration"),
	}
}

func (e *env) stop() {
	e.server.Close()
	Expect(e.store.Close()).To(Succeed())
}

func apiKind(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

var _ = Describe("Focus sessions", func() {
	var (
		tmpDir string
		clk    *clock.FakeClock
		e      *env
		ctx    context.Context
		t0     = time.Unix(1_700_000_000, 0)
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focuslock-integration-*")
		Expect(err).NotTo(HaveOccurred())
		clk = clock.Fake(t0)
		e = startEnv(tmpDir, clk, false)
		ctx = context.Background()
	})

	AfterEach(func() {
		if e != nil {
			e.stop()
		}
		os.RemoveAll(tmpDir)
	})

	Describe("lifecycle", func() {
		It("pauses and resumes without losing time", func() {
			sess, err := e.client.StartSession(ctx, 1500*time.Second)
			Expect(err).NotTo(HaveOccurred())

			clk.Advance(600 * time.Second)
			paused, err := e.client.SessionAction(ctx, sess.ID, usecase.ActionPause)
			Expect(err).NotTo(HaveOccurred())
			Expect(paused.RemainingNowSecs).To(Equal(int64(900)))

			clk.Advance(1000 * time.Second)
			resumed, err := e.client.SessionAction(ctx, sess.ID, usecase.ActionResume)
			Expect(err).NotTo(HaveOccurred())
			Expect(*resumed.EndUTC).To(Equal(t0.Unix() + 1600 + 900))
		})

		It("completes on its own once time runs out", func() {
			sess, err := e.client.StartSession(ctx, time.Minute)
			Expect(err).NotTo(HaveOccurred())

			clk.Advance(61 * time.Second)
			current, err := e.client.CurrentSession(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(current).To(BeNil())

			history, err := e.client.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(history[0].ID).To(Equal(sess.ID))
			Expect(history[0].Status).To(Equal(domain.StatusCompleted))
		})

		It("rejects every transition out of a terminal state", func() {
			sess, err := e.client.StartSession(ctx, time.Hour)
			Expect(err).NotTo(HaveOccurred())
			_, err = e.client.SessionAction(ctx, sess.ID, usecase.ActionCancel)
			Expect(err).NotTo(HaveOccurred())

			for _, action := range []string{usecase.ActionPause, usecase.ActionResume, usecase.ActionComplete, usecase.ActionCancel} {
				_, err := e.client.SessionAction(ctx, sess.ID, action)
				Expect(apiKind(err)).To(Equal("invalid_transition"), action)
			}
		})
	})

	Describe("single active session", func() {
		It("lets exactly one of many concurrent starts win", func() {
			const n = 16
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				wins      int
				conflicts int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := e.client.StartSession(ctx, time.Hour)
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						wins++
					} else if apiKind(err) == "conflict" {
						conflicts++
					}
				}()
			}
			wg.Wait()

			Expect(wins).To(Equal(1))
			Expect(conflicts).To(Equal(n - 1))
		})
	})

	Describe("persistence", func() {
		It("keeps sessions and rules across a restart", func() {
			_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "discord", MatchKind: "exe", Mode: "hard"})
			Expect(err).NotTo(HaveOccurred())
			sess, err := e.client.StartSession(ctx, time.Hour)
			Expect(err).NotTo(HaveOccurred())

			e.stop()
			e = startEnv(tmpDir, clk, false)

			current, err := e.client.CurrentSession(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(current).NotTo(BeNil())
			Expect(current.ID).To(Equal(sess.ID))

			snap, err := e.client.Blocks(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Entries).To(HaveLen(1))
			Expect(snap.Entries[0].AppIdentity).To(Equal("discord"))
		})

		It("cannot be opened with another key", func() {
			e.stop()
			e = nil

			_, err := infra.OpenEncryptedStore(filepath.Join(tmpDir, "focuslock.db"), make([]byte, 32))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("effective block set", func() {
		It("follows the discord/chrome scenario", func() {
			_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "discord", MatchKind: "exe", Mode: "hard"})
			Expect(err).NotTo(HaveOccurred())
			_, err = e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "chrome", MatchKind: "exe", Mode: "soft"})
			Expect(err).NotTo(HaveOccurred())

			snap, err := e.client.Blocks(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Entries).To(BeEmpty(), "nothing is blocked without a session")

			_, err = e.client.StartSession(ctx, 1500*time.Second)
			Expect(err).NotTo(HaveOccurred())

			snap, err = e.client.Blocks(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Entries).To(ConsistOf(
				domain.EffectiveBlockEntry{AppIdentity: "chrome", Mode: domain.ModeSoft, MatchKinds: []domain.MatchKind{domain.MatchExe}},
				domain.EffectiveBlockEntry{AppIdentity: "discord", Mode: domain.ModeHard, MatchKinds: []domain.MatchKind{domain.MatchExe}},
			))

			clk.Advance(1500 * time.Second)
			snap, err = e.client.Blocks(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Entries).To(BeEmpty(), "expired session blocks nothing")
		})

		It("rejects a second rule for the same app", func() {
			_, err := e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "discord", MatchKind: "exe", Mode: "hard"})
			Expect(err).NotTo(HaveOccurred())

			_, err = e.client.AddRule(ctx, usecase.RuleInput{AppIdentity: "discord", MatchKind: "exe", Mode: "soft"})
			Expect(apiKind(err)).To(Equal("conflict"))
		})
	})

	Describe("authentication", func() {
		It("refuses requests without the token", func() {
			resp, err := http.Get(e.server.URL + "/api/sessions")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
