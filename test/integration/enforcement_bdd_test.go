//go:build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/timeguard/internal/daemon"
	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
	"github.com/eliteGoblin/focusd/timeguard/internal/infra"
	"github.com/eliteGoblin/focusd/timeguard/internal/policy"
	"github.com/eliteGoblin/focusd/timeguard/internal/usecase"
	"github.com/eliteGoblin/focusd/timeguard/test/fixtures"
)

// Wednesday 14 Oct 2026, 10:00.
var wednesdayMorning = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

// writeRules replaces the rules file atomically so a running watcher never
// reads a partial file.
func writeRules(path, content string, mtime time.Time) {
	tmp := path + ".tmp"
	Expect(os.WriteFile(tmp, []byte(content), 0644)).To(Succeed())
	Expect(os.Chtimes(tmp, mtime, mtime)).To(Succeed())
	Expect(os.Rename(tmp, path)).To(Succeed())
}

var _ = Describe("Enforcement", func() {
	var (
		tmpDir    string
		rulesPath string
		logger    *zap.Logger
		table     *fixtures.FakeProcessTable
		store     *policy.Store
		mtime     time.Time
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "timeguard-integration-*")
		Expect(err).NotTo(HaveOccurred())

		rulesPath = filepath.Join(tmpDir, "rules")
		mtime = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		writeRules(rulesPath, "work=08:00~18:00;MO,TU,WE,TH,FR\nchat=*;SA,SU\n", mtime)

		logger = zap.NewNop()
		table = fixtures.NewFakeProcessTable("timeguard")
		store = policy.NewStore(infra.NewRuleFile(rulesPath), logger)
		_, err = store.Load()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("a single scan", func() {
		It("kills managed processes outside their windows only", func() {
			table.Spawn("work")
			table.Spawn("chat")
			table.Spawn("chat")
			table.Spawn("editor")

			scanner := usecase.NewEnforcer(table, logger)
			result, err := scanner.Scan(context.Background(), store.Current(), wednesdayMorning)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Killed).To(HaveLen(2))
			Expect(table.Running("chat")).To(Equal(0))
			Expect(table.Running("work")).To(Equal(1))
			Expect(table.Running("editor")).To(Equal(1))
			Expect(table.Running("timeguard")).To(Equal(1))
		})

		It("reports what would be killed in dry-run mode without killing", func() {
			table.Spawn("chat")

			scanner := usecase.NewEnforcerWithConfig(usecase.EnforcerConfig{DryRun: true}, table, logger)
			result, err := scanner.Scan(context.Background(), store.Current(), wednesdayMorning)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Killed).To(ConsistOf(domain.KilledProcess{PID: 2, Name: "chat"}))
			Expect(table.Running("chat")).To(Equal(1))
		})

		It("never kills itself even when its own name is managed", func() {
			writeRules(rulesPath, "timeguard=*;SU\n", mtime.Add(time.Second))
			_, err := store.Reload()
			Expect(err).NotTo(HaveOccurred())

			scanner := usecase.NewEnforcer(table, logger)
			_, err = scanner.Scan(context.Background(), store.Current(), wednesdayMorning)
			Expect(err).NotTo(HaveOccurred())

			Expect(table.Running("timeguard")).To(Equal(1))
		})
	})

	Describe("the control loop", func() {
		var (
			ctx    context.Context
			cancel context.CancelFunc
			done   chan error
			w      *daemon.Watcher
		)

		BeforeEach(func() {
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan error, 1)

			config := daemon.WatcherConfig{CheckInterval: 20 * time.Millisecond, ReloadOnChange: true}
			w = daemon.NewWatcher(config, store, usecase.NewEnforcer(table, logger), logger)
			w.SetClock(func() time.Time { return wednesdayMorning })
		})

		JustBeforeEach(func() {
			go func() { done <- w.Run(ctx) }()
		})

		AfterEach(func() {
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})

		It("kills processes that start outside their window on a later scan", func() {
			Eventually(w.Scans).Should(BeNumerically(">=", 1))
			table.Spawn("chat")

			Eventually(func() int { return table.Running("chat") }).Should(Equal(0))
		})

		Context("when the rules file changes", func() {
			It("applies the new rules on the next scan", func() {
				table.Spawn("work")
				Consistently(func() int { return table.Running("work") }, 100*time.Millisecond).Should(Equal(1))

				writeRules(rulesPath, "chat=*;WE\nwork=*;SA\n", mtime.Add(time.Minute))
				Eventually(func() int { return table.Running("work") }).Should(Equal(0))

				table.Spawn("chat")
				Consistently(func() int { return table.Running("chat") }, 100*time.Millisecond).Should(Equal(1))
			})

			It("keeps the previous rules when the new file is malformed", func() {
				before := store.Current()
				writeRules(rulesPath, "chat=22:00~02:00;WE\n", mtime.Add(time.Minute))

				Consistently(store.Current, 100*time.Millisecond).Should(BeIdenticalTo(before))

				table.Spawn("chat")
				Eventually(func() int { return table.Running("chat") }).Should(Equal(0))
			})
		})

		Context("when a reload is requested", func() {
			It("reloads before the next scan", func() {
				writeRules(rulesPath, "editor=*;SU\n", mtime)
				w.RequestReload()

				table.Spawn("editor")
				Eventually(func() int { return table.Running("editor") }).Should(Equal(0))
			})
		})
	})

	Describe("real processes", func() {
		It("kills a live process outside its window", func() {
			if runtime.GOOS == "windows" {
				Skip("needs a sleep binary")
			}
			// A renamed copy of sleep so no unrelated process matches the rule.
			sleepPath, err := exec.LookPath("sleep")
			Expect(err).NotTo(HaveOccurred())
			data, err := os.ReadFile(sleepPath)
			Expect(err).NotTo(HaveOccurred())
			sleeper := filepath.Join(tmpDir, "tg-sleeper")
			Expect(os.WriteFile(sleeper, data, 0755)).To(Succeed())

			writeRules(rulesPath, "tg-sleeper=*;SU\n", mtime.Add(time.Second))
			_, err = store.Reload()
			Expect(err).NotTo(HaveOccurred())

			cmd := exec.Command(sleeper, "60")
			Expect(cmd.Start()).To(Succeed())
			DeferCleanup(func() { _ = cmd.Process.Kill() })

			waitErr := make(chan error, 1)
			go func() { waitErr <- cmd.Wait() }()

			scanner := usecase.NewEnforcer(infra.NewProcessManager(), logger)
			result, err := scanner.Scan(context.Background(), store.Current(), wednesdayMorning)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Killed).To(ContainElement(domain.KilledProcess{PID: cmd.Process.Pid, Name: "tg-sleeper"}))
			Eventually(waitErr, 5*time.Second).Should(Receive(HaveOccurred()))
		})
	})
})
