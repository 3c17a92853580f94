// Package main is the CLI entry point for timeguard.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/timeguard/internal/daemon"
	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
	"github.com/eliteGoblin/focusd/timeguard/internal/infra"
	"github.com/eliteGoblin/focusd/timeguard/internal/policy"
	"github.com/eliteGoblin/focusd/timeguard/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "timeguard",
	Short: "Process time-window enforcer",
	Long: `timeguard is a daemon that lets selected processes run only inside
their allowed time windows. Outside those windows it kills them.

Rules live in <dir>/rules, one per line:

  steam=18:00~20:00;MO,TU,WE,TH,FR|*;SA,SU

Processes without a rule are never touched.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enforcement daemon in the foreground (or under a service manager)",
	Long: `Loads the config and rules, then scans the process list every
check_interval seconds and kills managed processes outside their windows.

Refuses to start if the rules file is missing or invalid.
Send SIGHUP to reload the rules; an invalid new file keeps the old rules.`,
	RunE: runDaemon,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one enforcement scan immediately",
	RunE:  runScan,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and rules files",
	RunE:  runCheck,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded rules",
	RunE:  runList,
}

var evalCmd = &cobra.Command{
	Use:   "eval PROCESS",
	Short: "Show what would happen to a process at a given time",
	Long: `Evaluates the rules for PROCESS and prints ALLOW, KILL or UNMANAGED.
--at accepts "WE 10:00", "10:00" (today) or an RFC3339 timestamp; default is now.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config directory with starter config and rules files",
	RunE:  runInit,
}

var serviceCmd = &cobra.Command{
	Use:       "service ACTION",
	Short:     "Manage the OS service (install, uninstall, start, stop, restart)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"install", "uninstall", "start", "stop", "restart"},
	RunE:      runService,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	dirFlag     string
	backendFlag string
	logFile     string
	debugLog    bool
	dryRun      bool
	listFormat  string
	evalAt      string
	jsonOutput  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Directory holding config and rules (default ~/.config/timeguard, /etc/timeguard as root)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Process backend: gopsutil or ps (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")

	scanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report processes that would be killed without killing them")
	listCmd.Flags().StringVar(&listFormat, "format", policy.FormatText, "Output format: text, yaml or json")
	evalCmd.Flags().StringVar(&evalAt, "at", "", `Time to evaluate at ("WE 10:00", "10:00" or RFC3339)`)
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

// deps bundles everything a scanning command needs.
type deps struct {
	paths  *infra.Paths
	config infra.Config
	pm     domain.ProcessManager
	store  *policy.Store
}

func resolvePaths() *infra.Paths {
	if dirFlag != "" {
		p := infra.PathsForDir(infra.ExpandHome(dirFlag, infra.GetRealUserHome()))
		p.IsRoot = os.Geteuid() == 0
		return p
	}
	return infra.DetectPaths()
}

// loadConfig reads the config file; problems only produce warnings.
func loadConfig(paths *infra.Paths, logger *zap.Logger) infra.Config {
	cfg, warnings, err := infra.LoadConfig(paths.ConfigPath)
	if err != nil {
		logger.Warn("config unreadable, using defaults", zap.String("path", paths.ConfigPath), zap.Error(err))
	}
	for _, w := range warnings {
		logger.Warn("config warning", zap.String("path", paths.ConfigPath), zap.String("warning", w))
	}
	if backendFlag != "" {
		cfg.ProcessBackend = backendFlag
	}
	return cfg
}

// loadRules loads the rules file. A missing or invalid file is an error.
func loadRules(paths *infra.Paths, logger *zap.Logger) (*policy.Store, []policy.Warning, error) {
	source := infra.NewRuleFile(paths.RulesPath)
	if !source.Exists() {
		return nil, nil, fmt.Errorf("rules file %s not found (run 'timeguard init' to create one)", paths.RulesPath)
	}
	store := policy.NewStore(source, logger)
	warnings, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	return store, warnings, nil
}

func loadRuntime(logger *zap.Logger) (*deps, error) {
	paths := resolvePaths()
	cfg := loadConfig(paths, logger)

	pm, err := infra.NewProcessManagerForBackend(cfg.ProcessBackend)
	if err != nil {
		return nil, err
	}

	store, _, err := loadRules(paths, logger)
	if err != nil {
		return nil, err
	}

	return &deps{paths: paths, config: cfg, pm: pm, store: store}, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	rt, err := loadRuntime(logger)
	if err != nil {
		logger.Error("refusing to start without valid rules", zap.Error(err))
		return err
	}

	scanner := usecase.NewEnforcerWithConfig(usecase.EnforcerConfig{
		KillTimeout: rt.config.KillTimeout,
	}, rt.pm, logger)

	watcher := daemon.NewWatcher(daemon.WatcherConfig{
		CheckInterval:  rt.config.CheckInterval,
		ReloadOnChange: rt.config.ReloadOnChange,
	}, rt.store, scanner, logger)

	prg := infra.NewServiceProgram(func(ctx context.Context) error {
		stop := notifyReload(watcher, logger)
		defer stop()
		return watcher.Run(ctx)
	}, logger)

	svc, err := infra.NewService(prg, rt.paths)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	logger.Info("timeguard starting",
		zap.String("version", Version),
		zap.String("dir", rt.paths.Dir),
		zap.String("mode", string(rt.paths.Mode)),
		zap.String("backend", rt.config.ProcessBackend))

	return svc.Run()
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := createCLILogger()
	defer func() { _ = logger.Sync() }()

	rt, err := loadRuntime(logger)
	if err != nil {
		return err
	}

	scanner := usecase.NewEnforcerWithConfig(usecase.EnforcerConfig{
		KillTimeout: rt.config.KillTimeout,
		DryRun:      dryRun,
	}, rt.pm, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := scanner.Scan(ctx, rt.store.Current(), time.Now())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Println("\n=== Scan Result ===")
	fmt.Printf("Time: %s\n", domain.InstantOf(result.ExecutedAt))
	fmt.Printf("Processes checked: %d (managed: %d, allowed: %d)\n", result.Checked, result.Managed, result.Allowed)

	verb := "Killed"
	if result.DryRun {
		verb = "Would kill"
	}
	if len(result.Killed) == 0 {
		fmt.Println("No processes outside their windows.")
	} else {
		fmt.Printf("%s %d processes:\n", verb, len(result.Killed))
		for _, k := range result.Killed {
			fmt.Printf("  - %s (pid %d)\n", k.Name, k.PID)
		}
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Failed: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}
	fmt.Println("===================")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	paths := resolvePaths()

	fmt.Printf("Config: %s\n", paths.ConfigPath)
	cfg, cfgWarnings, err := infra.LoadConfig(paths.ConfigPath)
	if err != nil {
		fmt.Printf("  warning: %v (defaults apply)\n", err)
	}
	for _, w := range cfgWarnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Printf("  check_interval=%s kill_timeout=%s reload_on_change=%t process_backend=%s\n",
		cfg.CheckInterval, cfg.KillTimeout, cfg.ReloadOnChange, cfg.ProcessBackend)

	fmt.Printf("Rules: %s\n", paths.RulesPath)
	store, ruleWarnings, err := loadRules(paths, zap.NewNop())
	if err != nil {
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			fmt.Printf("  error: %v\n", perr)
			return fmt.Errorf("rules file is invalid")
		}
		return err
	}
	for _, w := range ruleWarnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Printf("  OK: %d rules (modified %s)\n", store.Current().Len(), store.LoadedAt().Format(time.RFC3339))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	store, _, err := loadRules(resolvePaths(), zap.NewNop())
	if err != nil {
		return err
	}
	return policy.Export(os.Stdout, store.Current(), listFormat)
}

func runEval(cmd *cobra.Command, args []string) error {
	store, _, err := loadRules(resolvePaths(), zap.NewNop())
	if err != nil {
		return err
	}

	at, err := parseAt(evalAt, time.Now())
	if err != nil {
		return err
	}

	v := usecase.Evaluate(store.Current(), args[0], at)
	fmt.Printf("%s at %s: %s\n", v.Process, v.At, v.Decision)
	switch v.Decision {
	case domain.Allow:
		fmt.Printf("  matched period: %s\n", v.Rule.Periods[v.Period])
	case domain.Kill:
		fmt.Printf("  no period matches: %s\n", v.Rule)
	case domain.Unmanaged:
		fmt.Println("  no rule for this process; it is never touched")
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	paths := resolvePaths()

	for _, f := range []struct {
		path, content string
	}{
		{paths.ConfigPath, infra.ConfigTemplate},
		{paths.RulesPath, infra.RulesTemplate},
	} {
		created, err := infra.EnsureFile(f.path, f.content, 0644)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.path, err)
		}
		if created {
			fmt.Printf("Created %s\n", f.path)
		} else {
			fmt.Printf("Exists  %s\n", f.path)
		}
	}
	return nil
}

func runService(cmd *cobra.Command, args []string) error {
	paths := resolvePaths()
	prg := infra.NewServiceProgram(func(ctx context.Context) error { return nil }, zap.NewNop())
	svc, err := infra.NewService(prg, paths)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := infra.ControlService(svc, args[0]); err != nil {
		return fmt.Errorf("service %s failed: %w", args[0], err)
	}
	fmt.Printf("Service %s: done (%s mode, dir %s)\n", args[0], paths.Mode, paths.Dir)
	return nil
}

// createLogger builds the daemon logger (JSON, ISO8601 timestamps).
func createLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	if logFile != "" {
		config.OutputPaths = []string{logFile}
		config.ErrorOutputPaths = []string{logFile}
	}
	if debugLog {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

// createCLILogger builds a human-readable logger for one-shot commands.
func createCLILogger() *zap.Logger {
	if logFile != "" {
		return createLogger()
	}
	config := zap.NewDevelopmentConfig()
	if !debugLog {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
	} else {
		fmt.Printf("timeguard %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
