package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/driver/mock"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/devicelab-dev/wallet-e2e/pkg/report"
	"github.com/devicelab-dev/wallet-e2e/pkg/scenarios"
	"github.com/devicelab-dev/wallet-e2e/pkg/testbase"
	"github.com/urfave/cli/v2"
)

// LogFile is written into the run's output directory.
const LogFile = "wallet-e2e.log"

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run create-wallet scenarios",
	ArgsUsage: "[scenario...]",
	Description: `Run all registered scenarios, or only the named ones, in order.

Reports are generated in the output directory:
  - Default: ./reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

Examples:
  wallet-e2e run
  wallet-e2e run terms-required pin-mismatch
  wallet-e2e run --session-per-suite --output ./my-reports --flatten`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for reports (default: ./reports)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},
		&cli.BoolFlag{
			Name:  "session-per-suite",
			Usage: "Reuse one session for all scenarios instead of one per scenario",
		},
	},
	Action: runScenarios,
}

// RunConfig holds everything a run needs, resolved from flags.
type RunConfig struct {
	ConfigDir       string
	Environment     string
	AppiumURL       string
	CapsFile        string
	Driver          string
	Verbose         bool
	Scenarios       []string
	OutputDir       string
	SessionPerSuite bool

	// Extra session options (tests shorten waits with these).
	SessionOptions []testbase.Option
}

func runScenarios(c *cli.Context) error {
	outDir, err := resolveOutputDir(c.String("output"), c.Bool("flatten"))
	if err != nil {
		return err
	}

	cfg := &RunConfig{
		ConfigDir:       c.String("config-dir"),
		Environment:     c.String("env"),
		AppiumURL:       c.String("appium-url"),
		CapsFile:        c.String("caps"),
		Driver:          c.String("driver"),
		Verbose:         c.Bool("verbose"),
		Scenarios:       c.Args().Slice(),
		OutputDir:       outDir,
		SessionPerSuite: c.Bool("session-per-suite"),
	}
	return executeRun(c.Context, c.App.Writer, cfg)
}

// resolveOutputDir determines the output directory based on flags.
// - No --output: ./reports/<timestamp>/
// - --output given: <output>/<timestamp>/
// - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	baseDir := output
	if baseDir == "" {
		baseDir = "./reports"
	}

	if flatten {
		return filepath.Clean(baseDir), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

func executeRun(ctx context.Context, out io.Writer, cfg *RunConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	selected, err := scenarios.Select(cfg.Scenarios)
	if err != nil {
		return err
	}
	if cfg.Driver != DriverAppium && cfg.Driver != DriverMock {
		return fmt.Errorf("unknown driver %q (want %s or %s)", cfg.Driver, DriverAppium, DriverMock)
	}

	// 1. Output directory and logging
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := logger.Init(filepath.Join(cfg.OutputDir, LogFile)); err != nil {
		fmt.Fprintf(out, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()
	logger.SetVerbose(cfg.Verbose)

	logger.Info("=== Run started ===")
	logger.Info("Output directory: %s", cfg.OutputDir)
	logger.Info("Driver: %s", cfg.Driver)

	// 2. Configuration, with the simulator standing in for Appium if asked
	overrides := map[string]string{}
	if cfg.Driver == DriverMock {
		url, err := startSimulator(ctx)
		if err != nil {
			return err
		}
		overrides["appium.server.url"] = url
		printSetupSuccess(out, "Simulator listening on "+url)
	} else if cfg.AppiumURL != "" {
		overrides["appium.server.url"] = cfg.AppiumURL
	}

	settings, err := loadSettings(cfg, overrides)
	if err != nil {
		return err
	}

	// 3. Run
	fmt.Fprintf(out, "\n  Running %d scenario(s) against %s (%s)\n", len(selected), settings.ServerURL, settings.Environment)
	opts := append([]testbase.Option{}, cfg.SessionOptions...)
	if cfg.CapsFile != "" {
		opts = append(opts, testbase.WithCapabilitiesFile(cfg.CapsFile))
	}

	printer := &progress{out: out}
	runner := scenarios.NewRunner(scenarios.RunnerConfig{
		Settings:        settings,
		SessionOptions:  opts,
		SessionPerSuite: cfg.SessionPerSuite,
		Artifacts:       core.DefaultArtifactConfig(),
		OnScenarioStart: printer.scenarioStart,
		OnStepComplete:  printer.stepComplete,
		OnScenarioEnd:   printer.scenarioEnd,
	})
	suite := runner.Run(ctx, selected)

	// 4. Reports
	meta := report.Meta{
		Environment: settings.Environment,
		Device: report.Device{
			Name:      settings.DeviceName,
			Platform:  settings.Platform,
			OSVersion: settings.PlatformVersion,
		},
		App:    report.App{ID: settings.AppPackage},
		Runner: report.RunnerInfo{Version: Version, Driver: cfg.Driver},
	}
	if err := report.Write(cfg.OutputDir, suite, meta); err != nil {
		logger.Error("Failed to write reports: %v", err)
		fmt.Fprintf(out, "Warning: Failed to write reports: %v\n", err)
	}

	printSummary(out, suite)
	fmt.Fprintf(out, "\n  Reports: %s\n", cfg.OutputDir)

	if !suite.Success() {
		return fmt.Errorf("%d of %d scenario(s) did not pass", suite.Total-suite.Passed, suite.Total)
	}
	return nil
}

// loadSettings loads the configuration, applies overrides and decodes the
// settings. Explicit overrides beat WALLET_E2E_* variables.
func loadSettings(cfg *RunConfig, overrides map[string]string) (*config.Settings, error) {
	dir := cfg.ConfigDir
	if dir == "" {
		dir = config.ResolveDir()
	}
	props, err := config.Load(dir, cfg.Environment)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(props.With(overrides))
	if err != nil {
		return nil, err
	}
	if url, ok := overrides["appium.server.url"]; ok {
		settings.ServerURL = url
	}
	return settings, nil
}

// startSimulator serves the simulated wallet app until ctx is done.
func startSimulator(ctx context.Context) (string, error) {
	sim := mock.NewServer(mock.AppConfig{})
	url, err := sim.Start(ctx, "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("start simulator: %w", err)
	}
	return url, nil
}
