// Package cli provides the command-line interface for wallet-e2e.
package cli

import (
	"fmt"
	"os"

	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// Driver names accepted by --driver.
const (
	DriverAppium = "appium"
	DriverMock   = "mock"
)

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config-dir",
		Usage:   "Directory holding config.yaml and environments/ (default: $WALLET_E2E_HOME/config, then ./config)",
		EnvVars: []string{"WALLET_E2E_CONFIG_DIR"},
	},
	&cli.StringFlag{
		Name:    "env",
		Aliases: []string{"e"},
		Usage:   "Configuration environment overlay (environments/<env>.yaml)",
		Value:   config.DefaultEnvironment,
		EnvVars: []string{"WALLET_E2E_ENV"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL (overrides appium.server.url)",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:  "caps",
		Usage: "JSON capabilities file merged over the configured capabilities",
	},
	&cli.StringFlag{
		Name:    "driver",
		Aliases: []string{"d"},
		Usage:   "Driver to use (appium, mock)",
		Value:   DriverAppium,
		EnvVars: []string{"WALLET_E2E_DRIVER"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"WALLET_E2E_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "wallet-e2e",
		Usage:   "End-to-end tests for the wallet create-wallet flow",
		Version: Version,
		Description: `wallet-e2e drives the wallet app through Appium and checks the
create-wallet flow: terms, seed phrase reveal and confirmation, PIN setup.

Examples:
  wallet-e2e list
  wallet-e2e run
  wallet-e2e --env staging run create-wallet-happy-path
  wallet-e2e --appium-url http://127.0.0.1:4723 --caps caps.json run
  wallet-e2e --driver mock run          # dry run against the built-in simulator`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
