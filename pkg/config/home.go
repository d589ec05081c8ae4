package config

import (
	"os"
	"path/filepath"
)

const envHome = "WALLET_E2E_HOME"

// ResolveDir returns the configuration directory.
//
// Resolution order:
//  1. $WALLET_E2E_HOME/config
//  2. <home>/config when the binary lives in <home>/bin/
//  3. ./config (development fallback)
func ResolveDir() string {
	return filepath.Join(resolveHome(), "config")
}

func resolveHome() string {
	// 1. Environment variable
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// 2. Binary-relative: if binary is at <home>/bin/wallet-e2e, use <home>
	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		binDir := filepath.Dir(execPath)
		if filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	// 3. Current working directory
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}
