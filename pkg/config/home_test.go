package config

import (
	"path/filepath"
	"testing"
)

func TestResolveDir_EnvVar(t *testing.T) {
	t.Setenv("WALLET_E2E_HOME", "/custom/path")

	got := ResolveDir()
	want := filepath.Join("/custom/path", "config")
	if got != want {
		t.Errorf("ResolveDir() = %q, want %q", got, want)
	}
}

func TestResolveDir_Fallback(t *testing.T) {
	t.Setenv("WALLET_E2E_HOME", "")

	got := ResolveDir()
	if got == "" {
		t.Error("ResolveDir() returned empty string")
	}
	if filepath.Base(got) != "config" {
		t.Errorf("ResolveDir() = %q, want a config directory", got)
	}
}
