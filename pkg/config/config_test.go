package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_BaseAndEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
device:
  platform: Android
  name: Pixel 7
implicit.wait: 10
appium.server.url: http://127.0.0.1:4723
`)
	writeFile(t, filepath.Join(dir, EnvironmentsDir, "staging.yaml"), `
device.name: Pixel 8
appium:
  server:
    url: http://grid:4723
`)

	props, err := Load(dir, "staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := props.String("device.platform", ""); got != "Android" {
		t.Errorf("device.platform = %q, want Android", got)
	}
	if got := props.String("device.name", ""); got != "Pixel 8" {
		t.Errorf("device.name = %q, want overlay value Pixel 8", got)
	}
	if got := props.String("appium.server.url", ""); got != "http://grid:4723" {
		t.Errorf("appium.server.url = %q, want overlay value", got)
	}
	if got := props.Int("implicit.wait", 0); got != 10 {
		t.Errorf("implicit.wait = %d, want 10", got)
	}
	if props.Environment() != "staging" {
		t.Errorf("Environment() = %q, want staging", props.Environment())
	}
	if got := props.String("environment", ""); got != "staging" {
		t.Errorf("environment property = %q, want staging", got)
	}
}

func TestLoad_MissingFilesAreNotFatal(t *testing.T) {
	props, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props.Environment() != DefaultEnvironment {
		t.Errorf("Environment() = %q, want %q", props.Environment(), DefaultEnvironment)
	}
	if got := props.String("device.name", "fallback"); got != "fallback" {
		t.Errorf("String() = %q, want default", got)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "device: [unclosed")

	_, err := Load(dir, "dev")
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProperties_AbsentKeysReturnDefaults(t *testing.T) {
	props := FromMap(nil)

	if got := props.String("missing", "def"); got != "def" {
		t.Errorf("String() = %q, want def", got)
	}
	if got := props.Int("missing", 42); got != 42 {
		t.Errorf("Int() = %d, want 42", got)
	}
	if got := props.Bool("missing", true); !got {
		t.Error("Bool() = false, want default true")
	}
	if got := props.Duration("missing", 3*time.Second); got != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", got)
	}
	if _, ok := props.Get("missing"); ok {
		t.Error("Get() reported an absent key as present")
	}
}

func TestProperties_TypedCoercion(t *testing.T) {
	props := FromMap(map[string]string{
		"int.ok":       " 15 ",
		"int.bad":      "fifteen",
		"bool.ok":      "true",
		"bool.bad":     "yes please",
		"duration.sec": "5",
		"duration.go":  "1500ms",
		"duration.bad": "soon",
	})

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"int ok", props.Int("int.ok", 0), 15},
		{"int malformed uses default", props.Int("int.bad", 7), 7},
		{"bool ok", props.Bool("bool.ok", false), true},
		{"bool malformed uses default", props.Bool("bool.bad", false), false},
		{"duration seconds", props.Duration("duration.sec", 0), 5 * time.Second},
		{"duration go", props.Duration("duration.go", 0), 1500 * time.Millisecond},
		{"duration malformed uses default", props.Duration("duration.bad", time.Second), time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestProperties_MalformedBoolIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.Close()

	props := FromMap(map[string]string{"appium.server.probe": "maybe"})
	if got := props.Bool("appium.server.probe", true); !got {
		t.Error("Bool() = false, want default true")
	}
	if !strings.Contains(buf.String(), "appium.server.probe") || !strings.Contains(buf.String(), "level=error") {
		t.Errorf("malformed boolean not logged: %q", buf.String())
	}
}

func TestProperties_IsImmutableCopy(t *testing.T) {
	src := map[string]string{"a": "1"}
	props := FromMap(src)
	src["a"] = "2"

	m := props.Map()
	m["a"] = "3"

	if got := props.String("a", ""); got != "1" {
		t.Errorf("properties mutated through caller map: %q", got)
	}
}

func TestProperties_Keys(t *testing.T) {
	props := FromMap(map[string]string{"b": "", "a": "", "c": ""})
	keys := props.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
}

func TestProperties_With(t *testing.T) {
	base := FromMap(map[string]string{"environment": "staging", "device.name": "Pixel 7"})

	p := base.With(map[string]string{"device.name": "Pixel 8", "appium.server.url": "http://x"})

	if got := p.String("device.name", ""); got != "Pixel 8" {
		t.Errorf("device.name = %q, want override", got)
	}
	if got := p.String("appium.server.url", ""); got != "http://x" {
		t.Errorf("appium.server.url = %q", got)
	}
	if p.Environment() != "staging" {
		t.Errorf("environment = %q", p.Environment())
	}
	if got := base.String("device.name", ""); got != "Pixel 7" {
		t.Errorf("base mutated: %q", got)
	}
	if _, ok := base.Get("appium.server.url"); ok {
		t.Error("override leaked into base")
	}
}
