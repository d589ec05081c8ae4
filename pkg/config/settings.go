package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
)

// EnvPrefix marks process environment variables that override properties:
// WALLET_E2E_APPIUM_SERVER_URL overrides appium.server.url.
const EnvPrefix = "WALLET_E2E_"

// Test modes
const (
	ModeLocal        = "local"
	ModeBrowserStack = "browserstack"
)

// Settings is the typed view of the properties needed to start a session.
type Settings struct {
	Environment string `env:"environment" envDefault:"dev"`

	// Device
	Platform        string `env:"device.platform" envDefault:"Android"`
	PlatformVersion string `env:"device.version"`
	DeviceName      string `env:"device.name" envDefault:"Android Emulator"`
	AutomationName  string `env:"device.automation" envDefault:"UiAutomator2"`

	// App under test
	AppPath     string `env:"app.path"`
	AppPackage  string `env:"app.package" envDefault:"com.wallet.crypto.trustapp"`
	AppActivity string `env:"app.activity"`

	// Server
	ServerURL         string `env:"appium.server.url,required"`
	NewCommandTimeout int    `env:"appium.new.command.timeout" envDefault:"180"`
	ServerProbe       bool   `env:"appium.server.probe" envDefault:"true"`

	// Waits, in seconds unless noted
	ImplicitWait   int `env:"implicit.wait" envDefault:"0"`
	ExplicitWait   int `env:"explicit.wait" envDefault:"15"`
	ShortWait      int `env:"wait.short" envDefault:"5"`
	LongWait       int `env:"wait.long" envDefault:"30"`
	PollIntervalMs int `env:"wait.poll.interval.ms" envDefault:"250"`

	// Artifacts
	ScreenshotDir string `env:"screenshot.path" envDefault:"./screenshots/"`

	TestMode     string       `env:"test.mode" envDefault:"local"`
	BrowserStack BrowserStack `envPrefix:"browserstack."`
}

// BrowserStack holds device-cloud credentials and target.
type BrowserStack struct {
	Username  string `env:"username"`
	AccessKey string `env:"access.key"`
	AppURL    string `env:"app.url"`
	Device    string `env:"device"`
	OSVersion string `env:"os.version"`
}

// LoadSettings decodes Settings from the properties, with WALLET_E2E_*
// process variables taking precedence.
func LoadSettings(p *Properties) (*Settings, error) {
	return loadSettings(p, os.Environ())
}

func loadSettings(p *Properties, environ []string) (*Settings, error) {
	values := p.Map()
	for k, v := range envOverrides(environ) {
		values[k] = v
	}

	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: values}); err != nil {
		if errors.Is(err, env.VarIsNotSetError{}) {
			return nil, core.ErrMissingRequired.WithCause(err)
		}
		return nil, core.ErrInvalidConfig.WithCause(err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envOverrides maps WALLET_E2E_DEVICE_NAME=x to device.name=x.
func envOverrides(environ []string) map[string]string {
	out := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, EnvPrefix), "_", "."))
		if key != "" {
			out[key] = value
		}
	}
	return out
}

func (s *Settings) validate() error {
	if s.TestMode == ModeBrowserStack {
		var missing []string
		if s.BrowserStack.Username == "" {
			missing = append(missing, "browserstack.username")
		}
		if s.BrowserStack.AccessKey == "" {
			missing = append(missing, "browserstack.access.key")
		}
		if len(missing) > 0 {
			return core.ErrMissingRequired.
				WithMessage("missing required configuration key: " + strings.Join(missing, ", ")).
				WithDetails(map[string]interface{}{"keys": missing})
		}
	}
	if s.PollIntervalMs <= 0 {
		return core.ErrInvalidConfig.WithMessage("wait.poll.interval.ms must be positive")
	}
	return nil
}

// ExplicitTimeout is the default wait timeout.
func (s *Settings) ExplicitTimeout() time.Duration {
	return time.Duration(s.ExplicitWait) * time.Second
}

// ShortTimeout is the short wait timeout.
func (s *Settings) ShortTimeout() time.Duration {
	return time.Duration(s.ShortWait) * time.Second
}

// LongTimeout is the long wait timeout.
func (s *Settings) LongTimeout() time.Duration {
	return time.Duration(s.LongWait) * time.Second
}

// ImplicitTimeout is the server-side implicit wait.
func (s *Settings) ImplicitTimeout() time.Duration {
	return time.Duration(s.ImplicitWait) * time.Second
}

// PollInterval is the pause between wait polls.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// IsBrowserStack reports whether sessions run on the device cloud.
func (s *Settings) IsBrowserStack() bool {
	return s.TestMode == ModeBrowserStack
}
