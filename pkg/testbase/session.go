// Package testbase owns the remote session a scenario runs against: it builds
// capabilities from settings, creates and quits the session, and captures
// failure screenshots.
package testbase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/actions"
	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/driver/appium"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/devicelab-dev/wallet-e2e/pkg/pages"
	"github.com/devicelab-dev/wallet-e2e/pkg/wait"
	"github.com/jonboulle/clockwork"
)

// DefaultProbeTimeout bounds the server readiness probe.
const DefaultProbeTimeout = 30 * time.Second

// screenshotTimeFormat is yyyyMMdd_HHmmss.
const screenshotTimeFormat = "20060102_150405"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// DriverFactory creates a session on serverURL.
type DriverFactory func(serverURL string, caps map[string]interface{}) (core.Driver, error)

func appiumFactory(serverURL string, caps map[string]interface{}) (core.Driver, error) {
	return appium.NewDriver(serverURL, caps)
}

// Session is one remote automation session.
type Session struct {
	settings     *config.Settings
	capsFile     string
	clock        clockwork.Clock
	factory      DriverFactory
	probeTimeout time.Duration
	waitOpts     []wait.Option

	driver core.Driver
}

// Option configures a Session.
type Option func(*Session)

// WithCapabilitiesFile overlays a JSON capabilities file on the built caps.
func WithCapabilitiesFile(path string) Option {
	return func(s *Session) { s.capsFile = path }
}

// WithClock sets the clock used for screenshot timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithDriverFactory replaces appium.NewDriver.
func WithDriverFactory(f DriverFactory) Option {
	return func(s *Session) { s.factory = f }
}

// WithProbeTimeout bounds the readiness probe run by Start.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Session) { s.probeTimeout = d }
}

// WithWaitOptions is passed to every Waiter built for this session.
func WithWaitOptions(opts ...wait.Option) Option {
	return func(s *Session) { s.waitOpts = append(s.waitOpts, opts...) }
}

// NewSession creates an unstarted session.
func NewSession(settings *config.Settings, opts ...Option) *Session {
	s := &Session{
		settings:     settings,
		clock:        clockwork.NewRealClock(),
		factory:      appiumFactory,
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the settings the session was built from.
func (s *Session) Settings() *config.Settings { return s.settings }

// Driver returns the live driver, nil before Start or after Stop.
func (s *Session) Driver() core.Driver { return s.driver }

// Start creates the remote session and applies the implicit wait.
func (s *Session) Start(ctx context.Context) error {
	if s.driver != nil {
		return nil
	}

	caps, err := BuildCapabilities(s.settings, s.capsFile)
	if err != nil {
		return err
	}

	if s.settings.ServerProbe {
		if err := appium.WaitForServer(ctx, s.settings.ServerURL, s.probeTimeout); err != nil {
			return err
		}
	}

	logger.Info("Starting session on %s (%s %s, %s)", s.settings.ServerURL,
		s.settings.Platform, s.settings.PlatformVersion, s.settings.DeviceName)
	driver, err := s.factory(s.settings.ServerURL, caps)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	if err := driver.SetImplicitWait(s.settings.ImplicitTimeout()); err != nil {
		_ = driver.Quit()
		return fmt.Errorf("set implicit wait: %w", err)
	}
	s.driver = driver
	return nil
}

// Stop quits the session. It is safe to call more than once.
func (s *Session) Stop() error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Quit()
	s.driver = nil
	if err != nil {
		logger.Warn("Failed to quit session: %v", err)
		return fmt.Errorf("quit session: %w", err)
	}
	logger.Info("Session closed")
	return nil
}

// Waiter builds a Waiter over the live driver using the configured timeouts.
func (s *Session) Waiter() *wait.Waiter {
	return wait.FromSettings(s.driver, s.settings, s.waitOpts...)
}

// CreateWalletPage builds the create-wallet page over the live driver.
func (s *Session) CreateWalletPage() *pages.CreateWalletPage {
	return pages.NewCreateWalletPage(actions.New(s.Waiter()), s.settings.AppPackage)
}

// CaptureFailure saves a screenshot named after the failed test and returns
// it as an attachment.
func (s *Session) CaptureFailure(name string) (core.Attachment, error) {
	if s.driver == nil {
		return core.Attachment{}, fmt.Errorf("capture screenshot for %q: no active session", name)
	}

	data, err := s.driver.Screenshot()
	if err != nil {
		return core.Attachment{}, fmt.Errorf("capture screenshot for %q: %w", name, err)
	}

	path := ScreenshotPath(s.settings.ScreenshotDir, name, s.settings.Environment, s.clock.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.NewScreenshotAttachment("", data), fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return core.NewScreenshotAttachment("", data), fmt.Errorf("write screenshot: %w", err)
	}
	logger.Info("Screenshot captured: %s", path)
	return core.NewScreenshotAttachment(path, data), nil
}

// ScreenshotPath is <dir>/<sanitized name>_<yyyyMMdd_HHmmss>_<environment>.png.
// Characters outside [a-zA-Z0-9.-] in name become underscores.
func ScreenshotPath(dir, name, environment string, at time.Time) string {
	if environment == "" {
		environment = "unknown"
	}
	file := fmt.Sprintf("%s_%s_%s.png",
		unsafeNameChars.ReplaceAllString(name, "_"), at.Format(screenshotTimeFormat), environment)
	return filepath.Join(dir, file)
}
