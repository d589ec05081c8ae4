package testbase

import (
	"context"
	"os"

	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// EnvVar selects the configuration environment for suites.
const EnvVar = config.EnvPrefix + "ENV"

// Suite is the base for device suites: embed it, set ConfigDir (or rely on
// config.ResolveDir) and write Test methods against s.Session.
type Suite struct {
	suite.Suite

	ConfigDir   string
	Environment string
	Options     []Option
	// SessionPerTest restarts the session before every test after the first,
	// so each test starts from a freshly installed app.
	SessionPerTest bool

	Properties *config.Properties
	Settings   *config.Settings
	Session    *Session

	started bool
}

// SetupSuite loads configuration and starts the session.
func (s *Suite) SetupSuite() {
	t := s.T()

	dir := s.ConfigDir
	if dir == "" {
		dir = config.ResolveDir()
	}
	env := s.Environment
	if env == "" {
		env = os.Getenv(EnvVar)
	}

	props, err := config.Load(dir, env)
	require.NoError(t, err)
	settings, err := config.LoadSettings(props)
	require.NoError(t, err)

	s.Properties = props
	s.Settings = settings
	s.Session = NewSession(settings, s.Options...)
	require.NoError(t, s.Session.Start(context.Background()))
}

// SetupTest restarts the session when SessionPerTest is set.
func (s *Suite) SetupTest() {
	if !s.SessionPerTest {
		return
	}
	if s.started {
		_ = s.Session.Stop()
		require.NoError(s.T(), s.Session.Start(context.Background()))
	}
	s.started = true
}

// AfterTest saves a screenshot when the test failed.
func (s *Suite) AfterTest(_, testName string) {
	if !s.T().Failed() || s.Session == nil {
		return
	}
	if _, err := s.Session.CaptureFailure(testName); err != nil {
		logger.Error("Failed to capture screenshot for %s: %v", testName, err)
	}
}

// TearDownSuite quits the session.
func (s *Suite) TearDownSuite() {
	if s.Session != nil {
		_ = s.Session.Stop()
	}
}
