package scenarios

import (
	"context"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/devicelab-dev/wallet-e2e/pkg/testbase"
	"github.com/google/uuid"
)

// SuiteName names the suite in reports.
const SuiteName = "Wallet Creation"

// RunnerConfig configures the scenario runner.
type RunnerConfig struct {
	Settings        *config.Settings
	SessionOptions  []testbase.Option
	SessionPerSuite bool // One session for all scenarios instead of one each
	Artifacts       core.ArtifactConfig

	// Live progress callbacks
	OnScenarioStart func(idx, total int, sc Scenario)
	OnStepComplete  func(sc Scenario, step core.StepResult)
	OnScenarioEnd   func(res core.ScenarioResult)
}

// Runner executes scenarios sequentially.
type Runner struct {
	config RunnerConfig
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{config: cfg}
}

// Run executes the scenarios in order and returns the suite summary. A
// scenario failure never stops the run; only ctx cancellation does, leaving
// the remaining scenarios skipped.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) *core.SuiteResult {
	suite := &core.SuiteResult{
		Name:        SuiteName,
		RunID:       uuid.NewString(),
		Environment: r.config.Settings.Environment,
		StartTime:   time.Now(),
		Scenarios:   make([]core.ScenarioResult, 0, len(scenarios)),
	}
	logger.Info("Run %s: %d scenario(s), environment %s", suite.RunID, len(scenarios), suite.Environment)

	var shared *testbase.Session
	var sharedErr error
	if r.config.SessionPerSuite && len(scenarios) > 0 {
		shared = r.newSession()
		sharedErr = shared.Start(ctx)
		defer func() { _ = shared.Stop() }()
	}

	for i, sc := range scenarios {
		if ctx.Err() != nil {
			suite.Scenarios = append(suite.Scenarios, skipped(sc))
			continue
		}
		if r.config.OnScenarioStart != nil {
			r.config.OnScenarioStart(i, len(scenarios), sc)
		}

		var res core.ScenarioResult
		switch {
		case shared != nil && sharedErr != nil:
			res = startFailed(sc, sharedErr)
		case shared != nil:
			res = r.runScenario(ctx, shared, sc)
		default:
			res = r.runIsolated(ctx, sc)
		}

		suite.Scenarios = append(suite.Scenarios, res)
		if r.config.OnScenarioEnd != nil {
			r.config.OnScenarioEnd(res)
		}
	}

	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()
	logger.Info("Run %s finished: %d passed, %d failed, %d errored, %d skipped",
		suite.RunID, suite.Passed, suite.Failed, suite.Errored, suite.Skipped)
	return suite
}

func (r *Runner) newSession() *testbase.Session {
	return testbase.NewSession(r.config.Settings, r.config.SessionOptions...)
}

// runIsolated runs sc on its own session, quitting it afterwards.
func (r *Runner) runIsolated(ctx context.Context, sc Scenario) core.ScenarioResult {
	session := r.newSession()
	if err := session.Start(ctx); err != nil {
		return startFailed(sc, err)
	}
	defer func() { _ = session.Stop() }()
	return r.runScenario(ctx, session, sc)
}

func (r *Runner) runScenario(ctx context.Context, session *testbase.Session, sc Scenario) core.ScenarioResult {
	log := logger.WithField("scenario", sc.Name)
	log.Info("Starting scenario")
	res := newResult(sc)
	res.PlatformInfo = session.Driver().GetPlatformInfo()

	page := session.CreateWalletPage()
	page.Observe(func(step core.StepResult) {
		res.Steps = append(res.Steps, step)
		if r.config.OnStepComplete != nil {
			r.config.OnStepComplete(sc, step)
		}
	})

	err := precondition(page)
	if err == nil {
		err = sc.Run(ctx, page)
	}
	finish(&res, err)

	if r.config.Artifacts.ShouldCapture(res.Status) && r.config.Artifacts.Screenshot {
		att, capErr := session.CaptureFailure(sc.Name)
		if capErr != nil {
			log.Warnf("Screenshot not saved: %v", capErr)
		}
		if len(att.Body) > 0 {
			res.Attachments = append(res.Attachments, att)
		}
	}

	log.WithField("status", res.Status.String()).Infof("Scenario finished in %s", res.Duration)
	return res
}

func newResult(sc Scenario) core.ScenarioResult {
	return core.ScenarioResult{
		Name:        sc.Name,
		Description: sc.Description,
		Severity:    sc.Severity,
		Story:       sc.Story,
		Tags:        []string{Epic, Feature},
		Status:      core.StatusRunning,
		StartTime:   time.Now(),
	}
}

func finish(res *core.ScenarioResult, err error) {
	res.Duration = time.Since(res.StartTime)
	res.Status = core.StatusFromError(err)
	res.Category = core.CategoryOf(err)
	if err != nil {
		res.Error = err.Error()
		logger.Error("Scenario %s: %v", res.Name, err)
	}
}

func startFailed(sc Scenario, err error) core.ScenarioResult {
	res := newResult(sc)
	finish(&res, err)
	// Session problems are never the app's fault.
	res.Status = core.StatusErrored
	return res
}

func skipped(sc Scenario) core.ScenarioResult {
	res := newResult(sc)
	res.Status = core.StatusSkipped
	return res
}
