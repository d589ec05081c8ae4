package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
)

func testSuite(start time.Time) *core.SuiteResult {
	suite := &core.SuiteResult{
		Name:        "Wallet Creation",
		RunID:       "run-1",
		Environment: "dev",
		StartTime:   start,
		Duration:    9 * time.Second,
		Scenarios: []core.ScenarioResult{
			{
				Name:        "create-wallet-happy-path",
				Description: "Tests the complete wallet creation flow",
				Severity:    "critical",
				Story:       "User can create a new wallet",
				Tags:        []string{"Wallet Management", "Wallet Creation"},
				Status:      core.StatusPassed,
				StartTime:   start,
				Duration:    5 * time.Second,
				PlatformInfo: &core.PlatformInfo{
					Platform:  "Android",
					SessionID: "sess-1",
				},
				Steps: []core.StepResult{
					{Index: 0, Name: "Accept terms and conditions", Status: core.StatusPassed, StartTime: start, Duration: 1500 * time.Millisecond},
					{Index: 1, Name: "Click next button", Status: core.StatusPassed, StartTime: start.Add(1500 * time.Millisecond), Duration: time.Second},
				},
			},
			{
				Name:      "pin-mismatch",
				Severity:  "critical",
				Status:    core.StatusFailed,
				Category:  core.ErrCategoryAssertion,
				StartTime: start.Add(5 * time.Second),
				Duration:  2 * time.Second,
				Error:     `expected error message containing "match", got ""`,
				Steps: []core.StepResult{
					{Index: 0, Name: "Get error message", Status: core.StatusFailed, StartTime: start.Add(5 * time.Second), Duration: time.Second, Error: "boom"},
				},
				Attachments: []core.Attachment{core.NewScreenshotAttachment("", []byte("\x89PNG fake"))},
			},
			{
				Name:      "terms-required",
				Status:    core.StatusErrored,
				Category:  core.ErrCategoryConnection,
				StartTime: start.Add(7 * time.Second),
				Error:     "could not connect to automation server",
			},
		},
	}
	suite.ComputeSummary()
	return suite
}

func readResults(t *testing.T, dir string) map[string]AllureResult {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, AllureDir, "*-result.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	results := make(map[string]AllureResult)
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			t.Fatalf("read %s: %v", m, err)
		}
		var r AllureResult
		if err := json.Unmarshal(data, &r); err != nil {
			t.Fatalf("unmarshal %s: %v", m, err)
		}
		if filepath.Base(m) != r.UUID+"-result.json" {
			t.Errorf("result file %s does not match uuid %s", filepath.Base(m), r.UUID)
		}
		results[r.Name] = r
	}
	return results
}

func label(r AllureResult, name string) string {
	for _, l := range r.Labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func TestGenerateAllure_Results(t *testing.T) {
	dir := t.TempDir()
	start := time.UnixMilli(1700000000000)
	meta := Meta{Environment: "dev", Device: Device{Name: "Pixel 7", Platform: "Android"}}

	if err := GenerateAllure(dir, testSuite(start), meta); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	results := readResults(t, dir)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	happy := results["create-wallet-happy-path"]
	if happy.Status != "passed" {
		t.Errorf("status = %q, want passed", happy.Status)
	}
	if happy.Start != 1700000000000 || happy.Stop != 1700000005000 {
		t.Errorf("start/stop = %d/%d", happy.Start, happy.Stop)
	}
	if happy.FullName != "Wallet Creation.create-wallet-happy-path" {
		t.Errorf("fullName = %q", happy.FullName)
	}
	if len(happy.Steps) != 2 || happy.Steps[1].Name != "Click next button" {
		t.Fatalf("steps = %+v", happy.Steps)
	}
	if happy.Steps[0].Stop-happy.Steps[0].Start != 1500 {
		t.Errorf("step duration = %d", happy.Steps[0].Stop-happy.Steps[0].Start)
	}
	for name, want := range map[string]string{
		"suite":    "Wallet Creation",
		"severity": "critical",
		"story":    "User can create a new wallet",
		"epic":     "Wallet Management",
		"feature":  "Wallet Creation",
		"host":     "Pixel 7",
		"thread":   "sess-1",
	} {
		if got := label(happy, name); got != want {
			t.Errorf("label %s = %q, want %q", name, got, want)
		}
	}
	if len(happy.Attachments) != 0 {
		t.Errorf("passed scenario has attachments: %+v", happy.Attachments)
	}

	mismatch := results["pin-mismatch"]
	if mismatch.Status != "failed" {
		t.Errorf("status = %q, want failed", mismatch.Status)
	}
	if !strings.Contains(mismatch.StatusDetails.Message, "match") {
		t.Errorf("message = %q", mismatch.StatusDetails.Message)
	}
	if mismatch.StatusDetails.Trace != "category: assertion" {
		t.Errorf("trace = %q", mismatch.StatusDetails.Trace)
	}
	if mismatch.Steps[0].StatusDetails.Message != "boom" {
		t.Errorf("step message = %q", mismatch.Steps[0].StatusDetails.Message)
	}
	if len(mismatch.Attachments) != 1 {
		t.Fatalf("attachments = %+v", mismatch.Attachments)
	}
	att := mismatch.Attachments[0]
	if att.Name != "Screenshot" || att.Type != "image/png" || !strings.HasSuffix(att.Source, "-attachment.png") {
		t.Errorf("attachment = %+v", att)
	}
	data, err := os.ReadFile(filepath.Join(dir, AllureDir, att.Source))
	if err != nil {
		t.Fatalf("read attachment: %v", err)
	}
	if string(data) != "\x89PNG fake" {
		t.Errorf("attachment content = %q", data)
	}

	if got := results["terms-required"].Status; got != "broken" {
		t.Errorf("errored scenario status = %q, want broken", got)
	}
}

func TestGenerateAllure_HistoryIDStable(t *testing.T) {
	start := time.Now()
	first, second := t.TempDir(), t.TempDir()

	if err := GenerateAllure(first, testSuite(start), Meta{}); err != nil {
		t.Fatal(err)
	}
	if err := GenerateAllure(second, testSuite(start), Meta{}); err != nil {
		t.Fatal(err)
	}

	a, b := readResults(t, first), readResults(t, second)
	for name, r := range a {
		if r.HistoryID != b[name].HistoryID {
			t.Errorf("%s: historyId changed between runs: %s vs %s", name, r.HistoryID, b[name].HistoryID)
		}
		if r.UUID == b[name].UUID {
			t.Errorf("%s: uuid reused across runs", name)
		}
	}
	if a["pin-mismatch"].HistoryID == a["terms-required"].HistoryID {
		t.Error("different scenarios share a historyId")
	}
}

func TestGenerateAllure_AttachmentFromPath(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(shot, []byte("on disk"), 0o644); err != nil {
		t.Fatal(err)
	}

	suite := &core.SuiteResult{Name: "s", Scenarios: []core.ScenarioResult{{
		Name:   "x",
		Status: core.StatusFailed,
		Attachments: []core.Attachment{
			{Name: core.AttachmentScreenshot, ContentType: core.ContentTypePNG, Path: shot},
			{Name: core.AttachmentHierarchy, ContentType: core.ContentTypeXML, Path: filepath.Join(dir, "missing.xml")},
		},
	}}}

	if err := GenerateAllure(dir, suite, Meta{}); err != nil {
		t.Fatal(err)
	}

	r := readResults(t, dir)["x"]
	if len(r.Attachments) != 1 {
		t.Fatalf("expected the missing file to be skipped, got %+v", r.Attachments)
	}
	data, err := os.ReadFile(filepath.Join(dir, AllureDir, r.Attachments[0].Source))
	if err != nil || string(data) != "on disk" {
		t.Errorf("copied attachment = %q, %v", data, err)
	}
}

func TestGenerateAllure_Metadata(t *testing.T) {
	dir := t.TempDir()
	meta := Meta{
		Environment: "staging",
		Device:      Device{Name: "Pixel 7", Platform: "Android", OSVersion: "14"},
		App:         App{ID: "com.wallet.crypto.trustapp"},
		Runner:      RunnerInfo{Version: "0.1.0", Driver: "appium"},
	}

	if err := GenerateAllure(dir, testSuite(time.Now()), meta); err != nil {
		t.Fatal(err)
	}

	env, err := os.ReadFile(filepath.Join(dir, AllureDir, "environment.properties"))
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		"framework=wallet-e2e",
		"environment=staging",
		"device.name=Pixel 7",
		"device.platform=Android",
		"device.osVersion=14",
		"runner.version=0.1.0",
		"runner.driver=appium",
		"app.id=com.wallet.crypto.trustapp",
	} {
		if !strings.Contains(string(env), line+"\n") {
			t.Errorf("environment.properties missing %q:\n%s", line, env)
		}
	}

	var categories []AllureCategory
	data, err := os.ReadFile(filepath.Join(dir, AllureDir, "categories.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &categories); err != nil {
		t.Fatal(err)
	}
	if len(categories) == 0 {
		t.Error("no categories written")
	}

	var executor AllureExecutor
	data, err = os.ReadFile(filepath.Join(dir, AllureDir, "executor.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &executor); err != nil {
		t.Fatal(err)
	}
	if executor.BuildName != "run-1" || executor.ReportName != "Wallet Creation" {
		t.Errorf("executor = %+v", executor)
	}
}

func TestMapAllureStatus(t *testing.T) {
	tests := map[core.Status]string{
		core.StatusPassed:  "passed",
		core.StatusFailed:  "failed",
		core.StatusErrored: "broken",
		core.StatusSkipped: "skipped",
		core.StatusRunning: "unknown",
	}
	for in, want := range tests {
		if got := mapAllureStatus(in); got != want {
			t.Errorf("mapAllureStatus(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFnv32aHash(t *testing.T) {
	if got := fnv32aHash(""); got != "811c9dc5" {
		t.Errorf("fnv32aHash(\"\") = %s", got)
	}
	if fnv32aHash("a") == fnv32aHash("b") {
		t.Error("distinct inputs collide")
	}
}
