package report

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/google/uuid"
)

// AllureDir is the results directory under the report output.
const AllureDir = "allure-results"

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureStep represents a step within a test result.
type AllureStep struct {
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// AllureExecutor holds executor info.
type AllureExecutor struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	BuildName  string `json:"buildName"`
	ReportName string `json:"reportName"`
}

// GenerateAllure writes one result per scenario plus categories,
// environment and executor metadata into <outDir>/allure-results/.
func GenerateAllure(outDir string, suite *core.SuiteResult, meta Meta) error {
	allureDir := filepath.Join(outDir, AllureDir)
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	for i := range suite.Scenarios {
		sc := &suite.Scenarios[i]
		id := uuid.NewString()

		attachments := writeAttachments(allureDir, id, sc.Attachments)
		result := buildAllureResult(id, suite.Name, sc, meta, attachments)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal allure result for %s: %w", sc.Name, err)
		}
		resultPath := filepath.Join(allureDir, id+"-result.json")
		if err := os.WriteFile(resultPath, data, 0o644); err != nil {
			return fmt.Errorf("write allure result %s: %w", sc.Name, err)
		}
	}

	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}
	if err := writeAllureEnvironment(allureDir, meta); err != nil {
		return err
	}
	return writeAllureExecutor(allureDir, suite)
}

// buildAllureResult builds an AllureResult from a scenario result.
func buildAllureResult(id, suiteName string, sc *core.ScenarioResult, meta Meta, attachments []AllureAttachment) AllureResult {
	startMs := sc.StartTime.UnixMilli()
	stopMs := startMs + sc.Duration.Milliseconds()

	labels := []AllureLabel{
		{Name: "suite", Value: suiteName},
		{Name: "framework", Value: "wallet-e2e"},
		{Name: "language", Value: "go"},
	}
	if sc.Severity != "" {
		labels = append(labels, AllureLabel{Name: "severity", Value: sc.Severity})
	}
	if sc.Story != "" {
		labels = append(labels, AllureLabel{Name: "story", Value: sc.Story})
	}
	// Tags are [epic, feature] for registered scenarios.
	if len(sc.Tags) > 0 {
		labels = append(labels, AllureLabel{Name: "epic", Value: sc.Tags[0]})
	}
	if len(sc.Tags) > 1 {
		labels = append(labels, AllureLabel{Name: "feature", Value: sc.Tags[1]})
	}
	if meta.Device.Name != "" {
		labels = append(labels, AllureLabel{Name: "host", Value: meta.Device.Name})
	}
	if sc.PlatformInfo != nil && sc.PlatformInfo.SessionID != "" {
		labels = append(labels, AllureLabel{Name: "thread", Value: sc.PlatformInfo.SessionID})
	}

	var details AllureStatusDetails
	if sc.Error != "" {
		details.Message = sc.Error
		if sc.Category != core.ErrCategoryNone {
			details.Trace = "category: " + sc.Category.String()
		}
	}

	if attachments == nil {
		attachments = []AllureAttachment{}
	}

	return AllureResult{
		UUID:          id,
		HistoryID:     fnv32aHash(suiteName + ":" + sc.Name),
		FullName:      suiteName + "." + sc.Name,
		Name:          sc.Name,
		Description:   sc.Description,
		Status:        mapAllureStatus(sc.Status),
		Stage:         "finished",
		Start:         startMs,
		Stop:          stopMs,
		Labels:        labels,
		StatusDetails: details,
		Steps:         buildAllureSteps(sc.Steps),
		Attachments:   attachments,
	}
}

// buildAllureSteps builds Allure steps from page-level steps.
func buildAllureSteps(steps []core.StepResult) []AllureStep {
	out := make([]AllureStep, 0, len(steps))
	for _, st := range steps {
		startMs := st.StartTime.UnixMilli()
		out = append(out, AllureStep{
			Name:          st.Name,
			Status:        mapAllureStatus(st.Status),
			Stage:         "finished",
			Start:         startMs,
			Stop:          startMs + st.Duration.Milliseconds(),
			StatusDetails: AllureStatusDetails{Message: st.Error},
			Steps:         []AllureStep{},
			Attachments:   []AllureAttachment{},
		})
	}
	return out
}

// writeAttachments stores each attachment as <resultID>-<n>-attachment<ext>.
// In-memory bodies are written directly; otherwise the file at Path is copied.
func writeAttachments(allureDir, resultID string, atts []core.Attachment) []AllureAttachment {
	var out []AllureAttachment
	for i, att := range atts {
		source := fmt.Sprintf("%s-%d-attachment%s", resultID, i, extensionFor(att))
		dst := filepath.Join(allureDir, source)

		switch {
		case len(att.Body) > 0:
			if err := os.WriteFile(dst, att.Body, 0o644); err != nil {
				logger.Warn("failed to write attachment %s: %v", dst, err)
				continue
			}
		case att.Path != "":
			if !copyFile(att.Path, dst) {
				continue
			}
		default:
			continue
		}

		out = append(out, AllureAttachment{
			Name:   attachmentTitle(att.Name),
			Source: source,
			Type:   att.ContentType,
		})
	}
	return out
}

func extensionFor(att core.Attachment) string {
	switch att.ContentType {
	case core.ContentTypePNG:
		return ".png"
	case core.ContentTypeXML:
		return ".xml"
	case core.ContentTypeJSON:
		return ".json"
	case core.ContentTypeText:
		return ".txt"
	}
	if ext := filepath.Ext(att.Path); ext != "" {
		return ext
	}
	return ""
}

func attachmentTitle(name string) string {
	if name == "" {
		return "Attachment"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// copyFile copies src to dst and reports whether it succeeded.
func copyFile(src, dst string) bool {
	in, err := os.Open(src)
	if err != nil {
		logger.Warn("attachment %s not found: %v", src, err)
		return false
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		logger.Warn("failed to create %s: %v", dst, err)
		return false
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		logger.Warn("failed to copy %s to %s: %v", src, dst, err)
		return false
	}
	return true
}

// mapAllureStatus maps a core status to an Allure status string.
// Errored scenarios are "broken": the product was not shown to be wrong.
func mapAllureStatus(s core.Status) string {
	switch s {
	case core.StatusPassed:
		return "passed"
	case core.StatusFailed:
		return "failed"
	case core.StatusErrored:
		return "broken"
	case core.StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// writeAllureCategories writes categories.json for failure categorization.
func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Assertion Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*(assert|expected|not loaded|not successful).*"},
		{Name: "Element Not Found", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*(element not found|no longer attached).*"},
		{Name: "Timeout", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*(timed out|timeout).*"},
		{Name: "Session Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*(session|could not connect|automation server).*"},
		{Name: "Configuration Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*configuration.*"},
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	path := filepath.Join(allureDir, "categories.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}
	return nil
}

// writeAllureEnvironment writes environment.properties with run metadata.
func writeAllureEnvironment(allureDir string, meta Meta) error {
	var b strings.Builder
	b.WriteString("framework=wallet-e2e\n")

	if meta.Environment != "" {
		b.WriteString(fmt.Sprintf("environment=%s\n", meta.Environment))
	}
	if meta.Device.Name != "" {
		b.WriteString(fmt.Sprintf("device.name=%s\n", meta.Device.Name))
	}
	if meta.Device.Platform != "" {
		b.WriteString(fmt.Sprintf("device.platform=%s\n", meta.Device.Platform))
	}
	if meta.Device.OSVersion != "" {
		b.WriteString(fmt.Sprintf("device.osVersion=%s\n", meta.Device.OSVersion))
	}
	if meta.Runner.Version != "" {
		b.WriteString(fmt.Sprintf("runner.version=%s\n", meta.Runner.Version))
	}
	if meta.Runner.Driver != "" {
		b.WriteString(fmt.Sprintf("runner.driver=%s\n", meta.Runner.Driver))
	}
	if meta.App.ID != "" {
		b.WriteString(fmt.Sprintf("app.id=%s\n", meta.App.ID))
	}

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}
	return nil
}

// writeAllureExecutor writes executor.json naming the run.
func writeAllureExecutor(allureDir string, suite *core.SuiteResult) error {
	executor := AllureExecutor{
		Name:       "wallet-e2e",
		Type:       "wallet-e2e",
		BuildName:  suite.RunID,
		ReportName: suite.Name,
	}

	data, err := json.MarshalIndent(executor, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal executor: %w", err)
	}

	path := filepath.Join(allureDir, "executor.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write executor.json: %w", err)
	}
	return nil
}
