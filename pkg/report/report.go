// Package report writes run results to disk.
//
// Layout under the output directory:
//   - report.json: suite summary with per-scenario steps and errors
//   - allure-results/: Allure 2 result files, attachments and metadata
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
)

// Version is the report.json schema version.
const Version = "1.0.0"

// ReportFile is the suite summary file name.
const ReportFile = "report.json"

// Device describes the device the run targeted.
type Device struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	OSVersion string `json:"osVersion,omitempty"`
}

// App identifies the application under test.
type App struct {
	ID string `json:"id"`
}

// RunnerInfo identifies the tool that produced the report.
type RunnerInfo struct {
	Version string `json:"version"`
	Driver  string `json:"driver"` // appium, mock
}

// Meta is run-level context written alongside the results.
type Meta struct {
	Environment string     `json:"environment"`
	Device      Device     `json:"device"`
	App         App        `json:"app"`
	Runner      RunnerInfo `json:"runner"`
}

// Report is the content of report.json.
type Report struct {
	Version string            `json:"version"`
	Meta    Meta              `json:"meta"`
	Suite   *core.SuiteResult `json:"suite"`
}

// Write writes report.json and the Allure results for suite into outDir.
func Write(outDir string, suite *core.SuiteResult, meta Meta) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	rep := Report{Version: Version, Meta: meta, Suite: suite}
	if err := atomicWriteJSON(filepath.Join(outDir, ReportFile), rep); err != nil {
		return fmt.Errorf("write %s: %w", ReportFile, err)
	}

	if err := GenerateAllure(outDir, suite, meta); err != nil {
		return fmt.Errorf("write allure results: %w", err)
	}
	return nil
}

// Read loads report.json from outDir.
func Read(outDir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(outDir, ReportFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ReportFile, err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ReportFile, err)
	}
	return &rep, nil
}

// atomicWriteJSON writes v to a temp file next to path, then renames it into
// place so readers never see a partial file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
