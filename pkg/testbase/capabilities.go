package testbase

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/devicelab-dev/wallet-e2e/pkg/driver/appium"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
)

// BrowserStack session labels.
const (
	bsProject = "Trust Wallet"
	bsSession = "Wallet Creation Tests"
)

// BuildCapabilities assembles the session capabilities from settings. Keys
// in capsFile, when given, override the built ones. The result is
// normalized to W3C form.
func BuildCapabilities(s *config.Settings, capsFile string) (map[string]interface{}, error) {
	return buildCapabilities(s, capsFile, time.Now())
}

func buildCapabilities(s *config.Settings, capsFile string, now time.Time) (map[string]interface{}, error) {
	caps := map[string]interface{}{
		"platformName":      s.Platform,
		"deviceName":        s.DeviceName,
		"automationName":    s.AutomationName,
		"newCommandTimeout": s.NewCommandTimeout,
		"noReset":           false,
		"fullReset":         true,
	}
	if s.PlatformVersion != "" {
		caps["platformVersion"] = s.PlatformVersion
	}
	if s.AppPackage != "" {
		caps["appPackage"] = s.AppPackage
	}
	if s.AppActivity != "" {
		caps["appActivity"] = s.AppActivity
	}

	if s.IsBrowserStack() {
		addBrowserStack(caps, s, now)
	} else if s.AppPath != "" {
		if app, ok := resolveApp(s.AppPath); ok {
			caps["app"] = app
		} else {
			logger.Warn("App file not found at %s, relying on the installed package", s.AppPath)
		}
	}

	if capsFile != "" {
		overrides, err := appium.LoadCapabilities(capsFile)
		if err != nil {
			return nil, fmt.Errorf("capabilities file: %w", err)
		}
		for k, v := range overrides {
			caps[k] = v
		}
	}

	return appium.NormalizeCapabilities(caps), nil
}

func resolveApp(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", false
	}
	return abs, true
}

func addBrowserStack(caps map[string]interface{}, s *config.Settings, now time.Time) {
	bs := s.BrowserStack
	caps["app"] = bs.AppURL
	if bs.Device != "" {
		caps["deviceName"] = bs.Device
	}
	if bs.OSVersion != "" {
		caps["platformVersion"] = bs.OSVersion
	}
	caps["bstack:options"] = map[string]interface{}{
		"userName":    bs.Username,
		"accessKey":   bs.AccessKey,
		"deviceName":  caps["deviceName"],
		"osVersion":   bs.OSVersion,
		"projectName": bsProject,
		"buildName":   fmt.Sprintf("Build %d", now.UnixMilli()),
		"sessionName": bsSession,
	}
	logger.Info("Configured BrowserStack session for %s (%s)", bs.Device, logger.Mask(bs.AccessKey))
}
