package core

import (
	"fmt"
	"time"
)

// Locator strategies understood by Appium (W3C plus the mobile extensions).
const (
	StrategyID              = "id"
	StrategyAccessibilityID = "accessibility id"
	StrategyXPath           = "xpath"
	StrategyClassName       = "class name"
	StrategyUiAutomator     = "-android uiautomator"
)

// Locator describes how to find a UI element. It carries no element handle:
// every interaction re-resolves it against the current screen.
type Locator struct {
	Strategy string
	Value    string
}

// ByID locates by resource id.
func ByID(id string) Locator { return Locator{Strategy: StrategyID, Value: id} }

// ByAccessibilityID locates by content-desc (Android) or accessibility label (iOS).
func ByAccessibilityID(id string) Locator {
	return Locator{Strategy: StrategyAccessibilityID, Value: id}
}

// ByXPath locates by a structural query.
func ByXPath(expr string) Locator { return Locator{Strategy: StrategyXPath, Value: expr} }

// ByClassName locates by widget class.
func ByClassName(class string) Locator { return Locator{Strategy: StrategyClassName, Value: class} }

// ByText locates an Android element by its exact visible text.
func ByText(text string) Locator {
	return Locator{Strategy: StrategyUiAutomator, Value: fmt.Sprintf(`new UiSelector().text("%s")`, escapeQuoted(text))}
}

// String implements fmt.Stringer in the "By.id: value" form used in logs.
func (l Locator) String() string {
	return fmt.Sprintf("By.%s: %s", l.Strategy, l.Value)
}

func escapeQuoted(s string) string {
	var result string
	for _, c := range s {
		switch c {
		case '"':
			result += `\"`
		case '\\':
			result += `\\`
		default:
			result += string(c)
		}
	}
	return result
}

//go:generate mockgen -source=driver.go -destination=mocks/driver_mock.go -package=mocks

// Driver is the remote UI automation session the helpers and pages consume.
// Implementations: appium.Driver (W3C over HTTP); tests use mocks.MockDriver.
type Driver interface {
	// FindElement resolves a locator once. Returns ErrElementNotFound when nothing matches.
	FindElement(loc Locator) (Element, error)

	// FindElements resolves all matches. No match is an empty slice, not an error.
	FindElements(loc Locator) ([]Element, error)

	// WindowSize returns the current viewport size.
	WindowSize() (Size, error)

	// Perform runs a touch gesture.
	Perform(g Gesture) error

	// SetImplicitWait configures the server-side implicit wait.
	SetImplicitWait(d time.Duration) error

	// Screenshot captures the current screen as PNG
	Screenshot() ([]byte, error)

	// Source returns the UI hierarchy as XML
	Source() (string, error)

	// GetPlatformInfo returns device/platform information
	GetPlatformInfo() *PlatformInfo

	// Quit ends the session.
	Quit() error
}

// Element is a resolved element handle. Handles go stale when the screen
// changes; callers hold them only for the duration of one interaction.
type Element interface {
	ID() string
	Click() error
	Clear() error
	SendKeys(text string) error
	Text() (string, error)
	IsDisplayed() (bool, error)
	IsEnabled() (bool, error)
	Rect() (Bounds, error)
}

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Size is a viewport size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is a viewport coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Gesture is a single-finger press - pause - move - release sequence.
// A nil End means press and release in place (long press).
type Gesture struct {
	Start Point
	End   *Point
	Hold  time.Duration // pause after press
	Move  time.Duration // duration of the move to End
}

// IsMove reports whether the gesture travels to a different point.
func (g Gesture) IsMove() bool {
	return g.End != nil && *g.End != g.Start
}

// PlatformInfo contains device and platform details
type PlatformInfo struct {
	Platform     string `json:"platform"`               // ios, android
	OSVersion    string `json:"osVersion"`              // e.g., "17.0", "14"
	DeviceName   string `json:"deviceName"`             // e.g., "iPhone 15 Pro", "Pixel 8"
	SessionID    string `json:"sessionId"`              // Remote session id
	ScreenWidth  int    `json:"screenWidth,omitempty"`  // Screen width in pixels
	ScreenHeight int    `json:"screenHeight,omitempty"` // Screen height in pixels
	AppID        string `json:"appId,omitempty"`        // Bundle ID / Package name
}
