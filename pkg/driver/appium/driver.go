package appium

import (
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
)

// Driver implements core.Driver using Appium server.
type Driver struct {
	client *Client
	appID  string
}

// NewDriver creates a session on the server and returns a driver bound to it.
func NewDriver(serverURL string, capabilities map[string]interface{}) (*Driver, error) {
	client := NewClient(serverURL)

	if err := client.Connect(capabilities); err != nil {
		return nil, err
	}
	logger.Info("Appium session %s created on %s", client.SessionID(), serverURL)

	d := &Driver{client: client}
	if appID, ok := capabilities["appium:appPackage"].(string); ok {
		d.appID = appID
	} else if appID, ok := capabilities["appium:bundleId"].(string); ok {
		d.appID = appID
	}
	return d, nil
}

// Client exposes the underlying WebDriver client.
func (d *Driver) Client() *Client {
	return d.client
}

// FindElement implements core.Driver.
func (d *Driver) FindElement(loc core.Locator) (core.Element, error) {
	id, err := d.client.FindElement(loc.Strategy, loc.Value)
	if err != nil {
		return nil, err
	}
	return &element{client: d.client, id: id}, nil
}

// FindElements implements core.Driver.
func (d *Driver) FindElements(loc core.Locator) ([]core.Element, error) {
	ids, err := d.client.FindElements(loc.Strategy, loc.Value)
	if err != nil {
		return nil, err
	}
	elements := make([]core.Element, 0, len(ids))
	for _, id := range ids {
		elements = append(elements, &element{client: d.client, id: id})
	}
	return elements, nil
}

// WindowSize implements core.Driver. The size is queried on every call since
// rotation changes it.
func (d *Driver) WindowSize() (core.Size, error) {
	w, h, err := d.client.WindowRect()
	if err != nil {
		return core.Size{}, err
	}
	return core.Size{Width: w, Height: h}, nil
}

// Perform implements core.Driver.
func (d *Driver) Perform(g core.Gesture) error {
	return d.client.PerformTouch(gestureActions(g))
}

// gestureActions builds the W3C pointer sequence press - pause - move - release.
func gestureActions(g core.Gesture) []map[string]interface{} {
	actions := []map[string]interface{}{
		{"type": "pointerMove", "duration": 0, "x": g.Start.X, "y": g.Start.Y, "origin": "viewport"},
		{"type": "pointerDown", "button": 0},
	}
	if g.Hold > 0 {
		actions = append(actions, map[string]interface{}{"type": "pause", "duration": g.Hold.Milliseconds()})
	}
	if g.IsMove() {
		actions = append(actions, map[string]interface{}{
			"type":     "pointerMove",
			"duration": g.Move.Milliseconds(),
			"x":        g.End.X,
			"y":        g.End.Y,
			"origin":   "viewport",
		})
	}
	return append(actions, map[string]interface{}{"type": "pointerUp", "button": 0})
}

// SetImplicitWait implements core.Driver.
func (d *Driver) SetImplicitWait(timeout time.Duration) error {
	return d.client.SetImplicitWait(timeout)
}

// Screenshot implements core.Driver.
func (d *Driver) Screenshot() ([]byte, error) {
	return d.client.Screenshot()
}

// Source implements core.Driver.
func (d *Driver) Source() (string, error) {
	return d.client.Source()
}

// GetPlatformInfo implements core.Driver.
func (d *Driver) GetPlatformInfo() *core.PlatformInfo {
	w, h := d.client.ScreenSize()
	return &core.PlatformInfo{
		Platform:     d.client.Platform(),
		OSVersion:    d.client.Capability("platformVersion"),
		DeviceName:   d.client.Capability("deviceName"),
		SessionID:    d.client.SessionID(),
		ScreenWidth:  w,
		ScreenHeight: h,
		AppID:        d.appID,
	}
}

// Quit implements core.Driver.
func (d *Driver) Quit() error {
	id := d.client.SessionID()
	if err := d.client.Disconnect(); err != nil {
		return err
	}
	if id != "" {
		logger.Info("Appium session %s closed", id)
	}
	return nil
}

// element is a W3C element reference. It goes stale when the screen changes.
type element struct {
	client *Client
	id     string
}

func (e *element) ID() string                 { return e.id }
func (e *element) Click() error               { return e.client.ClickElement(e.id) }
func (e *element) Clear() error               { return e.client.ClearElement(e.id) }
func (e *element) SendKeys(text string) error { return e.client.SendKeysToElement(e.id, text) }
func (e *element) Text() (string, error)      { return e.client.GetElementText(e.id) }
func (e *element) IsDisplayed() (bool, error) { return e.client.IsElementDisplayed(e.id) }
func (e *element) IsEnabled() (bool, error)   { return e.client.IsElementEnabled(e.id) }
func (e *element) Rect() (core.Bounds, error) { return e.client.GetElementRect(e.id) }
