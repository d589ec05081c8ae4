// Package pages holds one page object per app screen or flow. Page objects own
// locators and expose intention-revealing operations; they never cache element
// handles.
package pages

import (
	"context"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/actions"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
)

// Page is the capability set shared by all page objects.
type Page interface {
	Name() string
	IsPageLoaded() bool
}

// StepObserver receives every page-level step as it completes.
type StepObserver func(core.StepResult)

// Base is embedded by every page.
type Base struct {
	act      *actions.Actions
	pkg      string
	observer StepObserver
	steps    int
}

// NewBase creates a Base whose resource ids live under appPackage.
func NewBase(act *actions.Actions, appPackage string) Base {
	return Base{act: act, pkg: appPackage}
}

// Observe registers the step observer (the scenario runner's recorder).
func (b *Base) Observe(o StepObserver) {
	b.observer = o
}

// Actions returns the element action helper.
func (b *Base) Actions() *actions.Actions {
	return b.act
}

// ID builds an Android resource-id locator under the app package.
func (b *Base) ID(name string) core.Locator {
	return core.ByID(b.pkg + ":id/" + name)
}

// Click waits until loc is visible and clicks it, whether or not it is
// enabled. Used for controls the flow presses while they may be disabled.
func (b *Base) Click(ctx context.Context, loc core.Locator) error {
	logger.Info("Clicking on element: %s", loc)
	el, err := b.act.Waiter().Visible(ctx, loc)
	if err != nil {
		return err
	}
	return b.act.TapElement(el)
}

// Tap waits until loc is clickable and clicks it.
func (b *Base) Tap(ctx context.Context, loc core.Locator) error {
	logger.Info("Tapping element: %s", loc)
	return b.act.Tap(ctx, loc)
}

// Type clears loc and enters text. The text itself is not logged.
func (b *Base) Type(ctx context.Context, loc core.Locator, text string) error {
	logger.Info("Entering text %s into element: %s", logger.Mask(text), loc)
	return b.act.EnterText(ctx, loc, text)
}

// Text reads the text of loc once it is visible.
func (b *Base) Text(ctx context.Context, loc core.Locator) (string, error) {
	logger.Info("Getting text from element: %s", loc)
	return b.act.ReadText(ctx, loc)
}

// IsDisplayed checks loc once, without waiting.
func (b *Base) IsDisplayed(loc core.Locator) bool {
	displayed := b.act.IsDisplayed(loc)
	if !displayed {
		logger.Debug("Element is not displayed: %s", loc)
	}
	return displayed
}

// Swipe drags from one element to another.
func (b *Base) Swipe(ctx context.Context, from, to core.Locator) error {
	return b.act.Swipe(ctx, from, to)
}

// step logs and times one page operation and reports it to the observer.
func (b *Base) step(name string, fn func() error) error {
	logger.Info("%s", name)
	start := time.Now()
	err := fn()

	if b.observer != nil {
		res := core.StepResult{
			Index:     b.steps,
			Name:      name,
			Status:    core.StatusFromError(err),
			StartTime: start,
			Duration:  time.Since(start),
		}
		if err != nil {
			res.Error = err.Error()
		}
		b.observer(res)
	}
	b.steps++
	return err
}
