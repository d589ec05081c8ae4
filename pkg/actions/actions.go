// Package actions composes a wait with exactly one driver interaction.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/devicelab-dev/wallet-e2e/pkg/wait"
)

// SwipeHold is the pause between press and move in every swipe.
const SwipeHold = 500 * time.Millisecond

// Direction is a viewport swipe direction.
type Direction string

// Swipe directions. Up moves the finger from the bottom toward the top.
const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Actions performs element interactions.
type Actions struct {
	driver core.Driver
	wait   *wait.Waiter
}

// New creates Actions bound to the waiter's driver.
func New(w *wait.Waiter) *Actions {
	return &Actions{driver: w.Driver(), wait: w}
}

// Waiter returns the wait helper used before every action.
func (a *Actions) Waiter() *wait.Waiter {
	return a.wait
}

// Tap waits until loc is clickable and clicks it.
func (a *Actions) Tap(ctx context.Context, loc core.Locator) error {
	el, err := a.wait.Clickable(ctx, loc)
	if err != nil {
		return err
	}
	logger.Debug("Tap %s", loc)
	return a.TapElement(el)
}

// TapElement clicks an already resolved element.
func (a *Actions) TapElement(el core.Element) error {
	if err := el.Click(); err != nil {
		return fmt.Errorf("click element %s: %w", el.ID(), err)
	}
	return nil
}

// EnterText waits until loc is visible, clears it and types text.
func (a *Actions) EnterText(ctx context.Context, loc core.Locator, text string) error {
	el, err := a.wait.Visible(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", loc, err)
	}
	logger.Debug("Enter text %s into %s", logger.Mask(text), loc)
	if err := el.SendKeys(text); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

// ClearText waits until loc is visible and clears it.
func (a *Actions) ClearText(ctx context.Context, loc core.Locator) error {
	el, err := a.wait.Visible(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", loc, err)
	}
	return nil
}

// ReadText waits until loc is visible and returns its text.
func (a *Actions) ReadText(ctx context.Context, loc core.Locator) (string, error) {
	el, err := a.wait.Visible(ctx, loc)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", loc, err)
	}
	return text, nil
}

// LongPress presses the center of loc for d.
func (a *Actions) LongPress(ctx context.Context, loc core.Locator, d time.Duration) error {
	center, err := a.center(ctx, loc)
	if err != nil {
		return err
	}
	return a.driver.Perform(core.Gesture{Start: center, Hold: d})
}

// Swipe drags from the center of one element to the center of another.
func (a *Actions) Swipe(ctx context.Context, from, to core.Locator) error {
	start, err := a.center(ctx, from)
	if err != nil {
		return err
	}
	end, err := a.center(ctx, to)
	if err != nil {
		return err
	}
	logger.Debug("Swipe %s -> %s", from, to)
	return a.driver.Perform(core.Gesture{Start: start, End: &end, Hold: SwipeHold})
}

// SwipeDirection swipes across the current viewport.
func (a *Actions) SwipeDirection(ctx context.Context, dir Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	size, err := a.driver.WindowSize()
	if err != nil {
		return fmt.Errorf("window size: %w", err)
	}
	start, end, err := SwipeCoordinates(size, dir)
	if err != nil {
		return err
	}
	logger.Debug("Swipe %s (%d,%d) -> (%d,%d)", dir, start.X, start.Y, end.X, end.Y)
	return a.driver.Perform(core.Gesture{Start: start, End: &end, Hold: SwipeHold})
}

// SwipeCoordinates returns the start and end points of a directional swipe:
// 80% and 20% of the swiped dimension, centered on the other axis.
func SwipeCoordinates(size core.Size, dir Direction) (core.Point, core.Point, error) {
	w, h := size.Width, size.Height
	switch dir {
	case Up:
		return core.Point{X: w / 2, Y: h * 8 / 10}, core.Point{X: w / 2, Y: h * 2 / 10}, nil
	case Down:
		return core.Point{X: w / 2, Y: h * 2 / 10}, core.Point{X: w / 2, Y: h * 8 / 10}, nil
	case Left:
		return core.Point{X: w * 8 / 10, Y: h / 2}, core.Point{X: w * 2 / 10, Y: h / 2}, nil
	case Right:
		return core.Point{X: w * 2 / 10, Y: h / 2}, core.Point{X: w * 8 / 10, Y: h / 2}, nil
	default:
		return core.Point{}, core.Point{}, fmt.Errorf("unknown swipe direction %q", dir)
	}
}

// Exists reports whether loc currently matches an element. One lookup, no wait.
func (a *Actions) Exists(loc core.Locator) bool {
	_, err := a.driver.FindElement(loc)
	return err == nil
}

// IsDisplayed reports whether loc currently matches a displayed element.
// Any error counts as not displayed.
func (a *Actions) IsDisplayed(loc core.Locator) bool {
	el, err := a.driver.FindElement(loc)
	if err != nil {
		return false
	}
	displayed, err := el.IsDisplayed()
	return err == nil && displayed
}

func (a *Actions) center(ctx context.Context, loc core.Locator) (core.Point, error) {
	el, err := a.wait.Visible(ctx, loc)
	if err != nil {
		return core.Point{}, err
	}
	rect, err := el.Rect()
	if err != nil {
		return core.Point{}, fmt.Errorf("bounds of %s: %w", loc, err)
	}
	x, y := rect.Center()
	return core.Point{X: x, Y: y}, nil
}
