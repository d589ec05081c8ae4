// Package wait polls the screen until an element reaches a state or a
// deadline passes.
//
// Not-found and stale lookups mean "not yet"; any other driver error is also
// retried but kept as the cause of the eventual timeout.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/config"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/jonboulle/clockwork"
)

// Defaults used when no settings are supplied.
const (
	DefaultTimeout  = 15 * time.Second
	DefaultShort    = 5 * time.Second
	DefaultLong     = 30 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

// Conditions, as they appear in timeout messages.
const (
	condVisible   = "visible"
	condClickable = "clickable"
	condInvisible = "invisible"
)

// Waiter runs polling waits against one driver.
type Waiter struct {
	driver   core.Driver
	clock    clockwork.Clock
	timeout  time.Duration
	short    time.Duration
	long     time.Duration
	interval time.Duration
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithClock replaces the real clock (tests use clockwork.NewFakeClock).
func WithClock(c clockwork.Clock) Option {
	return func(w *Waiter) { w.clock = c }
}

// WithInterval sets the pause between polls.
func WithInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithTimeouts sets the default, short and long timeouts.
func WithTimeouts(timeout, short, long time.Duration) Option {
	return func(w *Waiter) {
		w.timeout, w.short, w.long = timeout, short, long
	}
}

// New creates a Waiter with the default timeouts.
func New(driver core.Driver, opts ...Option) *Waiter {
	w := &Waiter{
		driver:   driver,
		clock:    clockwork.NewRealClock(),
		timeout:  DefaultTimeout,
		short:    DefaultShort,
		long:     DefaultLong,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FromSettings creates a Waiter with timeouts and poll interval taken from s.
func FromSettings(driver core.Driver, s *config.Settings, opts ...Option) *Waiter {
	base := []Option{
		WithTimeouts(s.ExplicitTimeout(), s.ShortTimeout(), s.LongTimeout()),
		WithInterval(s.PollInterval()),
	}
	return New(driver, append(base, opts...)...)
}

// Driver returns the driver the waiter polls.
func (w *Waiter) Driver() core.Driver { return w.driver }

// Timeout returns the default timeout.
func (w *Waiter) Timeout() time.Duration { return w.timeout }

// Short returns the short timeout, for elements expected almost immediately.
func (w *Waiter) Short() time.Duration { return w.short }

// Long returns the long timeout, for slow transitions.
func (w *Waiter) Long() time.Duration { return w.long }

// Visible waits with the default timeout until loc is present and displayed.
func (w *Waiter) Visible(ctx context.Context, loc core.Locator) (core.Element, error) {
	return w.VisibleFor(ctx, loc, w.timeout)
}

// VisibleFor is Visible with an explicit timeout.
func (w *Waiter) VisibleFor(ctx context.Context, loc core.Locator, timeout time.Duration) (core.Element, error) {
	return w.poll(ctx, loc, timeout, condVisible, func() (core.Element, bool, error) {
		el, err := w.driver.FindElement(loc)
		if err != nil {
			return nil, false, err
		}
		displayed, err := el.IsDisplayed()
		if err != nil {
			return nil, false, err
		}
		return el, displayed, nil
	})
}

// Clickable waits with the default timeout until loc is displayed and enabled.
func (w *Waiter) Clickable(ctx context.Context, loc core.Locator) (core.Element, error) {
	return w.ClickableFor(ctx, loc, w.timeout)
}

// ClickableFor is Clickable with an explicit timeout.
func (w *Waiter) ClickableFor(ctx context.Context, loc core.Locator, timeout time.Duration) (core.Element, error) {
	return w.poll(ctx, loc, timeout, condClickable, func() (core.Element, bool, error) {
		el, err := w.driver.FindElement(loc)
		if err != nil {
			return nil, false, err
		}
		displayed, err := el.IsDisplayed()
		if err != nil || !displayed {
			return nil, false, err
		}
		enabled, err := el.IsEnabled()
		if err != nil {
			return nil, false, err
		}
		return el, enabled, nil
	})
}

// Invisible waits with the default timeout until loc is absent or hidden.
func (w *Waiter) Invisible(ctx context.Context, loc core.Locator) (bool, error) {
	return w.InvisibleFor(ctx, loc, w.timeout)
}

// InvisibleFor is Invisible with an explicit timeout.
func (w *Waiter) InvisibleFor(ctx context.Context, loc core.Locator, timeout time.Duration) (bool, error) {
	_, err := w.poll(ctx, loc, timeout, condInvisible, func() (core.Element, bool, error) {
		el, err := w.driver.FindElement(loc)
		if isGone(err) {
			return nil, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		displayed, err := el.IsDisplayed()
		if isGone(err) {
			return nil, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		return nil, !displayed, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func isGone(err error) bool {
	return errors.Is(err, core.ErrElementNotFound) || errors.Is(err, core.ErrStaleElement)
}

// poll evaluates check until it reports satisfied, the deadline passes or ctx
// is done. The check always runs at least once.
func (w *Waiter) poll(ctx context.Context, loc core.Locator, timeout time.Duration, cond string,
	check func() (core.Element, bool, error)) (core.Element, error) {
	deadline := w.clock.Now().Add(timeout)
	attempts := 0
	var lastErr error

	for {
		attempts++
		el, ok, err := check()
		if err == nil && ok {
			if attempts > 1 {
				logger.Debug("%s became %s after %d polls", loc, cond, attempts)
			}
			return el, nil
		}
		if err != nil {
			lastErr = err
		}

		if !w.clock.Now().Before(deadline) {
			return nil, w.timeoutError(loc, cond, timeout, attempts, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s to be %s: %w", loc, cond, ctx.Err())
		case <-w.clock.After(w.interval):
		}
	}
}

func (w *Waiter) timeoutError(loc core.Locator, cond string, timeout time.Duration, attempts int, cause error) error {
	logger.Warn("Timed out after %s waiting for %s to be %s", timeout, loc, cond)
	err := core.ErrWaitTimeout.
		WithMessage(fmt.Sprintf("timed out after %s waiting for %s to be %s", timeout, loc, cond)).
		WithDetails(map[string]interface{}{
			"locator":   loc.String(),
			"condition": cond,
			"timeout":   timeout.String(),
			"attempts":  attempts,
		})
	if cause != nil {
		return err.WithCause(cause)
	}
	return err
}
