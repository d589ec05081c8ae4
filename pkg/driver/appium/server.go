package appium

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
)

// WaitForServer polls GET /status with exponential backoff until the server
// reports ready, the timeout elapses or ctx is cancelled.
func WaitForServer(ctx context.Context, serverURL string, timeout time.Duration) error {
	client := NewClient(serverURL)
	client.http.SetTimeout(5 * time.Second)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	attempt := 0
	probe := func() error {
		attempt++
		return client.Status()
	}
	notify := func(err error, next time.Duration) {
		logger.Debug("Appium server at %s not ready (attempt %d): %v, retrying in %s", serverURL, attempt, err, next)
	}

	if err := backoff.RetryNotify(probe, backoff.WithContext(b, ctx), notify); err != nil {
		return core.ErrServerUnreachable.
			WithDetails(map[string]interface{}{"url": serverURL, "attempts": attempt}).
			WithCause(err)
	}
	logger.Info("Appium server at %s is ready", serverURL)
	return nil
}
