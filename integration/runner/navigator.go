package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Navigator loads the client and blocks until the navigation landmark is
// rendered. A reload discards all in-memory client state, which is what makes
// a seeded store authoritative.
type Navigator struct {
	Page     Page
	BaseURL  string
	Timeout  time.Duration
	Interval time.Duration
	Logger   *slog.Logger
}

// Load opens the base URL and waits for readiness.
func (n *Navigator) Load(ctx context.Context) error {
	n.Logger.Debug("Navigating", "url", n.BaseURL)
	if err := n.Page.Navigate(ctx, n.BaseURL); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", n.BaseURL, err)
	}
	return n.WaitReady(ctx)
}

// Reload forces a fresh load of the current page and waits for readiness.
func (n *Navigator) Reload(ctx context.Context) error {
	n.Logger.Debug("Reloading")
	if err := n.Page.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return n.WaitReady(ctx)
}

// WaitReady polls for the landmark until the navigation timeout.
func (n *Navigator) WaitReady(ctx context.Context) error {
	start := time.Now()
	var lastErr error
	met, err := waitUntil(ctx, n.Timeout, n.Interval, tolerant(n.Page.LandmarkVisible, &lastErr))
	if err != nil {
		return err
	}
	if !met {
		if lastErr != nil {
			return fmt.Errorf("%w: landmark not visible after %v (last probe error: %v)", ErrNavigationTimeout, n.Timeout, lastErr)
		}
		return fmt.Errorf("%w: landmark not visible after %v", ErrNavigationTimeout, n.Timeout)
	}
	n.Logger.Debug("Page ready", "waited", time.Since(start))
	return nil
}
