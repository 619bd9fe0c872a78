package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Driver activates elements by their visible text. Locating waits up to
// Timeout for the element to render; it never re-clicks once a click landed.
type Driver struct {
	Page     Page
	Timeout  time.Duration
	Interval time.Duration
	Logger   *slog.Logger
}

// SelectRoom clicks the room whose display name contains displayName.
func (d *Driver) SelectRoom(ctx context.Context, displayName string) error {
	return d.activate(ctx, "room", displayName, d.Page.SelectRoom)
}

// TriggerInteraction clicks the interaction option whose text contains label.
func (d *Driver) TriggerInteraction(ctx context.Context, label string) error {
	return d.activate(ctx, "interaction", label, d.Page.TriggerInteraction)
}

// ToggleInventory clicks the inventory panel header.
func (d *Driver) ToggleInventory(ctx context.Context) error {
	return d.activate(ctx, "panel header", "Inventory", func(ctx context.Context, _ string) error {
		return d.Page.ToggleInventory(ctx)
	})
}

func (d *Driver) activate(ctx context.Context, kind, target string, click func(context.Context, string) error) error {
	met, err := waitUntil(ctx, d.Timeout, d.Interval, func(ctx context.Context) (bool, error) {
		err := click(ctx, target)
		if errors.Is(err, ErrElementNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to activate %s %q: %w", kind, target, err)
	}
	if !met {
		return fmt.Errorf("%w: no %s matching %q within %v", ErrElementNotFound, kind, target, d.Timeout)
	}
	d.Logger.Info("Activated element", "kind", kind, "target", target)
	return nil
}
