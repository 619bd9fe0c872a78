package runner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jwebster45206/perec-verify/pkg/state"
)

// Verifier asserts on rendered output within bounded windows. Assertions are
// presence checks; absence is only asserted through AssertAbsent, and only by
// scenarios that define it.
type Verifier struct {
	Page          Page
	Timeout       time.Duration
	Interval      time.Duration
	AbsenceWindow time.Duration
	Logger        *slog.Logger
}

// AssertVisible waits until fragment is visible.
func (v *Verifier) AssertVisible(ctx context.Context, fragment string) error {
	return v.Eventually(ctx, fmt.Sprintf("text %q visible", fragment), func(ctx context.Context) (bool, error) {
		return v.Page.TextVisible(ctx, fragment)
	})
}

// AssertAbsent fails as soon as fragment becomes visible, and succeeds only
// after it stayed invisible for the whole absence window.
func (v *Verifier) AssertAbsent(ctx context.Context, fragment string) error {
	return v.Never(ctx, fmt.Sprintf("text %q visible", fragment), func(ctx context.Context) (bool, error) {
		return v.Page.TextVisible(ctx, fragment)
	})
}

// AssertActions waits until the "Available Actions" section lists exactly
// want. Order is not compared; labels are the lookup keys.
func (v *Verifier) AssertActions(ctx context.Context, want []string) error {
	var last []string
	var present bool
	err := v.Eventually(ctx, fmt.Sprintf("available actions %q", want), func(ctx context.Context) (bool, error) {
		labels, ok, err := v.Page.AvailableActions(ctx)
		if err != nil {
			return false, err
		}
		last, present = labels, ok
		return ok && sameLabels(labels, want), nil
	})
	if err != nil && !present {
		return fmt.Errorf("%w (section never rendered)", err)
	}
	if err != nil {
		return fmt.Errorf("%w (last seen %q)", err, last)
	}
	return nil
}

// AssertNoActions checks that the "Available Actions" section is either
// absent or empty for the whole absence window.
func (v *Verifier) AssertNoActions(ctx context.Context) error {
	return v.Never(ctx, "non-empty available actions", func(ctx context.Context) (bool, error) {
		labels, ok, err := v.Page.AvailableActions(ctx)
		if err != nil {
			return false, err
		}
		return ok && len(labels) > 0, nil
	})
}

// AssertPersisted waits until the client's persisted state matches want.
// The client rewrites its store after initial render, so this observes the
// state it actually loaded.
func (v *Verifier) AssertPersisted(ctx context.Context, seeder *Seeder, want *state.AppState) (*state.AppState, error) {
	var got *state.AppState
	var diffs []string
	err := v.Eventually(ctx, "persisted state matches seed", func(ctx context.Context) (bool, error) {
		st, found, err := seeder.ReadBack(ctx)
		if err != nil || !found {
			return false, err
		}
		got = st
		diffs = state.Diff(want, st)
		return len(diffs) == 0, nil
	})
	if err != nil && len(diffs) > 0 {
		return got, fmt.Errorf("%w: %d difference(s): %v", ErrAssertionMismatch, len(diffs), diffs)
	}
	return got, err
}

// Eventually polls cond until it holds within the assertion timeout.
func (v *Verifier) Eventually(ctx context.Context, desc string, cond Condition) error {
	start := time.Now()
	var lastErr error
	met, err := waitUntil(ctx, v.Timeout, v.Interval, tolerant(cond, &lastErr))
	if err != nil {
		return err
	}
	if !met {
		if lastErr != nil {
			return fmt.Errorf("%w: %s not met within %v (last probe error: %v)", ErrAssertionTimeout, desc, v.Timeout, lastErr)
		}
		return fmt.Errorf("%w: %s not met within %v", ErrAssertionTimeout, desc, v.Timeout)
	}
	v.Logger.Info("Assertion passed", "check", desc, "waited", time.Since(start))
	return nil
}

// Never polls cond for the absence window and fails the moment it holds.
func (v *Verifier) Never(ctx context.Context, desc string, cond Condition) error {
	var lastErr error
	met, err := waitUntil(ctx, v.AbsenceWindow, v.Interval, tolerant(cond, &lastErr))
	if err != nil {
		return err
	}
	if met {
		return fmt.Errorf("%w: %s", ErrAssertionMismatch, desc)
	}
	v.Logger.Info("Absence held", "check", desc, "window", v.AbsenceWindow)
	return nil
}

func sameLabels(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	a := slices.Clone(got)
	b := slices.Clone(want)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
