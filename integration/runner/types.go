package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/perec-verify/internal/config"
	"github.com/jwebster45206/perec-verify/pkg/state"
	"github.com/jwebster45206/perec-verify/pkg/storage"
)

// State is a RunController state. Runs move strictly forward through
// Sequence; FAILED is absorbing and reachable from any state.
type State string

const (
	StateInit            State = "INIT"
	StateNavigated       State = "NAVIGATED"
	StateSeeded          State = "SEEDED"
	StateReloaded        State = "RELOADED"
	StateRoomSelected    State = "ROOM_SELECTED"
	StateActionTriggered State = "ACTION_TRIGGERED"
	StateVerified        State = "VERIFIED"
	StateDone            State = "DONE"
	StateFailed          State = "FAILED"
)

// Sequence is the only path a successful run takes.
var Sequence = []State{
	StateInit,
	StateNavigated,
	StateSeeded,
	StateReloaded,
	StateRoomSelected,
	StateActionTriggered,
	StateVerified,
	StateDone,
}

// Page is the page object the harness drives. Implementations locate
// elements by visible text; when several match, the first in document order
// wins, so callers must pass label substrings that are unique on the page.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error

	// LandmarkVisible reports whether the top-level navigation is rendered.
	LandmarkVisible(ctx context.Context) (bool, error)
	// TextVisible reports whether fragment is currently visible.
	TextVisible(ctx context.Context, fragment string) (bool, error)

	// SelectRoom clicks the map cell whose text contains displayName.
	// Returns ErrElementNotFound when nothing matches.
	SelectRoom(ctx context.Context, displayName string) error
	// TriggerInteraction clicks the option button whose text contains label.
	// Returns ErrElementNotFound when nothing matches.
	TriggerInteraction(ctx context.Context, label string) error
	// AvailableActions lists the button labels of the "Available Actions"
	// section; present is false when the section is not rendered.
	AvailableActions(ctx context.Context) (labels []string, present bool, err error)

	// ToggleInventory activates the "Inventory" panel header.
	// Returns ErrElementNotFound when the header is missing.
	ToggleInventory(ctx context.Context) error
	IsInventoryExpanded(ctx context.Context) (bool, error)

	CaptureFullPage(ctx context.Context) ([]byte, error)
}

// Session is one browser with one page. Close must release every resource
// and is safe to call once on any exit path.
type Session interface {
	Page() Page
	Store() storage.Store
	Close() error
}

// Launcher opens sessions; the controller owns the session it receives.
type Launcher interface {
	Launch(ctx context.Context, logger *slog.Logger) (Session, error)
}

// Phase is one scenario step. It runs against the live page and returns
// a classified error (see Classify) on failure.
type Phase func(ctx context.Context, env *Env) error

// Scenario is a fixed script for the run controller.
// Nil phases pass straight through their state.
type Scenario struct {
	Name        string
	Description string

	// Seed builds a fresh state for every run.
	Seed func() *state.AppState

	Select  Phase // -> ROOM_SELECTED
	Trigger Phase // -> ACTION_TRIGGERED
	Verify  Phase // -> VERIFIED

	// Artifact is the snapshot file name, overwritten on every run.
	Artifact string
}

// Env is handed to every phase.
type Env struct {
	Page      Page
	Store     storage.Store
	Navigator *Navigator
	Driver    *Driver
	Verifier  *Verifier
	Seeder    *Seeder
	Logger    *slog.Logger

	// Seeded is the value written during SEEDED. Phases only read it.
	Seeded *state.AppState
}

// Transition records a single state change.
type Transition struct {
	From    State         `json:"from"`
	To      State         `json:"to"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"` // time spent reaching To
}

// Result is the outcome of one run.
type Result struct {
	RunID       uuid.UUID
	Scenario    string
	State       State
	Transitions []Transition
	Failure     *StepError
	CloseErr    error // session teardown error, reported separately
	Artifact    string
	StartedAt   time.Time
	Duration    time.Duration
}

// Passed is true only for runs that reached DONE and tore down cleanly.
func (r Result) Passed() bool {
	return r.Err() == nil && r.State == StateDone
}

// Err returns the run failure, or the teardown error of an otherwise
// successful run.
func (r Result) Err() error {
	if r.Failure != nil {
		return r.Failure
	}
	return r.CloseErr
}

// Timeouts bounds every wait in a run. There is no run-level deadline.
type Timeouts struct {
	Navigation    time.Duration
	Assertion     time.Duration
	Locate        time.Duration
	Poll          time.Duration
	AbsenceWindow time.Duration
}

// DefaultTimeouts mirrors the reference scripts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation:    10 * time.Second,
		Assertion:     5 * time.Second,
		Locate:        5 * time.Second,
		Poll:          100 * time.Millisecond,
		AbsenceWindow: 750 * time.Millisecond,
	}
}

// TimeoutsFromConfig takes every bound from the harness configuration.
func TimeoutsFromConfig(cfg *config.Config) Timeouts {
	return Timeouts{
		Navigation:    cfg.NavTimeout,
		Assertion:     cfg.AssertTimeout,
		Locate:        cfg.LocateTimeout,
		Poll:          cfg.PollInterval,
		AbsenceWindow: cfg.AbsenceWindow,
	}
}
