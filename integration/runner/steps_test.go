package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/perec-verify/pkg/state"
	"github.com/jwebster45206/perec-verify/pkg/storage"
)

func TestWaitUntil(t *testing.T) {
	t.Run("probes immediately", func(t *testing.T) {
		calls := 0
		met, err := waitUntil(context.Background(), time.Second, time.Hour, func(ctx context.Context) (bool, error) {
			calls++
			return true, nil
		})
		assert.NoError(t, err)
		assert.True(t, met)
		assert.Equal(t, 1, calls)
	})

	t.Run("met after a few polls", func(t *testing.T) {
		calls := 0
		met, err := waitUntil(context.Background(), time.Second, time.Millisecond, func(ctx context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})
		assert.NoError(t, err)
		assert.True(t, met)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out without error", func(t *testing.T) {
		start := time.Now()
		met, err := waitUntil(context.Background(), 20*time.Millisecond, time.Millisecond, func(ctx context.Context) (bool, error) {
			return false, nil
		})
		assert.NoError(t, err)
		assert.False(t, met)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("probe error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		met, err := waitUntil(context.Background(), time.Second, time.Millisecond, func(ctx context.Context) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, met)
	})

	t.Run("hung probe is bounded by the window", func(t *testing.T) {
		met, err := waitUntil(context.Background(), 20*time.Millisecond, time.Millisecond, func(ctx context.Context) (bool, error) {
			<-ctx.Done()
			return false, ctx.Err()
		})
		assert.NoError(t, err)
		assert.False(t, met)
	})

	t.Run("caller cancellation is an error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := waitUntil(ctx, time.Second, time.Millisecond, func(ctx context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTolerant(t *testing.T) {
	var lastErr error
	calls := 0
	probe := tolerant(func(ctx context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, fmt.Errorf("probe %d failed", calls)
		}
		return true, nil
	}, &lastErr)

	met, err := waitUntil(context.Background(), time.Second, time.Millisecond, probe)
	assert.NoError(t, err)
	assert.True(t, met)
	assert.EqualError(t, lastErr, "probe 2 failed")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		want       Cause
		behavioral bool
	}{
		{fmt.Errorf("wrapped: %w", ErrNavigationTimeout), CauseNavigationTimeout, false},
		{fmt.Errorf("wrapped: %w", ErrAssertionTimeout), CauseAssertionTimeout, true},
		{ErrAssertionMismatch, CauseAssertionMismatch, true},
		{fmt.Errorf("%w: bad seed", ErrConstruction), CauseConstruction, false},
		{ErrElementNotFound, CauseElementNotFound, true},
		{context.Canceled, CauseCanceled, false},
		{errors.New("websocket: close 1006"), CauseBrowser, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.behavioral, got.Behavioral())
		})
	}
}

func TestStepError(t *testing.T) {
	err := &StepError{State: StateReloaded, Step: StateRoomSelected, Cause: CauseElementNotFound, Err: ErrElementNotFound}
	assert.Equal(t, "RELOADED -> ROOM_SELECTED failed (element_not_found): element not found", err.Error())
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()

	t.Run("clears then writes the versioned key", func(t *testing.T) {
		store := storage.NewMockStore()
		store.Set("stale", "1")
		seeder := NewSeeder(store, testLogger())

		st := seedWith(bartlebooth(state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction}))
		assert.NoError(t, seeder.Seed(ctx, st))

		assert.Equal(t, 1, store.ClearCalls)
		if assert.Len(t, store.WriteCalls, 1) {
			assert.Equal(t, "perec_app_state_v2", store.WriteCalls[0].Key)
		}
		_, found, _ := store.Read(ctx, "stale")
		assert.False(t, found, "seeding starts from an empty store")

		got, found, err := seeder.ReadBack(ctx)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, state.Diff(st, got))
	})

	t.Run("construction error leaves store untouched", func(t *testing.T) {
		store := storage.NewMockStore()
		seeder := NewSeeder(store, testLogger())

		st := state.NewAppState()
		st.Inventory = []string{"\xff"}
		err := seeder.Seed(ctx, st)

		assert.ErrorIs(t, err, ErrConstruction)
		assert.Zero(t, store.ClearCalls)
		assert.Empty(t, store.WriteCalls)
	})

	t.Run("read back of missing key", func(t *testing.T) {
		seeder := NewSeeder(storage.NewMockStore(), testLogger())
		got, found, err := seeder.ReadBack(ctx)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("clear failure", func(t *testing.T) {
		store := storage.NewMockStore()
		store.ClearFunc = func(ctx context.Context) error { return errors.New("SecurityError") }
		err := NewSeeder(store, testLogger()).Seed(ctx, state.NewAppState())
		assert.ErrorContains(t, err, "failed to clear store")
		assert.Empty(t, store.WriteCalls)
	})
}

func TestDriver_FirstClickWins(t *testing.T) {
	page := &MockPage{}
	attempts := 0
	page.SelectRoomFunc = func(ctx context.Context, name string) error {
		attempts++
		if attempts < 3 {
			return ErrElementNotFound // not rendered yet
		}
		return nil
	}
	d := &Driver{Page: page, Timeout: time.Second, Interval: time.Millisecond, Logger: testLogger()}

	assert.NoError(t, d.SelectRoom(context.Background(), "BARTLEBOOTH"))
	assert.Equal(t, []string{"BARTLEBOOTH", "BARTLEBOOTH", "BARTLEBOOTH"}, page.SelectRoomCalls)
}

func TestDriver_Errors(t *testing.T) {
	t.Run("never found", func(t *testing.T) {
		page := &MockPage{TriggerInteractionFunc: func(ctx context.Context, label string) error { return ErrElementNotFound }}
		d := &Driver{Page: page, Timeout: 20 * time.Millisecond, Interval: time.Millisecond, Logger: testLogger()}

		err := d.TriggerInteraction(context.Background(), "Examine Puzzle")
		assert.ErrorIs(t, err, ErrElementNotFound)
		assert.ErrorContains(t, err, `no interaction matching "Examine Puzzle"`)
	})

	t.Run("click error is not retried", func(t *testing.T) {
		page := &MockPage{ToggleInventoryFunc: func(ctx context.Context) error { return errors.New("node detached") }}
		d := &Driver{Page: page, Timeout: time.Second, Interval: time.Millisecond, Logger: testLogger()}

		err := d.ToggleInventory(context.Background())
		assert.ErrorContains(t, err, "node detached")
		assert.Equal(t, 1, page.ToggleInventoryCalls)
	})
}

func newTestVerifier(page Page) *Verifier {
	return &Verifier{
		Page:          page,
		Timeout:       50 * time.Millisecond,
		Interval:      time.Millisecond,
		AbsenceWindow: 20 * time.Millisecond,
		Logger:        testLogger(),
	}
}

func TestVerifier_AssertVisible(t *testing.T) {
	t.Run("becomes visible", func(t *testing.T) {
		calls := 0
		page := &MockPage{TextVisibleFunc: func(ctx context.Context, fragment string) (bool, error) {
			calls++
			return calls > 2, nil
		}}
		assert.NoError(t, newTestVerifier(page).AssertVisible(context.Background(), "It is a wooden puzzle"))
	})

	t.Run("timeout is an assertion failure", func(t *testing.T) {
		page := &MockPage{TextVisibleFunc: func(ctx context.Context, fragment string) (bool, error) {
			return false, errors.New("Cannot find context with specified id")
		}}
		err := newTestVerifier(page).AssertVisible(context.Background(), "It is a wooden puzzle")
		assert.ErrorIs(t, err, ErrAssertionTimeout)
		assert.ErrorContains(t, err, "last probe error: Cannot find context")
	})
}

func TestVerifier_AssertAbsent(t *testing.T) {
	t.Run("stays absent", func(t *testing.T) {
		page := &MockPage{TextVisibleFunc: func(ctx context.Context, fragment string) (bool, error) { return false, nil }}
		start := time.Now()
		assert.NoError(t, newTestVerifier(page).AssertAbsent(context.Background(), callResponse))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "absence must hold for the whole window")
	})

	t.Run("appears inside the window", func(t *testing.T) {
		calls := 0
		page := &MockPage{TextVisibleFunc: func(ctx context.Context, fragment string) (bool, error) {
			calls++
			return calls == 3, nil
		}}
		err := newTestVerifier(page).AssertAbsent(context.Background(), callResponse)
		assert.ErrorIs(t, err, ErrAssertionMismatch)
	})
}

func TestVerifier_AssertActions(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		present bool
		want    []string
		wantErr string
	}{
		{name: "exact", labels: []string{"Examine Puzzle", "Call Valene"}, present: true, want: []string{"Examine Puzzle", "Call Valene"}},
		{name: "order ignored", labels: []string{"Call Valene", "Examine Puzzle"}, present: true, want: []string{"Examine Puzzle", "Call Valene"}},
		{name: "extra label", labels: []string{"Examine Puzzle", "Leave"}, present: true, want: []string{"Examine Puzzle"}, wantErr: `last seen ["Examine Puzzle" "Leave"]`},
		{name: "section missing", present: false, want: []string{"Examine Puzzle"}, wantErr: "section never rendered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &MockPage{AvailableActionsFunc: func(ctx context.Context) ([]string, bool, error) {
				return tt.labels, tt.present, nil
			}}
			err := newTestVerifier(page).AssertActions(context.Background(), tt.want)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrAssertionTimeout)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestVerifier_AssertNoActions(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		present bool
		wantErr bool
	}{
		{name: "section absent", present: false},
		{name: "section empty", present: true},
		{name: "section lists actions", labels: []string{"Examine Puzzle"}, present: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &MockPage{AvailableActionsFunc: func(ctx context.Context) ([]string, bool, error) {
				return tt.labels, tt.present, nil
			}}
			err := newTestVerifier(page).AssertNoActions(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAssertionMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifier_AssertPersisted(t *testing.T) {
	ctx := context.Background()
	want := seedWith(altamont())

	t.Run("matches", func(t *testing.T) {
		store := storage.NewMockStore()
		seeder := NewSeeder(store, testLogger())
		assert.NoError(t, seeder.Seed(ctx, want))

		got, err := newTestVerifier(&MockPage{}).AssertPersisted(ctx, seeder, want)
		assert.NoError(t, err)
		assert.Empty(t, state.Diff(want, got))
	})

	t.Run("reports differences", func(t *testing.T) {
		store := storage.NewMockStore()
		seeder := NewSeeder(store, testLogger())
		other := seedWith(altamont())
		other.PuzzlePiecesCollected = 4
		blob, _ := other.Encode()
		store.Set(state.StorageKey, blob)

		_, err := newTestVerifier(&MockPage{}).AssertPersisted(ctx, seeder, want)
		assert.ErrorIs(t, err, ErrAssertionMismatch)
		assert.ErrorContains(t, err, "puzzlePiecesCollected: want 0, got 4")
	})

	t.Run("never persisted", func(t *testing.T) {
		seeder := NewSeeder(storage.NewMockStore(), testLogger())
		_, err := newTestVerifier(&MockPage{}).AssertPersisted(ctx, seeder, want)
		assert.ErrorIs(t, err, ErrAssertionTimeout)
	})
}

func TestNavigator(t *testing.T) {
	t.Run("load waits for landmark", func(t *testing.T) {
		calls := 0
		page := &MockPage{LandmarkVisibleFunc: func(ctx context.Context) (bool, error) {
			calls++
			return calls >= 4, nil
		}}
		n := &Navigator{Page: page, BaseURL: "http://localhost:3001", Timeout: time.Second, Interval: time.Millisecond, Logger: testLogger()}

		assert.NoError(t, n.Load(context.Background()))
		assert.Equal(t, []string{"http://localhost:3001"}, page.NavigateCalls)
		assert.Equal(t, 4, page.LandmarkCalls)
	})

	t.Run("reload timeout", func(t *testing.T) {
		page := &MockPage{LandmarkVisibleFunc: func(ctx context.Context) (bool, error) { return false, nil }}
		n := &Navigator{Page: page, Timeout: 20 * time.Millisecond, Interval: time.Millisecond, Logger: testLogger()}

		err := n.Reload(context.Background())
		assert.ErrorIs(t, err, ErrNavigationTimeout)
		assert.Equal(t, 1, page.ReloadCalls)
	})
}

func TestCapture_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "verification")
	page := &MockPage{CaptureFullPageFunc: func(ctx context.Context) ([]byte, error) { return []byte("first"), nil }}
	c := &Capture{Page: page, Dir: dir, Logger: testLogger()}

	path, err := c.Save(context.Background(), "interactions_test.png")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "interactions_test.png"), path)

	page.CaptureFullPageFunc = func(ctx context.Context) ([]byte, error) { return []byte("second"), nil }
	_, err = c.Save(context.Background(), "interactions_test.png")
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "second", string(data), "snapshots are overwritten")
}
