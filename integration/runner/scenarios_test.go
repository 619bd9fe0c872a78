package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/perec-verify/pkg/state"
)

func TestCatalogue(t *testing.T) {
	seen := make(map[string]bool)
	artifacts := make(map[string]bool)

	for _, sc := range Catalogue() {
		t.Run(sc.Name, func(t *testing.T) {
			assert.False(t, seen[sc.Name], "duplicate scenario name")
			assert.False(t, artifacts[sc.Artifact], "duplicate artifact name")
			seen[sc.Name] = true
			artifacts[sc.Artifact] = true

			assert.NotEmpty(t, sc.Description)
			assert.NotEmpty(t, sc.Artifact)
			if assert.NotNil(t, sc.Seed) {
				seed := sc.Seed()
				assert.NoError(t, seed.Validate())
				assert.NotSame(t, seed, sc.Seed(), "every run must get a fresh state")
			}
		})
	}

	assert.Equal(t, []string{
		"activation", "empty_interactions", "idempotence", "interactions",
		"inventory", "round_trip", "selection",
	}, Names())
}

func TestCatalogue_ReferenceArtifacts(t *testing.T) {
	a, ok := Lookup("interactions")
	assert.True(t, ok)
	assert.Equal(t, "interactions_test.png", a.Artifact)

	seed := a.Seed()
	room := seed.VisitedRooms["3-1"]
	assert.Equal(t, []string{"Examine Puzzle"}, room.Labels())
	opt, _ := room.Option("Examine Puzzle")
	assert.Equal(t, "It is a wooden puzzle of a port scene. One piece is missing.", opt.Response)
	assert.Equal(t, state.InteractionAction, opt.Type)

	b, ok := Lookup("inventory")
	assert.True(t, ok)
	assert.Equal(t, "inventory_expanded.png", b.Artifact)
	assert.Empty(t, b.Seed().Inventory)
}

func TestPick(t *testing.T) {
	all, err := Pick()
	assert.NoError(t, err)
	assert.Len(t, all, len(Catalogue()))

	picked, err := Pick("inventory", "interactions")
	assert.NoError(t, err)
	if assert.Len(t, picked, 2) {
		assert.Equal(t, "inventory", picked[0].Name)
		assert.Equal(t, "interactions", picked[1].Name)
	}

	_, err = Pick("nope")
	assert.ErrorContains(t, err, `unknown scenario "nope"`)
}

func TestScenarios_PassAgainstWellBehavedClient(t *testing.T) {
	for _, sc := range Catalogue() {
		t.Run(sc.Name, func(t *testing.T) {
			dir := t.TempDir()
			rig := newFakeRig(dir)

			res := rig.controller.Run(context.Background(), sc)

			assert.True(t, res.Passed(), "run failed: %v", res.Err())
			assert.Equal(t, StateDone, res.State)
			assert.Equal(t, 1, rig.session.CloseCalls)
			assert.Equal(t, filepath.Join(dir, sc.Artifact), res.Artifact)
			_, err := os.Stat(res.Artifact)
			assert.NoError(t, err)
		})
	}
}

func TestScenarios_DetectMisbehavingClient(t *testing.T) {
	tests := []struct {
		name      string
		scenario  string
		breakIt   func(f *fakeClient)
		wantState State
		wantCause Cause
	}{
		{
			name:      "activation shows every response",
			scenario:  "activation",
			breakIt:   func(f *fakeClient) { f.showAllResponses = true },
			wantState: StateActionTriggered,
			wantCause: CauseAssertionMismatch,
		},
		{
			name:      "empty room renders stale actions",
			scenario:  "empty_interactions",
			breakIt:   func(f *fakeClient) { f.staleActions = []string{"Examine Puzzle"} },
			wantState: StateActionTriggered,
			wantCause: CauseAssertionMismatch,
		},
		{
			name:      "reload mutates persisted state",
			scenario:  "idempotence",
			breakIt:   func(f *fakeClient) { f.bumpOnReload = true },
			wantState: StateReloaded,
			wantCause: CauseAssertionMismatch,
		},
		{
			name:      "client drops a seeded room",
			scenario:  "round_trip",
			breakIt:   func(f *fakeClient) { f.dropRoom = "2-1" },
			wantState: StateReloaded,
			wantCause: CauseAssertionMismatch,
		},
		{
			name:      "selection lists an extra label",
			scenario:  "selection",
			breakIt:   func(f *fakeClient) { f.staleActions = []string{"Leave"} },
			wantState: StateReloaded,
			wantCause: CauseAssertionTimeout,
		},
		{
			name:      "seeded room lost before selection",
			scenario:  "interactions",
			breakIt:   func(f *fakeClient) { f.dropRoom = "3-1" },
			wantState: StateReloaded,
			wantCause: CauseAssertionTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, ok := Lookup(tt.scenario)
			assert.True(t, ok)

			rig := newFakeRig(t.TempDir())
			tt.breakIt(rig.client)

			res := rig.controller.Run(context.Background(), sc)

			assert.False(t, res.Passed())
			assert.Equal(t, StateFailed, res.State)
			if assert.NotNil(t, res.Failure) {
				assert.Equal(t, tt.wantState, res.Failure.State)
				assert.Equal(t, tt.wantCause, res.Failure.Cause)
			}
			assert.Equal(t, 1, rig.session.CloseCalls)
			assert.Empty(t, res.Artifact, "failed runs do not capture")
		})
	}
}

func TestScenarios_InventoryAlreadyExpanded(t *testing.T) {
	sc, _ := Lookup("inventory")
	rig := newFakeRig(t.TempDir())
	rig.session.MockPage.IsInventoryExpandedFunc = func(ctx context.Context) (bool, error) {
		return true, nil
	}

	res := rig.controller.Run(context.Background(), sc)

	if assert.NotNil(t, res.Failure) {
		assert.Equal(t, StateReloaded, res.Failure.State)
		assert.Equal(t, CauseAssertionMismatch, res.Failure.Cause)
		assert.ErrorContains(t, res.Failure, "inventory expanded before activation")
	}
}

func TestScenarios_RoundTripToleratesClientOwnedMoveFlag(t *testing.T) {
	sc, _ := Lookup("round_trip")
	assert.True(t, sc.Seed().LastMoveWasKnightMove, "seed exercises the flag")

	rig := newFakeRig(t.TempDir())
	res := rig.controller.Run(context.Background(), sc)
	assert.True(t, res.Passed(), "run failed: %v", res.Err())

	// The client cleared the flag on the first selection and saved it.
	blob, ok, err := rig.session.MockStore.Read(context.Background(), state.StorageKey)
	assert.NoError(t, err)
	if assert.True(t, ok) {
		st, err := state.Decode(blob)
		assert.NoError(t, err)
		assert.False(t, st.LastMoveWasKnightMove)
	}
}

func TestKnightMove(t *testing.T) {
	assert.True(t, knightMove("3-1", "1-2"))
	assert.True(t, knightMove("3-1", "4-3"))
	assert.False(t, knightMove("3-1", "2-1"))
	assert.False(t, knightMove("3-1", "study"))
}
