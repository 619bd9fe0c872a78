package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/jwebster45206/perec-verify/pkg/state"
)

// Fixture text shared by several scenarios.
const (
	examineLabel    = "Examine Puzzle"
	examineResponse = "It is a wooden puzzle of a port scene. One piece is missing."
	callLabel       = "Call Valene"
	callResponse    = "You call out, but only the echo answers."

	availableActions = "Available Actions"
	inventoryHeader  = "Inventory"
)

// fixtureRoom pairs a room id with the display name the map renders for it.
type fixtureRoom struct {
	ID     string
	Name   string
	Record state.RoomRecord
}

func testBible() state.StoryBible {
	return state.StoryBible{
		Title:         "Test Bible",
		Themes:        []string{"Exhaustion"},
		KeyCharacters: []state.Character{},
		PlotThreads:   []string{},
		Mystery:       "None",
	}
}

func seedWith(rooms ...fixtureRoom) *state.AppState {
	st := state.NewAppState()
	st.StoryBible = testBible()
	for _, r := range rooms {
		st.VisitedRooms[r.ID] = r.Record
	}
	return st
}

func bartlebooth(options ...state.InteractionOption) fixtureRoom {
	return fixtureRoom{
		ID:   "3-1",
		Name: "BARTLEBOOTH",
		Record: state.RoomRecord{
			Text:                  "BARTLEBOOTH'S STUDY. A heavy silence hangs here.",
			Items:                 []string{"Jigsaw Puzzle", "Magnifying Glass"},
			Mood:                  "Melancholic",
			AvailableInteractions: options,
		},
	}
}

func altamont() fixtureRoom {
	return fixtureRoom{
		ID:   "2-1",
		Name: "ALTAMONT",
		Record: state.RoomRecord{
			Text:  "The Altamont salon, prepared for a reception that never begins.",
			Items: []string{"Champagne Flute", "Guest List"},
			Mood:  "Expectant",
			AvailableInteractions: []state.InteractionOption{
				{Label: "Read Guest List", Response: "Every name on the list has been crossed out.", Type: state.InteractionAction},
			},
		},
	}
}

func moreau() fixtureRoom {
	return fixtureRoom{
		ID:   "1-1",
		Name: "MOREAU",
		Record: state.RoomRecord{
			Text:  "Madame Moreau's apartment, all lacquer and drawn curtains.",
			Items: []string{"Hardware Catalogue"},
			Mood:  "Severe",
			AvailableInteractions: []state.InteractionOption{
				{Label: "Open Catalogue", Response: "Pages of hinges, each one annotated in pencil.", Type: state.InteractionAction},
				{Label: "Greet Madame Moreau", Response: "She does not look up from her ledger.", Type: state.InteractionDialogue},
			},
		},
	}
}

func valene() fixtureRoom {
	return fixtureRoom{
		ID:   "7-7",
		Name: "VALÈNE",
		Record: state.RoomRecord{
			Text:  "A painter's attic room. An unfinished canvas shows the whole building.",
			Items: []string{"Canvas"},
			Mood:  "Wistful",
			AvailableInteractions: []state.InteractionOption{
				{Label: "Study Canvas", Response: "Every room is drawn, but the figures are missing.", Type: state.InteractionAction},
			},
		},
	}
}

func cinoc() fixtureRoom {
	return fixtureRoom{
		ID:   "6-1",
		Name: "CINOC",
		Record: state.RoomRecord{
			Text:                  "Cinoc's room is piled with dictionaries missing their pages.",
			Items:                 []string{},
			Mood:                  "Quiet",
			AvailableInteractions: []state.InteractionOption{},
		},
	}
}

// selectRoom clicks a fixture room and waits for exactly its labels.
func selectRoom(ctx context.Context, env *Env, room fixtureRoom) error {
	if err := env.Driver.SelectRoom(ctx, room.Name); err != nil {
		return err
	}
	if len(room.Record.AvailableInteractions) == 0 {
		return env.Verifier.AssertNoActions(ctx)
	}
	return env.Verifier.AssertActions(ctx, room.Record.Labels())
}

// Catalogue returns a fresh copy of every scenario, in run order.
func Catalogue() []Scenario {
	return []Scenario{
		interactionsScenario(),
		inventoryScenario(),
		roundTripScenario(),
		selectionScenario(),
		activationScenario(),
		idempotenceScenario(),
		emptyInteractionsScenario(),
	}
}

// Names lists the catalogued scenario names, sorted.
func Names() []string {
	var names []string
	for _, sc := range Catalogue() {
		names = append(names, sc.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range Catalogue() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Pick returns the named scenarios in the given order, or the whole
// catalogue when names is empty.
func Pick(names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		return Catalogue(), nil
	}
	picked := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (available: %v)", name, Names())
		}
		picked = append(picked, sc)
	}
	return picked, nil
}

func interactionsScenario() Scenario {
	return Scenario{
		Name:        "interactions",
		Description: "Seeded interaction in BARTLEBOOTH renders its response",
		Seed: func() *state.AppState {
			return seedWith(bartlebooth(
				state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction},
			))
		},
		Select: func(ctx context.Context, env *Env) error {
			if err := env.Driver.SelectRoom(ctx, "BARTLEBOOTH"); err != nil {
				return err
			}
			return env.Verifier.AssertVisible(ctx, availableActions)
		},
		Trigger: func(ctx context.Context, env *Env) error {
			return env.Driver.TriggerInteraction(ctx, examineLabel)
		},
		Verify: func(ctx context.Context, env *Env) error {
			return env.Verifier.AssertVisible(ctx, "It is a wooden puzzle")
		},
		Artifact: "interactions_test.png",
	}
}

func inventoryScenario() Scenario {
	expanded := func(env *Env) Condition {
		return func(ctx context.Context) (bool, error) {
			return env.Page.IsInventoryExpanded(ctx)
		}
	}
	return Scenario{
		Name:        "inventory",
		Description: "Inventory panel starts collapsed and expands on header activation",
		Seed: func() *state.AppState {
			return seedWith()
		},
		Select: func(ctx context.Context, env *Env) error {
			if err := env.Verifier.AssertVisible(ctx, inventoryHeader); err != nil {
				return err
			}
			return env.Verifier.Never(ctx, "inventory expanded before activation", expanded(env))
		},
		Trigger: func(ctx context.Context, env *Env) error {
			return env.Driver.ToggleInventory(ctx)
		},
		Verify: func(ctx context.Context, env *Env) error {
			return env.Verifier.Eventually(ctx, "inventory expanded", expanded(env))
		},
		Artifact: "inventory_expanded.png",
	}
}

func roundTripScenario() Scenario {
	rooms := []fixtureRoom{
		bartlebooth(
			state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction},
			state.InteractionOption{Label: callLabel, Response: callResponse, Type: state.InteractionDialogue},
		),
		altamont(),
		moreau(),
	}
	return Scenario{
		Name:        "round_trip",
		Description: "Every seeded room survives the reload with items, mood and interactions intact",
		Seed: func() *state.AppState {
			st := seedWith(rooms...)
			st.Inventory = []string{"Brass Key", "Torn Letter"}
			st.PuzzlePiecesCollected = 2
			st.LastMoveWasKnightMove = true
			return st
		},
		// The read-back happens before the first click: selecting a room is a
		// move, and the client rewrites lastMoveWasKnightMove on every move.
		Select: func(ctx context.Context, env *Env) error {
			if _, err := env.Verifier.AssertPersisted(ctx, env.Seeder, env.Seeded); err != nil {
				return err
			}
			return selectRoom(ctx, env, rooms[0])
		},
		Verify: func(ctx context.Context, env *Env) error {
			return env.Verifier.AssertVisible(ctx, "A heavy silence hangs here.")
		},
		Artifact: "round_trip.png",
	}
}

func selectionScenario() Scenario {
	rooms := []fixtureRoom{
		bartlebooth(
			state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction},
			state.InteractionOption{Label: callLabel, Response: callResponse, Type: state.InteractionDialogue},
		),
		altamont(),
		moreau(),
		valene(),
	}
	return Scenario{
		Name:        "selection",
		Description: "Selecting each room lists exactly its interaction labels",
		Seed: func() *state.AppState {
			return seedWith(rooms...)
		},
		Select: func(ctx context.Context, env *Env) error {
			for _, room := range rooms {
				if err := selectRoom(ctx, env, room); err != nil {
					return fmt.Errorf("room %s: %w", room.ID, err)
				}
			}
			return nil
		},
		Verify: func(ctx context.Context, env *Env) error {
			return env.Verifier.AssertVisible(ctx, availableActions)
		},
		Artifact: "selection.png",
	}
}

func activationScenario() Scenario {
	room := bartlebooth(
		state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction},
		state.InteractionOption{Label: callLabel, Response: callResponse, Type: state.InteractionDialogue},
	)
	return Scenario{
		Name:        "activation",
		Description: "Activating one option shows its response and no other",
		Seed: func() *state.AppState {
			return seedWith(room)
		},
		Select: func(ctx context.Context, env *Env) error {
			return selectRoom(ctx, env, room)
		},
		Trigger: func(ctx context.Context, env *Env) error {
			return env.Driver.TriggerInteraction(ctx, examineLabel)
		},
		Verify: func(ctx context.Context, env *Env) error {
			if err := env.Verifier.AssertVisible(ctx, examineResponse); err != nil {
				return err
			}
			return env.Verifier.AssertAbsent(ctx, callResponse)
		},
		Artifact: "activation.png",
	}
}

func idempotenceScenario() Scenario {
	rooms := []fixtureRoom{
		bartlebooth(
			state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction},
		),
		altamont(),
	}
	return Scenario{
		Name:        "idempotence",
		Description: "A second reload without reseeding leaves persisted state unchanged",
		Seed: func() *state.AppState {
			st := seedWith(rooms...)
			st.Inventory = []string{"Brass Key"}
			st.PuzzlePiecesCollected = 1
			return st
		},
		// Both reloads happen before any click, so only navigation can have
		// touched the persisted state.
		Select: func(ctx context.Context, env *Env) error {
			first, err := env.Verifier.AssertPersisted(ctx, env.Seeder, env.Seeded)
			if err != nil {
				return err
			}
			if err := env.Navigator.Reload(ctx); err != nil {
				return err
			}
			if _, err := env.Verifier.AssertPersisted(ctx, env.Seeder, first); err != nil {
				return fmt.Errorf("after second reload: %w", err)
			}
			return selectRoom(ctx, env, rooms[0])
		},
		Verify: func(ctx context.Context, env *Env) error {
			return env.Verifier.AssertVisible(ctx, "A heavy silence hangs here.")
		},
		Artifact: "idempotence.png",
	}
}

func emptyInteractionsScenario() Scenario {
	room := cinoc()
	return Scenario{
		Name:        "empty_interactions",
		Description: "A room without interactions renders no actions and no error",
		Seed: func() *state.AppState {
			return seedWith(room, bartlebooth(
				state.InteractionOption{Label: examineLabel, Response: examineResponse, Type: state.InteractionAction},
			))
		},
		Select: func(ctx context.Context, env *Env) error {
			if err := env.Driver.SelectRoom(ctx, room.Name); err != nil {
				return err
			}
			return env.Verifier.AssertVisible(ctx, "piled with dictionaries")
		},
		Verify: func(ctx context.Context, env *Env) error {
			return env.Verifier.AssertNoActions(ctx)
		},
		Artifact: "empty_interactions.png",
	}
}
