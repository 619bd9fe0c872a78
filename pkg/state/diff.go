package state

import (
	"fmt"
	"slices"
)

// Diff lists the differences between an expected and an observed state.
// An empty result means the observed state preserves every room (text,
// items, mood and interactions in order), the inventory order, the
// progress counters and the story bible.
func Diff(want, got *AppState) []string {
	var diffs []string
	if want == nil || got == nil {
		if want != got {
			diffs = append(diffs, fmt.Sprintf("state presence differs: want %t, got %t", want != nil, got != nil))
		}
		return diffs
	}

	for _, id := range want.RoomIDs() {
		w := want.VisitedRooms[id]
		g, ok := got.VisitedRooms[id]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("room %s: missing", id))
			continue
		}
		diffs = append(diffs, diffRoom(id, w, g)...)
	}
	for _, id := range got.RoomIDs() {
		if _, ok := want.VisitedRooms[id]; !ok {
			diffs = append(diffs, fmt.Sprintf("room %s: unexpected", id))
		}
	}

	if !slices.Equal(want.Inventory, got.Inventory) {
		diffs = append(diffs, fmt.Sprintf("inventory: want %q, got %q", want.Inventory, got.Inventory))
	}
	if want.PuzzlePiecesCollected != got.PuzzlePiecesCollected {
		diffs = append(diffs, fmt.Sprintf("puzzlePiecesCollected: want %d, got %d", want.PuzzlePiecesCollected, got.PuzzlePiecesCollected))
	}
	if want.LastMoveWasKnightMove != got.LastMoveWasKnightMove {
		diffs = append(diffs, fmt.Sprintf("lastMoveWasKnightMove: want %t, got %t", want.LastMoveWasKnightMove, got.LastMoveWasKnightMove))
	}
	diffs = append(diffs, diffBible(want.StoryBible, got.StoryBible)...)
	return diffs
}

func diffBible(w, g StoryBible) []string {
	var diffs []string
	if w.Title != g.Title {
		diffs = append(diffs, fmt.Sprintf("storyBible.title: want %q, got %q", w.Title, g.Title))
	}
	if !slices.Equal(w.Themes, g.Themes) {
		diffs = append(diffs, fmt.Sprintf("storyBible.themes: want %q, got %q", w.Themes, g.Themes))
	}
	if !slices.Equal(w.KeyCharacters, g.KeyCharacters) {
		diffs = append(diffs, fmt.Sprintf("storyBible.key_characters: want %+v, got %+v", w.KeyCharacters, g.KeyCharacters))
	}
	if !slices.Equal(w.PlotThreads, g.PlotThreads) {
		diffs = append(diffs, fmt.Sprintf("storyBible.plot_threads: want %q, got %q", w.PlotThreads, g.PlotThreads))
	}
	if w.Mystery != g.Mystery {
		diffs = append(diffs, fmt.Sprintf("storyBible.mystery: want %q, got %q", w.Mystery, g.Mystery))
	}
	return diffs
}

func diffRoom(id string, w, g RoomRecord) []string {
	var diffs []string
	if w.Text != g.Text {
		diffs = append(diffs, fmt.Sprintf("room %s text: want %q, got %q", id, w.Text, g.Text))
	}
	if !slices.Equal(w.Items, g.Items) {
		diffs = append(diffs, fmt.Sprintf("room %s items: want %q, got %q", id, w.Items, g.Items))
	}
	if w.Mood != g.Mood {
		diffs = append(diffs, fmt.Sprintf("room %s mood: want %q, got %q", id, w.Mood, g.Mood))
	}
	if len(w.AvailableInteractions) != len(g.AvailableInteractions) {
		diffs = append(diffs, fmt.Sprintf("room %s interactions: want %d, got %d", id, len(w.AvailableInteractions), len(g.AvailableInteractions)))
		return diffs
	}
	for i := range w.AvailableInteractions {
		if w.AvailableInteractions[i] != g.AvailableInteractions[i] {
			diffs = append(diffs, fmt.Sprintf("room %s interaction %d: want %+v, got %+v", id, i, w.AvailableInteractions[i], g.AvailableInteractions[i]))
		}
	}
	return diffs
}
