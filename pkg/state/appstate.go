package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// StorageKey is the localStorage key the narrative client reads on startup.
const StorageKey = "perec_app_state_v2"

// ErrInvalidState is returned when an AppState cannot survive a lossless
// serialize -> store -> client-deserialize round trip.
var ErrInvalidState = errors.New("invalid app state")

// InteractionType is the kind of an interaction option.
type InteractionType string

const (
	InteractionAction   InteractionType = "action"
	InteractionDialogue InteractionType = "dialogue"
)

// InteractionOption is a single clickable choice rendered under "Available Actions".
type InteractionOption struct {
	Label    string          `json:"label"`    // button text, used as the activation key
	Response string          `json:"response"` // text shown after activation
	Type     InteractionType `json:"type"`
}

// RoomRecord is the cached narrative content for one visited room.
type RoomRecord struct {
	Text                  string              `json:"text"`
	Items                 []string            `json:"items"`
	Mood                  string              `json:"mood"`
	AvailableInteractions []InteractionOption `json:"available_interactions"`
}

// Labels returns the option labels in stored order.
func (r RoomRecord) Labels() []string {
	labels := make([]string, 0, len(r.AvailableInteractions))
	for _, opt := range r.AvailableInteractions {
		labels = append(labels, opt.Label)
	}
	return labels
}

// Option looks up an interaction by label.
func (r RoomRecord) Option(label string) (InteractionOption, bool) {
	for _, opt := range r.AvailableInteractions {
		if opt.Label == label {
			return opt, true
		}
	}
	return InteractionOption{}, false
}

// Character is an entry in the story bible's cast list.
type Character struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Secret string `json:"secret"`
}

// StoryBible is the generated narrative frame for a playthrough.
type StoryBible struct {
	Title         string      `json:"title"`
	Themes        []string    `json:"themes"`
	KeyCharacters []Character `json:"key_characters"`
	PlotThreads   []string    `json:"plot_threads"`
	Mystery       string      `json:"mystery"`
}

// AppState is the full persisted snapshot of game progress.
type AppState struct {
	VisitedRooms          map[string]RoomRecord `json:"visitedRooms"`
	Inventory             []string              `json:"inventory"`
	PuzzlePiecesCollected int                   `json:"puzzlePiecesCollected"`
	LastMoveWasKnightMove bool                  `json:"lastMoveWasKnightMove"`
	StoryBible            StoryBible            `json:"storyBible"`
}

// NewAppState returns an empty state with every collection allocated.
func NewAppState() *AppState {
	return &AppState{
		VisitedRooms: make(map[string]RoomRecord),
		Inventory:    make([]string, 0),
		StoryBible: StoryBible{
			Themes:        make([]string, 0),
			KeyCharacters: make([]Character, 0),
			PlotThreads:   make([]string, 0),
		},
	}
}

// RoomIDs returns the visited room IDs sorted for stable iteration.
func (s *AppState) RoomIDs() []string {
	ids := make([]string, 0, len(s.VisitedRooms))
	for id := range s.VisitedRooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate reports the first reason the state would not round-trip intact.
func (s *AppState) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: state is nil", ErrInvalidState)
	}
	if s.PuzzlePiecesCollected < 0 {
		return fmt.Errorf("%w: puzzlePiecesCollected is negative (%d)", ErrInvalidState, s.PuzzlePiecesCollected)
	}

	for _, id := range s.RoomIDs() {
		room := s.VisitedRooms[id]
		if id == "" {
			return fmt.Errorf("%w: empty room identifier", ErrInvalidState)
		}
		if err := checkStrings("room "+id, id, room.Text, room.Mood); err != nil {
			return err
		}
		if err := checkStrings("room "+id+" items", room.Items...); err != nil {
			return err
		}

		seen := make(map[string]bool, len(room.AvailableInteractions))
		for i, opt := range room.AvailableInteractions {
			where := fmt.Sprintf("room %s interaction %d", id, i)
			if opt.Label == "" {
				return fmt.Errorf("%w: %s has an empty label", ErrInvalidState, where)
			}
			if seen[opt.Label] {
				return fmt.Errorf("%w: %s duplicates label %q", ErrInvalidState, where, opt.Label)
			}
			seen[opt.Label] = true
			if opt.Type != InteractionAction && opt.Type != InteractionDialogue {
				return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidState, where, opt.Type)
			}
			if err := checkStrings(where, opt.Label, opt.Response); err != nil {
				return err
			}
		}
	}

	if err := checkStrings("inventory", s.Inventory...); err != nil {
		return err
	}

	bible := s.StoryBible
	if err := checkStrings("storyBible", bible.Title, bible.Mystery); err != nil {
		return err
	}
	if err := checkStrings("storyBible themes", bible.Themes...); err != nil {
		return err
	}
	if err := checkStrings("storyBible plot_threads", bible.PlotThreads...); err != nil {
		return err
	}
	for _, c := range bible.KeyCharacters {
		if err := checkStrings("storyBible key_characters", c.Name, c.Role, c.Secret); err != nil {
			return err
		}
	}
	return nil
}

// json.Marshal silently replaces invalid UTF-8, which would make the blob
// differ from the value that was seeded.
func checkStrings(where string, values ...string) error {
	for _, v := range values {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %s contains invalid UTF-8 %q", ErrInvalidState, where, v)
		}
	}
	return nil
}

// Normalized returns a copy where every nil collection is replaced by an
// empty one, so the client never receives null where it expects an array.
func (s *AppState) Normalized() *AppState {
	out := &AppState{
		VisitedRooms:          make(map[string]RoomRecord, len(s.VisitedRooms)),
		Inventory:             nonNil(s.Inventory),
		PuzzlePiecesCollected: s.PuzzlePiecesCollected,
		LastMoveWasKnightMove: s.LastMoveWasKnightMove,
		StoryBible: StoryBible{
			Title:         s.StoryBible.Title,
			Themes:        nonNil(s.StoryBible.Themes),
			KeyCharacters: nonNil(s.StoryBible.KeyCharacters),
			PlotThreads:   nonNil(s.StoryBible.PlotThreads),
			Mystery:       s.StoryBible.Mystery,
		},
	}
	for id, room := range s.VisitedRooms {
		out.VisitedRooms[id] = RoomRecord{
			Text:                  room.Text,
			Items:                 nonNil(room.Items),
			Mood:                  room.Mood,
			AvailableInteractions: nonNil(room.AvailableInteractions),
		}
	}
	return out
}

func nonNil[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Encode validates the state and serializes it into the text blob stored
// under StorageKey.
func (s *AppState) Encode() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// The client renders text verbatim; keep '<', '>' and '&' literal.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.Normalized()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses a blob read back from the client's store.
func Decode(blob string) (*AppState, error) {
	var s AppState
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return nil, fmt.Errorf("failed to decode app state: %w", err)
	}
	if s.VisitedRooms == nil {
		s.VisitedRooms = make(map[string]RoomRecord)
	}
	return &s, nil
}
