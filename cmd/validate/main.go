package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/perec-verify/internal/browser"
	"github.com/jwebster45206/perec-verify/pkg/state"
)

func main() {
	canonical := flag.Bool("canonical", false, "print the encoded value the seeder would write")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-canonical] <seed.json>...\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, filename := range flag.Args() {
		validator := &SeedValidator{}
		s, err := validator.validateFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is a valid seed (%d rooms, %d inventory items)\n", filename, len(s.VisitedRooms), len(s.Inventory))

		if *canonical {
			blob, err := s.Encode()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Encoding failed: %v\n", err)
				failed = true
				continue
			}
			fmt.Println(blob)
		}
	}

	if failed {
		os.Exit(1)
	}
}

// SeedValidator checks a seed fixture beyond what the state invariants
// enforce: naming conventions the harness and the client's map rely on.
type SeedValidator struct {
	errors []string
}

func (v *SeedValidator) validateFile(filename string) (*state.AppState, error) {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return nil, fmt.Errorf("seed file must have .json extension: %s", baseName)
	}
	if !isValidSeedFilename(strings.TrimSuffix(baseName, ".json")) {
		return nil, fmt.Errorf("seed filename '%s' must be lowercase snake_case (e.g., round_trip.json)", baseName)
	}

	s, err := state.LoadFile(filename)
	if err != nil {
		return nil, err
	}

	v.errors = nil
	v.validateState(s)

	if len(v.errors) > 0 {
		return nil, fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return s, nil
}

func (v *SeedValidator) validateState(s *state.AppState) {
	for _, id := range s.RoomIDs() {
		room := s.VisitedRooms[id]
		if !isValidRoomID(id) {
			v.addError(fmt.Sprintf("room ID '%s' should be a map cell like 3-1 (floor-position)", id))
		}
		if strings.TrimSpace(room.Text) == "" {
			v.addError(fmt.Sprintf("room %s has no text; the client would regenerate it", id))
		}
		for _, opt := range room.AvailableInteractions {
			if strings.TrimSpace(opt.Response) == "" {
				v.addError(fmt.Sprintf("room %s interaction '%s' has no response text to assert on", id, opt.Label))
			}
			if opt.Label != strings.TrimSpace(opt.Label) {
				v.addError(fmt.Sprintf("room %s interaction '%s' has surrounding whitespace", id, opt.Label))
			}
		}
		v.validateLabelOverlap(id, room)
	}

	if s.StoryBible.Title == "" {
		v.addError("storyBible.title is empty; the client treats the bible as missing and regenerates it")
	}
}

// Click targets are found with the same case-folded substring rule the
// runner uses, so a label contained in another label of the same room
// would be ambiguous.
func (v *SeedValidator) validateLabelOverlap(id string, room state.RoomRecord) {
	labels := room.Labels()
	for i, a := range labels {
		for j, b := range labels {
			if i != j && browser.Matches(b, a, browser.MatchContains) {
				v.addError(fmt.Sprintf("room %s label '%s' is a substring of '%s'", id, a, b))
			}
		}
	}
}

func (v *SeedValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validRoomIDRegex   = regexp.MustCompile(`^[0-9]+-[0-9]+$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidRoomID(id string) bool {
	return validRoomIDRegex.MatchString(id)
}

func isValidSeedFilename(name string) bool {
	// Allow 'x.' prefix for experimental seeds
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
