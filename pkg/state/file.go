package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// DecodeStrict parses a seed fixture, rejecting fields the client does not
// know and trailing data, then validates it.
func DecodeStrict(data []byte) (*AppState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s AppState
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("strict decode failed: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("strict decode failed: trailing data after state object")
	}
	if s.VisitedRooms == nil {
		s.VisitedRooms = make(map[string]RoomRecord)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and strictly decodes a seed fixture.
func LoadFile(path string) (*AppState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	s, err := DecodeStrict(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
