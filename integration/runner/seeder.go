package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/perec-verify/pkg/state"
	"github.com/jwebster45206/perec-verify/pkg/storage"
)

// Seeder writes a known AppState into the client's store. A seed only takes
// effect if it lands before the client reads the key, so callers must reload
// immediately afterwards; the controller does this as SEEDED -> RELOADED.
type Seeder struct {
	Store  storage.Store
	Key    string
	Logger *slog.Logger
}

func NewSeeder(store storage.Store, logger *slog.Logger) *Seeder {
	return &Seeder{
		Store:  store,
		Key:    state.StorageKey,
		Logger: logger,
	}
}

// Seed clears the store and writes s under the versioned key. Serialization
// problems are returned as ErrConstruction before the store is touched.
func (s *Seeder) Seed(ctx context.Context, st *state.AppState) error {
	blob, err := st.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConstruction, err)
	}

	if err := s.Store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	if err := s.Store.Write(ctx, s.Key, blob); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Key, err)
	}

	s.Logger.Info("Seeded app state",
		"key", s.Key,
		"bytes", len(blob),
		"rooms", len(st.VisitedRooms),
		"inventory", len(st.Inventory))
	return nil
}

// ReadBack decodes what the client currently has persisted under the key.
// found is false when the key is absent.
func (s *Seeder) ReadBack(ctx context.Context) (st *state.AppState, found bool, err error) {
	blob, found, err := s.Store.Read(ctx, s.Key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", s.Key, err)
	}
	if !found {
		return nil, false, nil
	}
	st, err = state.Decode(blob)
	if err != nil {
		return nil, true, err
	}
	return st, true, nil
}
