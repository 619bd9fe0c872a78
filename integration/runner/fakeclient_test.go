package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/perec-verify/pkg/state"
	"github.com/jwebster45206/perec-verify/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTimeouts() Timeouts {
	return Timeouts{
		Navigation:    200 * time.Millisecond,
		Assertion:     200 * time.Millisecond,
		Locate:        200 * time.Millisecond,
		Poll:          5 * time.Millisecond,
		AbsenceWindow: 30 * time.Millisecond,
	}
}

// mapNames is the subset of the building map used by the fixtures.
var mapNames = map[string]string{
	"1-1": "MOREAU",
	"2-1": "ALTAMONT",
	"3-1": "BARTLEBOOTH",
	"6-1": "CINOC",
	"7-7": "VALÈNE",
}

// fakeClient simulates the narrative client on top of a MockPage: it loads
// the store on every (re)load, re-persists what it loaded, and renders the
// selected room.
type fakeClient struct {
	mu    sync.Mutex
	store *storage.MockStore

	loaded        *state.AppState
	selected      string
	responses     []string
	inventoryOpen bool
	reloads       int

	// misbehaviours
	showAllResponses bool
	staleActions     []string
	bumpOnReload     bool // from the second reload on
	dropRoom         string
}

func newFakeClient(store *storage.MockStore) *fakeClient {
	return &fakeClient{store: store}
}

func (f *fakeClient) install(p *MockPage) {
	p.NavigateFunc = func(ctx context.Context, url string) error { f.load(false); return nil }
	p.ReloadFunc = func(ctx context.Context) error { f.load(true); return nil }
	p.TextVisibleFunc = func(ctx context.Context, fragment string) (bool, error) { return f.textVisible(fragment), nil }
	p.SelectRoomFunc = func(ctx context.Context, name string) error { return f.selectRoom(name) }
	p.TriggerInteractionFunc = func(ctx context.Context, label string) error { return f.trigger(label) }
	p.AvailableActionsFunc = func(ctx context.Context) ([]string, bool, error) {
		labels, ok := f.actions()
		return labels, ok, nil
	}
	p.ToggleInventoryFunc = func(ctx context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.inventoryOpen = !f.inventoryOpen
		return nil
	}
	p.IsInventoryExpandedFunc = func(ctx context.Context) (bool, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.inventoryOpen, nil
	}
}

func (f *fakeClient) load(reload bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if reload {
		f.reloads++
	}
	f.selected, f.responses, f.inventoryOpen = "", nil, false
	f.loaded = state.NewAppState()
	if blob, ok, _ := f.store.Read(context.Background(), state.StorageKey); ok {
		if st, err := state.Decode(blob); err == nil {
			f.loaded = st
		}
	}
	if f.dropRoom != "" {
		delete(f.loaded.VisitedRooms, f.dropRoom)
	}
	if f.bumpOnReload && f.reloads > 1 {
		f.loaded.PuzzlePiecesCollected++
	}
	if blob, err := f.loaded.Encode(); err == nil {
		f.store.Set(state.StorageKey, blob)
	}
}

func (f *fakeClient) room() (state.RoomRecord, bool) {
	if f.selected == "" || f.loaded == nil {
		return state.RoomRecord{}, false
	}
	r, ok := f.loaded.VisitedRooms[f.selected]
	return r, ok
}

func (f *fakeClient) textVisible(fragment string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.Contains("Inventory", fragment) {
		return true
	}
	room, ok := f.room()
	if ok && strings.Contains(room.Text, fragment) {
		return true
	}
	if fragment == availableActions && (len(room.AvailableInteractions) > 0 || len(f.staleActions) > 0) {
		return true
	}
	for _, r := range f.responses {
		if strings.Contains(r, fragment) {
			return true
		}
	}
	return false
}

func (f *fakeClient) selectRoom(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(mapNames))
	for id := range mapNames {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if strings.Contains(mapNames[id], name) {
			// Every move rewrites the knight flag; the first move has no
			// previous room and always clears it.
			if f.loaded != nil {
				f.loaded.LastMoveWasKnightMove = f.selected != "" && knightMove(f.selected, id)
				if blob, err := f.loaded.Encode(); err == nil {
					f.store.Set(state.StorageKey, blob)
				}
			}
			f.selected = id
			f.responses = nil
			return nil
		}
	}
	return ErrElementNotFound
}

// knightMove is true when two "floor-position" cells are a knight's move apart.
func knightMove(from, to string) bool {
	var fx, fy, tx, ty int
	if _, err := fmt.Sscanf(from, "%d-%d", &fx, &fy); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(to, "%d-%d", &tx, &ty); err != nil {
		return false
	}
	dx, dy := abs(fx-tx), abs(fy-ty)
	return (dx == 1 && dy == 2) || (dx == 2 && dy == 1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (f *fakeClient) trigger(label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	room, _ := f.room()
	for _, opt := range room.AvailableInteractions {
		if strings.Contains(opt.Label, label) {
			if f.showAllResponses {
				for _, o := range room.AvailableInteractions {
					f.responses = append(f.responses, o.Response)
				}
			} else {
				f.responses = append(f.responses, opt.Response)
			}
			return nil
		}
	}
	return ErrElementNotFound
}

func (f *fakeClient) actions() ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	room, _ := f.room()
	labels := append(room.Labels(), f.staleActions...)
	if len(labels) == 0 {
		return nil, false
	}
	return labels, true
}

// fakeRig wires a controller to a mock session driven by a fake client.
type fakeRig struct {
	session    *MockSession
	client     *fakeClient
	controller *Controller
}

func newFakeRig(dir string) *fakeRig {
	sess := NewMockSession()
	client := newFakeClient(sess.MockStore)
	client.install(sess.MockPage)

	c := NewController(&MockLauncher{Session: sess}, "http://localhost:3001", dir, testLogger())
	c.Timeouts = testTimeouts()
	return &fakeRig{session: sess, client: client, controller: c}
}
