// Package state holds the authoritative game states and projects the masked
// per-player views that are safe to leave the server. It depends on the game
// package's data types only; all behavior lives in the engine.
package state

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/game"
)

// Store keeps the single authoritative state per room. It is safe for
// concurrent use across rooms; operations on one room's state must still be
// serialized by the caller (the room manager owns that).
type Store struct {
	logger *zap.Logger

	mu     sync.RWMutex
	states map[string]*game.State
	// paused remembers the phase a room was in before PAUSED so Resume can
	// restore it.
	paused map[string]game.Phase
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		states: make(map[string]*game.State),
		paused: make(map[string]game.Phase),
	}
}

// Get returns the full server state for a room, or nil. Internal use only;
// never hand the result to clients.
func (st *Store) Get(roomID string) *game.State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.states[roomID]
}

// Set stores a room's state.
func (st *Store) Set(roomID string, s *game.State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.LastUpdatedAt = time.Now()
	st.states[roomID] = s
}

// Delete removes a room's state after the game ends.
func (st *Store) Delete(roomID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.states, roomID)
	delete(st.paused, roomID)
}

// Has reports whether a room has state.
func (st *Store) Has(roomID string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.states[roomID]
	return ok
}

// ActiveRoomIDs returns the IDs of all rooms with state, sorted.
func (st *Store) ActiveRoomIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.states))
	for id := range st.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pause moves a room into PAUSED, remembering the phase to restore. Pausing
// an already-paused room is a no-op.
func (st *Store) Pause(roomID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.states[roomID]
	if !ok || s.Phase == game.PhasePaused {
		return false
	}
	st.paused[roomID] = s.Phase
	s.Phase = game.PhasePaused
	s.LastUpdatedAt = time.Now()
	return true
}

// Resume restores the phase a paused room was in.
func (st *Store) Resume(roomID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.states[roomID]
	if !ok || s.Phase != game.PhasePaused {
		return false
	}
	prev, ok := st.paused[roomID]
	if !ok {
		prev = game.PhasePlayerTurn
	}
	delete(st.paused, roomID)
	s.Phase = prev
	s.LastUpdatedAt = time.Now()
	return true
}

// Stats reports active game and connected player counts for monitoring.
func (st *Store) Stats() (activeGames, activePlayers int) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, s := range st.states {
		for _, p := range s.Players {
			if p.Connected {
				activePlayers++
			}
		}
	}
	return len(st.states), activePlayers
}
