package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/card"
	"github.com/matchdown/matchdown-server-go/internal/game"
)

// newGameState builds a minimal four-player state for store and view tests.
func newGameState(roomID string) *game.State {
	s := &game.State{
		RoomID:           roomID,
		Phase:            game.PhasePlayerTurn,
		Round:            game.RoundState{RoundNumber: 1, DealPhase: 3},
		Turn:             game.TurnState{CurrentPlayerID: "p1", TimeRemaining: 30},
		Deck:             []card.Card{},
		Hands:            map[string][]card.Card{},
		Pool:             []card.Card{},
		PenaltySlots:     map[string]*game.PenaltyStack{},
		OpenCenter:       make([]*card.Card, game.CenterSlots),
		TurnOrder:        []string{"p1", "p2", "p3", "p4"},
		CardLocations:    map[string]*game.CardLocation{},
		AccessibleCounts: game.NewAccessibleCounts(),
		StartedAt:        time.Now(),
	}
	for i, id := range s.TurnOrder {
		s.Players = append(s.Players, &game.PlayerState{ID: id, Nickname: id, SeatIndex: i, Connected: true})
		s.Hands[id] = []card.Card{}
		s.PenaltySlots[id] = &game.PenaltyStack{OwnerID: id, Cards: []card.Card{}}
	}
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	st := NewStore(zap.NewNop())

	assert.Nil(t, st.Get("room-1"))
	assert.False(t, st.Has("room-1"))

	s := newGameState("room-1")
	st.Set("room-1", s)

	assert.True(t, st.Has("room-1"))
	assert.Same(t, s, st.Get("room-1"))

	st.Delete("room-1")
	assert.Nil(t, st.Get("room-1"))
}

func TestStore_ActiveRoomIDs(t *testing.T) {
	st := NewStore(zap.NewNop())
	st.Set("room-b", newGameState("room-b"))
	st.Set("room-a", newGameState("room-a"))

	assert.Equal(t, []string{"room-a", "room-b"}, st.ActiveRoomIDs())
}

func TestStore_PauseResume(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Phase = game.PhaseResolvingMove
	st.Set("room-1", s)

	require.True(t, st.Pause("room-1"))
	assert.Equal(t, game.PhasePaused, s.Phase)

	// Pausing twice is a no-op.
	assert.False(t, st.Pause("room-1"))

	require.True(t, st.Resume("room-1"))
	assert.Equal(t, game.PhaseResolvingMove, s.Phase)

	// Resuming a running room is a no-op.
	assert.False(t, st.Resume("room-1"))
}

func TestStore_PauseUnknownRoom(t *testing.T) {
	st := NewStore(zap.NewNop())
	assert.False(t, st.Pause("nope"))
	assert.False(t, st.Resume("nope"))
}

func TestStore_Stats(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Players[2].Connected = false
	st.Set("room-1", s)
	st.Set("room-2", newGameState("room-2"))

	games, players := st.Stats()
	assert.Equal(t, 2, games)
	assert.Equal(t, 7, players)
}
