package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/card"
	"github.com/matchdown/matchdown-server-go/internal/game"
)

func TestTryPhaseTransition_UnknownRoom(t *testing.T) {
	st := NewStore(zap.NewNop())
	assert.False(t, st.TryPhaseTransition("nope"))
	assert.Nil(t, st.ValidTransitions("nope"))
}

func TestTryPhaseTransition_WaitingToInitializing(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Phase = game.PhaseWaitingForPlayers
	st.Set("room-1", s)

	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhaseInitializing, s.Phase)
}

func TestTryPhaseTransition_InitializingNeedsFullCenter(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Phase = game.PhaseInitializing
	st.Set("room-1", s)

	assert.False(t, st.TryPhaseTransition("room-1"))

	for i := 0; i < game.CenterSlots; i++ {
		c := card.New(card.AllRanks[i], card.SuitHearts)
		s.OpenCenter[i] = &c
	}
	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhaseDealing, s.Phase)
}

func TestTryPhaseTransition_DealingNeedsAllHands(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Phase = game.PhaseDealing
	st.Set("room-1", s)

	s.Hands["p1"] = []card.Card{card.New(card.RankAce, card.SuitHearts)}
	assert.False(t, st.TryPhaseTransition("room-1"))

	for _, id := range s.TurnOrder {
		s.Hands[id] = []card.Card{card.New(card.RankAce, card.SuitHearts)}
	}
	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhasePlayerTurn, s.Phase)
}

func TestTryPhaseTransition_PlayerTurnToResolvingMove(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	st.Set("room-1", s)

	assert.False(t, st.TryPhaseTransition("room-1"))

	s.Turn.PendingMove = &game.PendingMove{Card: card.New(card.RankAce, card.SuitHearts)}
	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhaseResolvingMove, s.Phase)

	// RESOLVING_MOVE always falls through to CHECK_SEALS.
	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhaseCheckSeals, s.Phase)
}

func TestTryPhaseTransition_CheckSealsBranches(t *testing.T) {
	st := NewStore(zap.NewNop())

	s := newGameState("room-1")
	s.Phase = game.PhaseCheckSeals
	s.Hands["p2"] = []card.Card{card.New(card.RankAce, card.SuitHearts)}
	st.Set("room-1", s)
	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhasePlayerTurn, s.Phase)

	empty := newGameState("room-2")
	empty.Phase = game.PhaseCheckSeals
	st.Set("room-2", empty)
	require.True(t, st.TryPhaseTransition("room-2"))
	assert.Equal(t, game.PhaseRoundEnd, empty.Phase)
}

func TestTryPhaseTransition_RoundEndBranches(t *testing.T) {
	st := NewStore(zap.NewNop())

	s := newGameState("room-1")
	s.Phase = game.PhaseRoundEnd
	s.Round.RoundNumber = 2
	st.Set("room-1", s)
	require.True(t, st.TryPhaseTransition("room-1"))
	assert.Equal(t, game.PhaseDealing, s.Phase)

	final := newGameState("room-2")
	final.Phase = game.PhaseRoundEnd
	final.Round.RoundNumber = 3
	st.Set("room-2", final)
	require.True(t, st.TryPhaseTransition("room-2"))
	assert.Equal(t, game.PhaseGameOver, final.Phase)
}

func TestTryPhaseTransition_GameOverIsTerminal(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Phase = game.PhaseGameOver
	st.Set("room-1", s)

	assert.False(t, st.TryPhaseTransition("room-1"))
	assert.Empty(t, st.ValidTransitions("room-1"))
}

func TestValidTransitions(t *testing.T) {
	st := NewStore(zap.NewNop())
	s := newGameState("room-1")
	s.Phase = game.PhaseCheckSeals
	st.Set("room-1", s)

	// All hands empty: only ROUND_END qualifies.
	assert.Equal(t, []game.Phase{game.PhaseRoundEnd}, st.ValidTransitions("room-1"))

	s.Hands["p1"] = []card.Card{card.New(card.RankAce, card.SuitHearts)}
	assert.Equal(t, []game.Phase{game.PhasePlayerTurn}, st.ValidTransitions("room-1"))
}
