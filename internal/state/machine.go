package state

import (
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/game"
)

// transition is one row of the phase state machine.
type transition struct {
	from      game.Phase
	to        game.Phase
	condition func(*game.State) bool
}

// transitions is the full phase table. For a given source phase the first
// row whose condition holds wins, in declaration order; no other tie-break
// applies. PAUSED is handled separately by Pause/Resume since it is
// orthogonal to game progress.
var transitions = []transition{
	{
		from: game.PhaseWaitingForPlayers,
		to:   game.PhaseInitializing,
		condition: func(s *game.State) bool {
			return len(s.Players) == game.PlayersPerGame
		},
	},
	{
		from: game.PhaseInitializing,
		to:   game.PhaseDealing,
		condition: func(s *game.State) bool {
			for _, c := range s.OpenCenter {
				if c == nil {
					return false
				}
			}
			return true
		},
	},
	{
		from: game.PhaseDealing,
		to:   game.PhasePlayerTurn,
		condition: func(s *game.State) bool {
			for _, hand := range s.Hands {
				if len(hand) == 0 {
					return false
				}
			}
			return true
		},
	},
	{
		from: game.PhasePlayerTurn,
		to:   game.PhaseResolvingMove,
		condition: func(s *game.State) bool {
			return s.Turn.PendingMove != nil
		},
	},
	{
		from:      game.PhaseResolvingMove,
		to:        game.PhaseCheckSeals,
		condition: func(*game.State) bool { return true },
	},
	{
		from: game.PhaseCheckSeals,
		to:   game.PhasePlayerTurn,
		condition: func(s *game.State) bool {
			return !allHandsEmpty(s)
		},
	},
	{
		from: game.PhaseCheckSeals,
		to:   game.PhaseRoundEnd,
		condition: func(s *game.State) bool {
			return allHandsEmpty(s)
		},
	},
	{
		from: game.PhaseRoundEnd,
		to:   game.PhaseDealing,
		condition: func(s *game.State) bool {
			return s.Round.RoundNumber < 3
		},
	},
	{
		from: game.PhaseRoundEnd,
		to:   game.PhaseGameOver,
		condition: func(s *game.State) bool {
			return s.Round.RoundNumber >= 3
		},
	},
}

func allHandsEmpty(s *game.State) bool {
	for _, hand := range s.Hands {
		if len(hand) > 0 {
			return false
		}
	}
	return true
}

// TryPhaseTransition applies the first matching transition out of the room's
// current phase. Returns true when a transition fired.
func (st *Store) TryPhaseTransition(roomID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.states[roomID]
	if !ok {
		return false
	}

	for _, t := range transitions {
		if t.from != s.Phase || !t.condition(s) {
			continue
		}
		if st.logger != nil {
			st.logger.Info("phase transition",
				zap.String("room_id", roomID),
				zap.String("from", t.from.String()),
				zap.String("to", t.to.String()),
			)
		}
		s.Phase = t.to
		return true
	}
	return false
}

// ValidTransitions returns the phases the room could move to right now.
func (st *Store) ValidTransitions(roomID string) []game.Phase {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.states[roomID]
	if !ok {
		return nil
	}

	var next []game.Phase
	for _, t := range transitions {
		if t.from == s.Phase && t.condition(s) {
			next = append(next, t.to)
		}
	}
	return next
}
