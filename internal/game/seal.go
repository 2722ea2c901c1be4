package game

import (
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/card"
)

// SealEvent is emitted when a penalty stack becomes sealed.
type SealEvent struct {
	PlayerID     string      `json:"player_id"`
	SealedRank   card.Rank   `json:"sealed_rank"`
	SealedCards  []card.Card `json:"sealed_cards"`
	BuriedCards  []card.Card `json:"buried_cards"`
	StackSize    int         `json:"stack_size"`
	LockedPoints int         `json:"locked_points"`
}

// SealEngine decides when a penalty stack must seal and applies the seal.
//
// A stack seals when no card exists anywhere in reachable play that could
// ever match its top run away: either all four copies of the top rank sit on
// the stack itself, or every remaining copy is provably unreachable (buried
// under another seal or collected out of play). Sealing is irreversible
// within a round.
//
// The engine itself is stateless; all accessibility bookkeeping lives on the
// per-room State so that rooms stay fully independent.
type SealEngine struct {
	logger *zap.Logger
}

// NewSealEngine creates a seal engine.
func NewSealEngine(logger *zap.Logger) *SealEngine {
	return &SealEngine{logger: logger}
}

// NewAccessibleCounts returns the round-start accessibility table: all four
// copies of every rank reachable.
func NewAccessibleCounts() map[card.Rank]int {
	counts := make(map[card.Rank]int, len(card.AllRanks))
	for _, rank := range card.AllRanks {
		counts[rank] = card.CopiesPerRank
	}
	return counts
}

// InitializeAccessibility resets the state's accessibility table to the
// round-start values.
func (se *SealEngine) InitializeAccessibility(s *State) {
	s.AccessibleCounts = NewAccessibleCounts()
}

// OnCardBuried records that a copy of the card's rank is no longer reachable.
func (se *SealEngine) OnCardBuried(s *State, c card.Card) {
	if s.AccessibleCounts[c.Rank] > 0 {
		s.AccessibleCounts[c.Rank]--
	}
}

// OnCardExposed records that a copy of the card's rank became reachable again.
func (se *SealEngine) OnCardExposed(s *State, c card.Card) {
	s.AccessibleCounts[c.Rank]++
}

// IsPileSealed reports whether the stack must seal given the current state.
// Empty stacks never seal; already-sealed stacks stay sealed.
func (se *SealEngine) IsPileSealed(stack *PenaltyStack, s *State) bool {
	if len(stack.Cards) == 0 {
		return false
	}
	if stack.Sealed {
		return true
	}

	topRank := stack.Cards[len(stack.Cards)-1].Rank
	topGroup := stack.MatchingTopGroup(topRank)

	// Rule 1: a complete set on top. A fifth copy cannot exist, so nothing
	// can ever match this run away.
	if len(topGroup) == card.CopiesPerRank {
		return true
	}

	// Rule 2: is a key card still reachable? A copy of the top rank in any
	// hand or in the open center could clear the run later, so the stack
	// stays open.
	for _, hand := range s.Hands {
		for _, c := range hand {
			if c.Rank == topRank {
				return false
			}
		}
	}
	for _, c := range s.OpenCenter {
		if c != nil && c.Rank == topRank {
			return false
		}
	}

	// Every remaining copy of the rank is buried or out of play: the key is
	// lost and the stack seals even with fewer than four copies on top.
	return true
}

// CheckAndApplySeals tests every unsealed stack and applies any seal that
// newly qualifies, then repeats until a pass produces no new seals. Sealing
// buries cards, and a newly-buried card may have been the last reachable key
// for another stack, so a single call can cascade across stacks. The loop is
// bounded: at most four stacks exist and sealing is never undone in-round.
func (se *SealEngine) CheckAndApplySeals(s *State) []SealEvent {
	var events []SealEvent

	for {
		sealedThisPass := 0

		for _, playerID := range s.TurnOrder {
			stack, ok := s.PenaltySlots[playerID]
			if !ok || stack.Sealed || len(stack.Cards) == 0 {
				continue
			}
			if !se.IsPileSealed(stack, s) {
				continue
			}

			event := se.applySeal(s, playerID, stack)
			events = append(events, event)
			sealedThisPass++

			if se.logger != nil {
				se.logger.Info("penalty stack sealed",
					zap.String("room_id", s.RoomID),
					zap.String("player_id", playerID),
					zap.String("rank", string(event.SealedRank)),
					zap.Int("stack_size", event.StackSize),
					zap.Int("locked_points", event.LockedPoints),
				)
			}
		}

		if sealedThisPass == 0 {
			return events
		}
	}
}

// applySeal marks the stack sealed, splits it into the sealed top run and the
// buried remainder, and updates accessibility for everything that just left
// reachable play.
func (se *SealEngine) applySeal(s *State, playerID string, stack *PenaltyStack) SealEvent {
	topRank := stack.Cards[len(stack.Cards)-1].Rank
	topGroup := stack.MatchingTopGroup(topRank)

	stack.Sealed = true
	stack.SealedAt = len(stack.Cards) - len(topGroup)
	stack.SealedRound = s.Round.RoundNumber

	sealedCards := append([]card.Card(nil), stack.Cards[stack.SealedAt:]...)
	buriedCards := append([]card.Card(nil), stack.Cards[:stack.SealedAt]...)

	// The whole stack leaves reachable play for location tracking; only the
	// newly-buried cards below the seal line count against rank
	// accessibility (the sealed run's copies were already accounted as the
	// stack's own).
	for _, c := range stack.Cards {
		if loc := s.CardLocations[c.ID]; loc != nil {
			loc.Accessible = false
		}
	}
	for _, c := range buriedCards {
		se.OnCardBuried(s, c)
	}

	return SealEvent{
		PlayerID:     playerID,
		SealedRank:   topRank,
		SealedCards:  sealedCards,
		BuriedCards:  buriedCards,
		StackSize:    len(stack.Cards),
		LockedPoints: card.PenaltyTotal(stack.Cards),
	}
}

// RebuildAccessibility recomputes the accessibility table from scratch.
// Used on hydration: counts are always recoverable as four minus the copies
// buried below a seal line this round. Stacks sealed in an earlier round
// carry cards from a spent deck and do not count against the current one.
func (se *SealEngine) RebuildAccessibility(s *State) {
	se.InitializeAccessibility(s)
	for _, stack := range s.PenaltySlots {
		if !stack.Sealed || stack.SealedRound != s.Round.RoundNumber {
			continue
		}
		for _, c := range stack.Cards[:stack.SealedAt] {
			se.OnCardBuried(s, c)
		}
	}
}
