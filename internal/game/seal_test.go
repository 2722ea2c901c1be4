package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/card"
)

func newTestSealEngine() *SealEngine {
	return NewSealEngine(zap.NewNop())
}

func TestIsPileSealed_EmptyStack(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	assert.False(t, se.IsPileSealed(s.PenaltySlots["p1"], s))
}

func TestIsPileSealed_CompleteSet(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p1",
		card.New(card.RankJack, card.SuitHearts),
		card.New(card.RankJack, card.SuitDiamonds),
		card.New(card.RankJack, card.SuitClubs),
		card.New(card.RankJack, card.SuitSpades),
	)

	assert.True(t, se.IsPileSealed(s.PenaltySlots["p1"], s))
}

func TestIsPileSealed_KeyCardInHand(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p1",
		card.New(card.RankSeven, card.SuitHearts),
		card.New(card.RankSeven, card.SuitDiamonds),
	)
	giveCard(s, "p3", card.New(card.RankSeven, card.SuitClubs))

	assert.False(t, se.IsPileSealed(s.PenaltySlots["p1"], s))
}

func TestIsPileSealed_KeyCardInCenter(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p1",
		card.New(card.RankSeven, card.SuitHearts),
		card.New(card.RankSeven, card.SuitDiamonds),
	)
	placeCenter(s, 1, card.New(card.RankSeven, card.SuitClubs))

	assert.False(t, se.IsPileSealed(s.PenaltySlots["p1"], s))
}

func TestIsPileSealed_KeyLost(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	// Two sevens on top, the other two collected out of play: no hand or
	// center card can ever clear this run.
	placePenalty(s, "p1",
		card.New(card.RankFour, card.SuitHearts),
		card.New(card.RankSeven, card.SuitHearts),
		card.New(card.RankSeven, card.SuitDiamonds),
	)

	assert.True(t, se.IsPileSealed(s.PenaltySlots["p1"], s))
}

func TestCheckAndApplySeals_SealsAndBuries(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p2",
		card.New(card.RankFour, card.SuitHearts),
		card.New(card.RankNine, card.SuitHearts),
		card.New(card.RankNine, card.SuitDiamonds),
	)

	events := se.CheckAndApplySeals(s)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "p2", ev.PlayerID)
	assert.Equal(t, card.RankNine, ev.SealedRank)
	assert.Len(t, ev.SealedCards, 2)
	assert.Len(t, ev.BuriedCards, 1)
	assert.Equal(t, 3, ev.StackSize)
	assert.Equal(t, 4+9+9, ev.LockedPoints)

	stack := s.PenaltySlots["p2"]
	assert.True(t, stack.Sealed)
	assert.Equal(t, 1, stack.SealedAt)

	// The buried four is gone from circulation; the sealed nines were already
	// accounted for by the stack itself.
	assert.Equal(t, 3, s.AccessibleCounts[card.RankFour])
	for _, c := range stack.Cards {
		assert.False(t, s.CardLocations[c.ID].Accessible)
	}
}

func TestCheckAndApplySeals_MultipleStacksOneCall(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p1",
		card.New(card.RankNine, card.SuitHearts),
		card.New(card.RankNine, card.SuitDiamonds),
	)
	placePenalty(s, "p3",
		card.New(card.RankQueen, card.SuitHearts),
		card.New(card.RankQueen, card.SuitDiamonds),
		card.New(card.RankQueen, card.SuitClubs),
	)

	events := se.CheckAndApplySeals(s)
	require.Len(t, events, 2)

	// Seals apply in turn order.
	assert.Equal(t, "p1", events[0].PlayerID)
	assert.Equal(t, "p3", events[1].PlayerID)
	assert.True(t, s.PenaltySlots["p1"].Sealed)
	assert.True(t, s.PenaltySlots["p3"].Sealed)
}

func TestCheckAndApplySeals_Idempotent(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p2",
		card.New(card.RankNine, card.SuitHearts),
		card.New(card.RankNine, card.SuitDiamonds),
	)

	first := se.CheckAndApplySeals(s)
	require.Len(t, first, 1)

	second := se.CheckAndApplySeals(s)
	assert.Empty(t, second, "a sealed stack must never seal again")
	assert.True(t, s.PenaltySlots["p2"].Sealed)
}

func TestCheckAndApplySeals_OpenStackStaysOpen(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p2", card.New(card.RankNine, card.SuitHearts))
	giveCard(s, "p4", card.New(card.RankNine, card.SuitDiamonds))

	events := se.CheckAndApplySeals(s)
	assert.Empty(t, events)
	assert.False(t, s.PenaltySlots["p2"].Sealed)
}

func TestRebuildAccessibility(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p2",
		card.New(card.RankFour, card.SuitHearts),
		card.New(card.RankFive, card.SuitHearts),
		card.New(card.RankNine, card.SuitHearts),
		card.New(card.RankNine, card.SuitDiamonds),
	)
	require.Len(t, se.CheckAndApplySeals(s), 1)

	// Wreck the table, then rebuild it the way hydration does.
	s.AccessibleCounts = map[card.Rank]int{}
	se.RebuildAccessibility(s)

	assert.Equal(t, 3, s.AccessibleCounts[card.RankFour])
	assert.Equal(t, 3, s.AccessibleCounts[card.RankFive])
	assert.Equal(t, 4, s.AccessibleCounts[card.RankNine])
	assert.Equal(t, 4, s.AccessibleCounts[card.RankAce])
}

func TestRebuildAccessibility_IgnoresSealsFromEarlierRounds(t *testing.T) {
	se := newTestSealEngine()
	s := craftedState()

	placePenalty(s, "p2",
		card.New(card.RankFour, card.SuitHearts),
		card.New(card.RankNine, card.SuitHearts),
		card.New(card.RankNine, card.SuitDiamonds),
	)
	require.Len(t, se.CheckAndApplySeals(s), 1)
	assert.Equal(t, 1, s.PenaltySlots["p2"].SealedRound)

	// The next round starts with a fresh deck and full counts while the
	// sealed stack persists; the rebuild must match that.
	s.Round.RoundNumber = 2
	se.RebuildAccessibility(s)

	assert.Equal(t, 4, s.AccessibleCounts[card.RankFour])
	assert.Equal(t, 4, s.AccessibleCounts[card.RankNine])
}
