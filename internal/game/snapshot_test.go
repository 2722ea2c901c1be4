package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchdown/matchdown-server-go/internal/card"
)

func TestStateChecksum_Deterministic(t *testing.T) {
	e := newTestEngine()
	s, err := e.CreateGame("room-1", testPlayers())
	require.NoError(t, err)

	first, err := StateChecksum(s)
	require.NoError(t, err)
	second, err := StateChecksum(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStateChecksum_ChangesWithState(t *testing.T) {
	s := craftedState()
	before, err := StateChecksum(s)
	require.NoError(t, err)

	placePool(s, card.New(card.RankNine, card.SuitHearts))
	after, err := StateChecksum(s)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestStateChecksum_TracksAccessibleCounts(t *testing.T) {
	s := craftedState()
	before, err := StateChecksum(s)
	require.NoError(t, err)

	s.AccessibleCounts[card.RankJack]--
	after, err := StateChecksum(s)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestNewSnapshot_VerifyRoundTrip(t *testing.T) {
	e := newTestEngine()
	s, err := e.CreateGame("room-1", testPlayers())
	require.NoError(t, err)

	snap, err := NewSnapshot(s)
	require.NoError(t, err)
	assert.Equal(t, snapshotVersion, snap.Version)
	assert.False(t, snap.CapturedAt.IsZero())

	ok, err := snap.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewSnapshot_DetachedFromLiveState(t *testing.T) {
	s := craftedState()
	giveCard(s, "p1", card.New(card.RankNine, card.SuitHearts))

	snap, err := NewSnapshot(s)
	require.NoError(t, err)

	// Mutations after capture must not leak into the snapshot.
	s.Hands["p1"] = nil
	s.Phase = PhaseGameOver

	assert.Len(t, snap.State.Hands["p1"], 1)
	assert.Equal(t, PhasePlayerTurn, snap.State.Phase)

	ok, err := snap.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshot_VerifyDetectsTampering(t *testing.T) {
	s := craftedState()
	snap, err := NewSnapshot(s)
	require.NoError(t, err)

	snap.State.Round.CardsPlayed = 99

	ok, err := snap.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateChecksum_IgnoresTimestamps(t *testing.T) {
	s := craftedState()
	before, err := StateChecksum(s)
	require.NoError(t, err)

	s.LastUpdatedAt = s.LastUpdatedAt.Add(1000)
	s.Turn.TurnStartedAt = s.Turn.TurnStartedAt.Add(1000)

	after, err := StateChecksum(s)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
