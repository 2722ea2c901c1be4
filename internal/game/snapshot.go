package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/matchdown/matchdown-server-go/internal/card"
)

// snapshotVersion is bumped whenever the snapshot layout changes shape.
const snapshotVersion = 1

// Snapshot is a persistable capture of a room's full state plus a
// deterministic checksum. The checksum guards against divergent states after
// hydration or replay: two snapshots of the same logical state always hash
// identically regardless of map iteration order, and timestamps are excluded.
type Snapshot struct {
	Version    int       `json:"version"`
	CapturedAt time.Time `json:"captured_at"`
	Checksum   string    `json:"checksum"`
	State      *State    `json:"state"`
}

// NewSnapshot captures a detached deep copy of the state and computes its
// checksum. The copy makes snapshots immune to mutations applied after
// capture, so persistence can proceed off the room's lock.
func NewSnapshot(s *State) (*Snapshot, error) {
	sum, err := StateChecksum(s)
	if err != nil {
		return nil, err
	}
	detached, err := copyState(s)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Version:    snapshotVersion,
		CapturedAt: time.Now(),
		Checksum:   sum,
		State:      detached,
	}, nil
}

// copyState deep-copies a state through its JSON form.
func copyState(s *State) (*State, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	var out State
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode state copy: %w", err)
	}
	return &out, nil
}

// Verify recomputes the checksum and reports whether it matches the stored
// one. Used after hydration before a room accepts operations.
func (sn *Snapshot) Verify() (bool, error) {
	sum, err := StateChecksum(sn.State)
	if err != nil {
		return false, err
	}
	return sum == sn.Checksum, nil
}

// StateChecksum computes a SHA-256 hash over a canonical representation of
// the state.
func StateChecksum(s *State) (string, error) {
	repr := canonicalRepresentation(s)
	hash := sha256.New()
	if _, err := hash.Write([]byte(repr)); err != nil {
		return "", fmt.Errorf("failed to compute state hash: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// canonicalRepresentation builds a deterministic string form of the state:
// maps are walked in sorted key order and non-deterministic fields
// (timestamps, action IDs) are left out.
func canonicalRepresentation(s *State) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%d|%d|%d|%s|%t\n",
		s.RoomID,
		s.Phase,
		s.Round.RoundNumber,
		s.Round.DealPhase,
		s.Round.CardsPlayed,
		s.Turn.CurrentPlayerID,
		s.Turn.AwaitingTarget,
	)

	for _, c := range s.Deck {
		fmt.Fprintf(&buf, "DECK:%s\n", c.ID)
	}

	playerIDs := make([]string, 0, len(s.Hands))
	for id := range s.Hands {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		fmt.Fprintf(&buf, "HAND:%s", id)
		for _, c := range s.Hands[id] {
			fmt.Fprintf(&buf, "|%s", c.ID)
		}
		buf.WriteByte('\n')
	}

	for _, c := range s.Pool {
		fmt.Fprintf(&buf, "POOL:%s\n", c.ID)
	}

	stackOwners := make([]string, 0, len(s.PenaltySlots))
	for id := range s.PenaltySlots {
		stackOwners = append(stackOwners, id)
	}
	sort.Strings(stackOwners)
	for _, id := range stackOwners {
		stack := s.PenaltySlots[id]
		fmt.Fprintf(&buf, "STACK:%s|%t|%d|%d", id, stack.Sealed, stack.SealedAt, stack.SealedRound)
		for _, c := range stack.Cards {
			fmt.Fprintf(&buf, "|%s", c.ID)
		}
		buf.WriteByte('\n')
	}

	for i, c := range s.OpenCenter {
		if c == nil {
			fmt.Fprintf(&buf, "CENTER:%d|-\n", i)
		} else {
			fmt.Fprintf(&buf, "CENTER:%d|%s\n", i, c.ID)
		}
	}

	ranks := make([]string, 0, len(s.AccessibleCounts))
	for rank := range s.AccessibleCounts {
		ranks = append(ranks, string(rank))
	}
	sort.Strings(ranks)
	for _, rank := range ranks {
		fmt.Fprintf(&buf, "COUNT:%s|%d\n", rank, s.AccessibleCounts[card.Rank(rank)])
	}

	if s.Turn.PendingMove != nil {
		fmt.Fprintf(&buf, "PENDING:%s", s.Turn.PendingMove.Card.ID)
		for _, m := range s.Turn.PendingMove.MatchOptions {
			fmt.Fprintf(&buf, "|%s:%s:%d", m.Zone, m.OwnerID, m.Priority)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}
