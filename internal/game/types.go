package game

import (
	"fmt"
	"time"

	"github.com/matchdown/matchdown-server-go/internal/card"
)

// Phase represents the lifecycle phase of a game.
type Phase int

const (
	PhaseWaitingForPlayers Phase = iota
	PhaseInitializing
	PhaseDealing
	PhasePlayerTurn
	PhaseResolvingMove
	PhaseCheckSeals
	PhaseRoundEnd
	PhaseGameOver
	PhasePaused
)

var phaseNames = map[Phase]string{
	PhaseWaitingForPlayers: "WAITING_FOR_PLAYERS",
	PhaseInitializing:      "INITIALIZING",
	PhaseDealing:           "DEALING",
	PhasePlayerTurn:        "PLAYER_TURN",
	PhaseResolvingMove:     "RESOLVING_MOVE",
	PhaseCheckSeals:        "CHECK_SEALS",
	PhaseRoundEnd:          "ROUND_END",
	PhaseGameOver:          "GAME_OVER",
	PhasePaused:            "PAUSED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Zone identifies where a card currently lives.
type Zone string

const (
	ZoneDeck       Zone = "deck"
	ZoneHand       Zone = "hand"
	ZoneOpenCenter Zone = "open_center"
	ZonePool       Zone = "pool"
	ZonePenalty    Zone = "penalty"
	// ZoneOutOfPlay holds cards collected by a match. They count as neither
	// penalty nor board state for the rest of the round.
	ZoneOutOfPlay Zone = "out_of_play"
)

// MatchZone identifies which zone a match candidate came from.
type MatchZone string

const (
	MatchZoneCenter  MatchZone = "center"
	MatchZonePool    MatchZone = "pool"
	MatchZonePenalty MatchZone = "penalty"
)

// Match candidate priorities. Lower wins for auto-resolution.
const (
	PriorityCenter  = 1
	PriorityPool    = 2
	PriorityPenalty = 3
)

// PlayerState is the per-player roster entry held in server state.
type PlayerState struct {
	ID           string    `json:"id"`
	Nickname     string    `json:"nickname"`
	SeatIndex    int       `json:"seat_index"`
	Connected    bool      `json:"connected"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// PenaltyStack is one player's accumulation of unmatched cards.
// Cards are ordered bottom to top; only the top run is ever matchable.
type PenaltyStack struct {
	OwnerID string      `json:"owner_id"`
	Cards   []card.Card `json:"cards"`
	Sealed  bool        `json:"sealed"`
	// SealedAt is the index of the first card of the sealed top run.
	// Cards below it are buried. Meaningful only while Sealed is true.
	SealedAt int `json:"sealed_at"`
	// SealedRound is the round the seal was applied in. Buried copies count
	// against rank accessibility only during that round; the next round
	// starts with a fresh deck and full counts.
	SealedRound int `json:"sealed_round,omitempty"`
}

// TopGroup returns the contiguous same-rank run at the top of the stack,
// bottom-to-top order. Empty stacks yield nil.
func (ps *PenaltyStack) TopGroup() []card.Card {
	if len(ps.Cards) == 0 {
		return nil
	}
	return ps.MatchingTopGroup(ps.Cards[len(ps.Cards)-1].Rank)
}

// MatchingTopGroup returns the contiguous top run of the given rank, or nil if
// the top card does not match.
func (ps *PenaltyStack) MatchingTopGroup(rank card.Rank) []card.Card {
	var group []card.Card
	for i := len(ps.Cards) - 1; i >= 0; i-- {
		if ps.Cards[i].Rank != rank {
			break
		}
		group = append([]card.Card{ps.Cards[i]}, group...)
	}
	return group
}

// CardLocation tracks where a card is and whether it still counts toward rank
// accessibility. One entry per card ID, the single source of truth.
type CardLocation struct {
	Zone       Zone   `json:"zone"`
	OwnerID    string `json:"owner_id,omitempty"`
	Position   int    `json:"position,omitempty"`
	Accessible bool   `json:"accessible"`
}

// MatchOption is one candidate resolution for a played card.
type MatchOption struct {
	Zone MatchZone `json:"zone"`
	// OwnerID is set for penalty matches only.
	OwnerID  string      `json:"owner_id,omitempty"`
	Cards    []card.Card `json:"cards"`
	Priority int         `json:"priority"`
}

// PendingMove holds a played card waiting for the player to choose between
// multiple match targets.
type PendingMove struct {
	Card              card.Card     `json:"card"`
	MatchOptions      []MatchOption `json:"match_options"`
	SelectionDeadline time.Time     `json:"selection_deadline"`
}

// TurnState tracks whose turn it is and any pending target selection.
// AwaitingTarget and PendingMove are always both set or both absent.
type TurnState struct {
	CurrentPlayerID    string       `json:"current_player_id"`
	CurrentPlayerIndex int          `json:"current_player_index"`
	TimeRemaining      int          `json:"time_remaining"`
	TurnStartedAt      time.Time    `json:"turn_started_at"`
	AwaitingTarget     bool         `json:"awaiting_target"`
	ValidTargets       []string     `json:"valid_targets,omitempty"`
	PendingMove        *PendingMove `json:"pending_move,omitempty"`
}

// RoundState tracks progress through the current round.
type RoundState struct {
	RoundNumber int `json:"round_number"`
	DealPhase   int `json:"deal_phase"`
	CardsPlayed int `json:"cards_played"`
}

// Action is one entry in the append-only action log.
type Action struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	PlayerID  string         `json:"player_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Action log entry types.
const (
	ActionMatch    = "match"
	ActionNoMatch  = "no_match"
	ActionSeal     = "seal"
	ActionRoundEnd = "round_end"
	ActionGameEnd  = "game_end"
)

// State is the full authoritative game state for one room. It is the single
// source of truth and must never be sent to clients directly; clients receive
// views projected by the state store.
type State struct {
	RoomID string     `json:"room_id"`
	Phase  Phase      `json:"phase"`
	Round  RoundState `json:"round"`
	Turn   TurnState  `json:"turn"`

	// Hidden zones.
	Deck         []card.Card              `json:"deck"`
	Hands        map[string][]card.Card   `json:"hands"`
	Pool         []card.Card              `json:"pool"`
	PenaltySlots map[string]*PenaltyStack `json:"penalty_slots"`

	// Public board. Fixed four slots, nil when empty.
	OpenCenter []*card.Card `json:"open_center"`

	Players   []*PlayerState `json:"players"`
	TurnOrder []string       `json:"turn_order"`

	// Seal bookkeeping.
	CardLocations    map[string]*CardLocation `json:"card_locations"`
	AccessibleCounts map[card.Rank]int        `json:"accessible_counts"`

	StartedAt     time.Time `json:"started_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	ActionLog     []Action  `json:"action_log"`
}

// Player returns the roster entry for the given player, or nil.
func (s *State) Player(playerID string) *PlayerState {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// PoolTop returns the top card of the pool, or nil when the pool is empty.
func (s *State) PoolTop() *card.Card {
	if len(s.Pool) == 0 {
		return nil
	}
	top := s.Pool[len(s.Pool)-1]
	return &top
}

// Result classifies how a played card resolved.
type Result string

const (
	ResultMatch   Result = "match"
	ResultNoMatch Result = "no_match"
)

// ErrorCode identifies a recoverable request-validation failure. These are
// reported to the caller as data, never raised as Go errors; the state is
// unchanged when one is returned.
type ErrorCode string

const (
	ErrCodeGameNotFound   ErrorCode = "GAME_NOT_FOUND"
	ErrCodeWrongPhase     ErrorCode = "WRONG_PHASE"
	ErrCodeNotYourTurn    ErrorCode = "NOT_YOUR_TURN"
	ErrCodeAwaitingTarget ErrorCode = "AWAITING_TARGET"
	ErrCodeNoPendingMove  ErrorCode = "NO_PENDING_MOVE"
	ErrCodePlayerNotFound ErrorCode = "PLAYER_NOT_FOUND"
	ErrCodeCardNotInHand  ErrorCode = "CARD_NOT_IN_HAND"
	ErrCodeInvalidTarget  ErrorCode = "INVALID_TARGET"
)

// PlayOutcome is the structured result of playCard and the operations that
// resolve on its behalf (target selection and both timeouts).
type PlayOutcome struct {
	Success              bool          `json:"success"`
	Result               Result        `json:"result,omitempty"`
	PlayedCard           *card.Card    `json:"played_card,omitempty"`
	Match                *MatchOption  `json:"match,omitempty"`
	SealEvents           []SealEvent   `json:"seal_events,omitempty"`
	NeedsTargetSelection bool          `json:"needs_target_selection,omitempty"`
	ValidTargets         []MatchOption `json:"valid_targets,omitempty"`
	ErrorCode            ErrorCode     `json:"error_code,omitempty"`
}

// PlayerPenalty summarizes one player's penalty at round end.
type PlayerPenalty struct {
	PlayerID     string `json:"player_id"`
	PenaltyCards int    `json:"penalty_cards"`
	SealedCards  int    `json:"sealed_cards"`
	RoundPenalty int    `json:"round_penalty"`
}

// RoundEndResult is the outcome of a single round.
type RoundEndResult struct {
	RoundNumber    int             `json:"round_number"`
	Scores         map[string]int  `json:"scores"`
	PenaltySummary []PlayerPenalty `json:"penalty_summary"`
}

// PlayerRanking is one player's final standing.
type PlayerRanking struct {
	PlayerID   string `json:"player_id"`
	TotalScore int    `json:"total_score"`
	Rank       int    `json:"rank"`
}

// GameEndResult is the final outcome of a game. Lowest total penalty wins.
type GameEndResult struct {
	MatchID     string            `json:"match_id"`
	Winner      string            `json:"winner"`
	Rankings    []PlayerRanking   `json:"rankings"`
	RoundScores []*RoundEndResult `json:"round_scores"`
	Duration    time.Duration     `json:"duration"`
}
