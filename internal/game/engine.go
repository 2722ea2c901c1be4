package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/card"
)

const (
	// PlayersPerGame is the fixed table size.
	PlayersPerGame = 4
	// CenterSlots is the number of open center positions.
	CenterSlots = 4
	// CardsPerDealPhase is how many cards each player receives per deal phase.
	CardsPerDealPhase = 4
	// DealPhasesPerRound is the number of deal phases in one round.
	DealPhasesPerRound = 3
)

// Rules carries the tunable game parameters.
type Rules struct {
	TurnTimeout      time.Duration
	SelectionTimeout time.Duration
	RoundsPerGame    int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		TurnTimeout:      30 * time.Second,
		SelectionTimeout: 10 * time.Second,
		RoundsPerGame:    3,
	}
}

// Engine implements the authoritative game logic: deck and deal, play
// validation, match discovery and resolution, turn progression, timeout
// fallbacks and scoring. All operations are synchronous and deterministic
// given their inputs (the shuffle excepted); callers are responsible for
// serializing access to a room's State.
type Engine struct {
	logger *zap.Logger
	rules  Rules
	seals  *SealEngine
}

// NewEngine creates a game engine.
func NewEngine(rules Rules, seals *SealEngine, logger *zap.Logger) *Engine {
	return &Engine{
		logger: logger,
		rules:  rules,
		seals:  seals,
	}
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() Rules {
	return e.rules
}

// CreateGame builds the initial state for a room: a freshly shuffled deck,
// empty zones, turn order fixed from seat indices and every rank fully
// accessible. The game starts in INITIALIZING; dealing follows.
func (e *Engine) CreateGame(roomID string, players []*PlayerState) (*State, error) {
	if len(players) != PlayersPerGame {
		return nil, fmt.Errorf("%w: got %d", ErrWrongPlayerCount, len(players))
	}

	deck, err := card.Shuffle(card.NewDeck())
	if err != nil {
		return nil, fmt.Errorf("failed to shuffle deck: %w", err)
	}

	locations := make(map[string]*CardLocation, len(deck))
	for _, c := range deck {
		locations[c.ID] = &CardLocation{Zone: ZoneDeck, Accessible: false}
	}

	seated := make([]*PlayerState, len(players))
	copy(seated, players)
	sort.Slice(seated, func(i, j int) bool { return seated[i].SeatIndex < seated[j].SeatIndex })

	turnOrder := make([]string, len(seated))
	hands := make(map[string][]card.Card, len(seated))
	penaltySlots := make(map[string]*PenaltyStack, len(seated))
	for i, p := range seated {
		turnOrder[i] = p.ID
		hands[p.ID] = []card.Card{}
		penaltySlots[p.ID] = &PenaltyStack{OwnerID: p.ID, Cards: []card.Card{}}
	}

	now := time.Now()
	s := &State{
		RoomID: roomID,
		Phase:  PhaseInitializing,
		Round:  RoundState{RoundNumber: 1, DealPhase: 1},
		Turn: TurnState{
			CurrentPlayerID: turnOrder[0],
			TimeRemaining:   int(e.rules.TurnTimeout.Seconds()),
			TurnStartedAt:   now,
		},
		Deck:             deck,
		Hands:            hands,
		Pool:             []card.Card{},
		PenaltySlots:     penaltySlots,
		OpenCenter:       make([]*card.Card, CenterSlots),
		Players:          seated,
		TurnOrder:        turnOrder,
		CardLocations:    locations,
		AccessibleCounts: NewAccessibleCounts(),
		StartedAt:        now,
		LastUpdatedAt:    now,
		ActionLog:        []Action{},
	}

	if e.logger != nil {
		e.logger.Info("game created",
			zap.String("room_id", roomID),
			zap.Strings("turn_order", turnOrder),
		)
	}
	return s, nil
}

// DealOpenCenter pops four cards from the deck into the open center slots.
func (e *Engine) DealOpenCenter(s *State) ([]card.Card, error) {
	dealt := make([]card.Card, 0, CenterSlots)
	for i := 0; i < CenterSlots; i++ {
		c, err := e.popDeck(s)
		if err != nil {
			return nil, err
		}
		s.OpenCenter[i] = &c
		dealt = append(dealt, c)

		if loc := s.CardLocations[c.ID]; loc != nil {
			loc.Zone = ZoneOpenCenter
			loc.OwnerID = ""
			loc.Position = i
			loc.Accessible = true
		}
	}
	s.LastUpdatedAt = time.Now()
	return dealt, nil
}

// DealToPlayers deals the current deal phase: four cards to each player,
// round-robin in turn order. Three phases per round give each player twelve
// cards. Advances the deal phase counter.
func (e *Engine) DealToPlayers(s *State) (map[string][]card.Card, error) {
	dealt := make(map[string][]card.Card, len(s.TurnOrder))

	for i := 0; i < CardsPerDealPhase; i++ {
		for _, playerID := range s.TurnOrder {
			c, err := e.popDeck(s)
			if err != nil {
				return nil, err
			}
			s.Hands[playerID] = append(s.Hands[playerID], c)
			dealt[playerID] = append(dealt[playerID], c)

			if loc := s.CardLocations[c.ID]; loc != nil {
				loc.Zone = ZoneHand
				loc.OwnerID = playerID
				loc.Accessible = true
			}
		}
	}

	phase := s.Round.DealPhase
	if s.Round.DealPhase < DealPhasesPerRound {
		s.Round.DealPhase++
	}
	s.LastUpdatedAt = time.Now()

	if e.logger != nil {
		e.logger.Info("deal phase complete",
			zap.String("room_id", s.RoomID),
			zap.Int("deal_phase", phase),
			zap.Int("round", s.Round.RoundNumber),
		)
	}
	return dealt, nil
}

func (e *Engine) popDeck(s *State) (card.Card, error) {
	if len(s.Deck) == 0 {
		return card.Card{}, ErrDeckExhausted
	}
	c := s.Deck[len(s.Deck)-1]
	s.Deck = s.Deck[:len(s.Deck)-1]
	return c, nil
}

// ValidatePlay checks whether the player may play the given card right now.
// An empty code means the play is allowed. State is never modified.
func (e *Engine) ValidatePlay(s *State, playerID, cardID string) ErrorCode {
	if s.Phase != PhasePlayerTurn {
		return ErrCodeWrongPhase
	}
	if s.Turn.CurrentPlayerID != playerID {
		return ErrCodeNotYourTurn
	}
	if s.Turn.AwaitingTarget {
		return ErrCodeAwaitingTarget
	}
	hand, ok := s.Hands[playerID]
	if !ok {
		return ErrCodePlayerNotFound
	}
	if indexOfCard(hand, cardID) == -1 {
		return ErrCodeCardNotInHand
	}
	return ""
}

// FindMatches returns every zone the played card could resolve against,
// sorted ascending by priority: open center first, then the pool top, then
// other players' unsealed penalty stacks. The acting player's own stack is
// never a target.
func (e *Engine) FindMatches(s *State, played card.Card, playerID string) []MatchOption {
	var matches []MatchOption
	rank := played.Rank

	var centerCards []card.Card
	for _, c := range s.OpenCenter {
		if c != nil && c.Rank == rank {
			centerCards = append(centerCards, *c)
		}
	}
	if len(centerCards) > 0 {
		matches = append(matches, MatchOption{
			Zone:     MatchZoneCenter,
			Cards:    centerCards,
			Priority: PriorityCenter,
		})
	}

	if top := s.PoolTop(); top != nil && top.Rank == rank {
		var poolCards []card.Card
		for i := len(s.Pool) - 1; i >= 0; i-- {
			if s.Pool[i].Rank != rank {
				break
			}
			poolCards = append([]card.Card{s.Pool[i]}, poolCards...)
		}
		matches = append(matches, MatchOption{
			Zone:     MatchZonePool,
			Cards:    poolCards,
			Priority: PriorityPool,
		})
	}

	// Penalty stacks in turn order so candidate order never depends on map
	// iteration.
	for _, ownerID := range s.TurnOrder {
		if ownerID == playerID {
			continue
		}
		stack, ok := s.PenaltySlots[ownerID]
		if !ok || stack.Sealed || len(stack.Cards) == 0 {
			continue
		}
		group := stack.MatchingTopGroup(rank)
		if len(group) == 0 {
			continue
		}
		matches = append(matches, MatchOption{
			Zone:     MatchZonePenalty,
			OwnerID:  ownerID,
			Cards:    group,
			Priority: PriorityPenalty,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority < matches[j].Priority
	})
	return matches
}

// PlayCard validates and resolves a play. With no match the card joins the
// pool; a single candidate resolves immediately; multiple candidates either
// resolve against targetOwnerID or park the move as pending until the player
// (or the selection timeout) picks a target.
func (e *Engine) PlayCard(s *State, playerID, cardID, targetOwnerID string) (*PlayOutcome, error) {
	if code := e.ValidatePlay(s, playerID, cardID); code != "" {
		return &PlayOutcome{ErrorCode: code}, nil
	}

	hand := s.Hands[playerID]
	idx := indexOfCard(hand, cardID)
	played := hand[idx]
	s.Hands[playerID] = append(hand[:idx], hand[idx+1:]...)

	// The card is in flight until the move resolves.
	if loc := s.CardLocations[played.ID]; loc != nil {
		loc.Zone = ZoneOpenCenter
		loc.OwnerID = ""
	}

	matches := e.FindMatches(s, played, playerID)

	if len(matches) == 0 {
		return e.applyNoMatch(s, played, playerID), nil
	}

	if len(matches) == 1 {
		return e.applyMatch(s, played, matches[0], playerID), nil
	}

	if targetOwnerID != "" {
		for _, m := range matches {
			if m.Zone == MatchZonePenalty && m.OwnerID == targetOwnerID {
				return e.applyMatch(s, played, m, playerID), nil
			}
		}
	}

	var targets []string
	for _, m := range matches {
		if m.Zone == MatchZonePenalty {
			targets = append(targets, m.OwnerID)
		}
	}

	s.Turn.AwaitingTarget = true
	s.Turn.ValidTargets = targets
	s.Turn.PendingMove = &PendingMove{
		Card:              played,
		MatchOptions:      matches,
		SelectionDeadline: time.Now().Add(e.rules.SelectionTimeout),
	}
	s.Phase = PhaseResolvingMove
	s.LastUpdatedAt = time.Now()

	return &PlayOutcome{
		Success:              true,
		NeedsTargetSelection: true,
		ValidTargets:         matches,
	}, nil
}

// SelectTarget resolves a pending move against the chosen penalty stack.
func (e *Engine) SelectTarget(s *State, playerID, targetOwnerID string) (*PlayOutcome, error) {
	if s.Turn.CurrentPlayerID != playerID {
		return &PlayOutcome{ErrorCode: ErrCodeNotYourTurn}, nil
	}
	if !s.Turn.AwaitingTarget || s.Turn.PendingMove == nil {
		return &PlayOutcome{ErrorCode: ErrCodeNoPendingMove}, nil
	}

	pending := s.Turn.PendingMove
	for _, m := range pending.MatchOptions {
		if m.Zone == MatchZonePenalty && m.OwnerID == targetOwnerID {
			s.Turn.AwaitingTarget = false
			s.Turn.ValidTargets = nil
			s.Turn.PendingMove = nil
			return e.applyMatch(s, pending.Card, m, playerID), nil
		}
	}
	return &PlayOutcome{ErrorCode: ErrCodeInvalidTarget}, nil
}

// HandleTurnTimeout auto-plays the first card in the current player's hand.
// Deterministic on purpose: replays and audits must reproduce the fallback.
func (e *Engine) HandleTurnTimeout(s *State) (*PlayOutcome, error) {
	playerID := s.Turn.CurrentPlayerID
	hand := s.Hands[playerID]
	if len(hand) == 0 {
		return &PlayOutcome{ErrorCode: ErrCodeCardNotInHand}, nil
	}

	if e.logger != nil {
		e.logger.Warn("turn timeout, auto-playing",
			zap.String("room_id", s.RoomID),
			zap.String("player_id", playerID),
			zap.String("card_id", hand[0].ID),
		)
	}
	return e.PlayCard(s, playerID, hand[0].ID, "")
}

// HandleTargetSelectionTimeout resolves a pending move with the best
// candidate: lowest priority number, ties broken by candidate order.
func (e *Engine) HandleTargetSelectionTimeout(s *State) (*PlayOutcome, error) {
	if !s.Turn.AwaitingTarget || s.Turn.PendingMove == nil {
		return &PlayOutcome{ErrorCode: ErrCodeNoPendingMove}, nil
	}

	pending := s.Turn.PendingMove
	playerID := s.Turn.CurrentPlayerID

	best := pending.MatchOptions[0]
	for _, m := range pending.MatchOptions[1:] {
		if m.Priority < best.Priority {
			best = m
		}
	}

	if e.logger != nil {
		e.logger.Warn("target selection timeout, auto-selecting",
			zap.String("room_id", s.RoomID),
			zap.String("player_id", playerID),
			zap.String("zone", string(best.Zone)),
		)
	}

	s.Turn.AwaitingTarget = false
	s.Turn.ValidTargets = nil
	s.Turn.PendingMove = nil
	return e.applyMatch(s, pending.Card, best, playerID), nil
}

// applyNoMatch routes an unmatched card to the pool. It never lands in the
// acting player's own penalty stack. Removing a card from circulation can
// still seal a stack elsewhere, so seals are re-checked.
func (e *Engine) applyNoMatch(s *State, played card.Card, playerID string) *PlayOutcome {
	s.Pool = append(s.Pool, played)
	if loc := s.CardLocations[played.ID]; loc != nil {
		loc.Zone = ZonePool
		loc.Position = len(s.Pool) - 1
		loc.Accessible = true
	}

	e.logAction(s, ActionNoMatch, playerID, map[string]any{"card_id": played.ID})

	sealEvents := e.seals.CheckAndApplySeals(s)
	e.logSeals(s, sealEvents)
	e.advanceTurn(s)
	s.Round.CardsPlayed++
	s.LastUpdatedAt = time.Now()

	return &PlayOutcome{
		Success:    true,
		Result:     ResultNoMatch,
		PlayedCard: &played,
		SealEvents: sealEvents,
	}
}

// applyMatch removes the matched cards from their source zone and collects
// them together with the played card out of play.
func (e *Engine) applyMatch(s *State, played card.Card, match MatchOption, playerID string) *PlayOutcome {
	switch match.Zone {
	case MatchZoneCenter:
		for _, mc := range match.Cards {
			for i, slot := range s.OpenCenter {
				if slot != nil && slot.ID == mc.ID {
					s.OpenCenter[i] = nil
					break
				}
			}
		}
	case MatchZonePool:
		s.Pool = s.Pool[:len(s.Pool)-len(match.Cards)]
	case MatchZonePenalty:
		if stack, ok := s.PenaltySlots[match.OwnerID]; ok {
			stack.Cards = stack.Cards[:len(stack.Cards)-len(match.Cards)]
		}
	}

	collected := append([]card.Card{played}, match.Cards...)
	for _, c := range collected {
		if loc := s.CardLocations[c.ID]; loc != nil {
			loc.Zone = ZoneOutOfPlay
			loc.OwnerID = ""
			loc.Accessible = false
		}
	}

	matchedIDs := make([]string, len(match.Cards))
	for i, c := range match.Cards {
		matchedIDs[i] = c.ID
	}
	e.logAction(s, ActionMatch, playerID, map[string]any{
		"card_id":       played.ID,
		"matched_cards": matchedIDs,
		"zone":          string(match.Zone),
		"target_owner":  match.OwnerID,
	})

	sealEvents := e.seals.CheckAndApplySeals(s)
	e.logSeals(s, sealEvents)
	e.advanceTurn(s)
	s.Round.CardsPlayed++
	s.LastUpdatedAt = time.Now()

	return &PlayOutcome{
		Success:    true,
		Result:     ResultMatch,
		PlayedCard: &played,
		Match:      &match,
		SealEvents: sealEvents,
	}
}

func (e *Engine) logSeals(s *State, events []SealEvent) {
	for _, ev := range events {
		e.logAction(s, ActionSeal, ev.PlayerID, map[string]any{
			"sealed_rank":   string(ev.SealedRank),
			"stack_size":    ev.StackSize,
			"locked_points": ev.LockedPoints,
		})
	}
}

// advanceTurn hands the turn to the next player in fixed order, resets the
// per-turn timer and clears any pending-selection state.
func (e *Engine) advanceTurn(s *State) {
	next := 0
	for i, id := range s.TurnOrder {
		if id == s.Turn.CurrentPlayerID {
			next = (i + 1) % len(s.TurnOrder)
			break
		}
	}

	s.Turn = TurnState{
		CurrentPlayerID:    s.TurnOrder[next],
		CurrentPlayerIndex: next,
		TimeRemaining:      int(e.rules.TurnTimeout.Seconds()),
		TurnStartedAt:      time.Now(),
	}
	s.Phase = PhasePlayerTurn
}

// IsRoundOver reports whether every hand has been played out.
func (e *Engine) IsRoundOver(s *State) bool {
	for _, hand := range s.Hands {
		if len(hand) > 0 {
			return false
		}
	}
	return true
}

// IsGameOver reports whether the final round has been played out.
func (e *Engine) IsGameOver(s *State) bool {
	return s.Round.RoundNumber >= e.rules.RoundsPerGame && e.IsRoundOver(s)
}

// StartNextRound resets the board for the next round. Unsealed penalty
// stacks are cleared; sealed stacks persist untouched as locked penalty. A
// fresh deck is shuffled and every rank becomes fully accessible again.
func (e *Engine) StartNextRound(s *State) error {
	for _, stack := range s.PenaltySlots {
		if !stack.Sealed {
			stack.Cards = []card.Card{}
		}
	}
	s.Pool = []card.Card{}
	s.OpenCenter = make([]*card.Card, CenterSlots)

	s.Round = RoundState{
		RoundNumber: s.Round.RoundNumber + 1,
		DealPhase:   1,
	}

	deck, err := card.Shuffle(card.NewDeck())
	if err != nil {
		return fmt.Errorf("failed to shuffle deck: %w", err)
	}
	s.Deck = deck

	s.CardLocations = make(map[string]*CardLocation, len(deck))
	for _, c := range deck {
		s.CardLocations[c.ID] = &CardLocation{Zone: ZoneDeck, Accessible: false}
	}

	for _, playerID := range s.TurnOrder {
		s.Hands[playerID] = []card.Card{}
	}

	e.seals.InitializeAccessibility(s)
	s.Phase = PhaseDealing
	s.LastUpdatedAt = time.Now()

	if e.logger != nil {
		e.logger.Info("round started",
			zap.String("room_id", s.RoomID),
			zap.Int("round", s.Round.RoundNumber),
		)
	}
	return nil
}

// CalculateRoundScores derives each player's penalty from their stack
// contents. Sealed and unsealed cards both count, valued by the penalty
// point table.
func (e *Engine) CalculateRoundScores(s *State) *RoundEndResult {
	scores := make(map[string]int, len(s.TurnOrder))
	summary := make([]PlayerPenalty, 0, len(s.TurnOrder))

	for _, playerID := range s.TurnOrder {
		stack, ok := s.PenaltySlots[playerID]
		if !ok {
			continue
		}

		sealedCards := 0
		if stack.Sealed {
			sealedCards = len(stack.Cards) - stack.SealedAt
		}
		penalty := card.PenaltyTotal(stack.Cards)

		scores[playerID] = penalty
		summary = append(summary, PlayerPenalty{
			PlayerID:     playerID,
			PenaltyCards: len(stack.Cards),
			SealedCards:  sealedCards,
			RoundPenalty: penalty,
		})
	}

	return &RoundEndResult{
		RoundNumber:    s.Round.RoundNumber,
		Scores:         scores,
		PenaltySummary: summary,
	}
}

// CalculateGameResults sums the round scores and ranks players ascending:
// the lowest total penalty wins.
func (e *Engine) CalculateGameResults(s *State, roundResults []*RoundEndResult) *GameEndResult {
	totals := make(map[string]int, len(s.TurnOrder))
	for _, playerID := range s.TurnOrder {
		totals[playerID] = 0
	}
	for _, round := range roundResults {
		for playerID, score := range round.Scores {
			totals[playerID] += score
		}
	}

	rankings := make([]PlayerRanking, 0, len(s.TurnOrder))
	for _, playerID := range s.TurnOrder {
		rankings = append(rankings, PlayerRanking{
			PlayerID:   playerID,
			TotalScore: totals[playerID],
		})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].TotalScore < rankings[j].TotalScore
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	result := &GameEndResult{
		MatchID:     uuid.NewString(),
		Winner:      rankings[0].PlayerID,
		Rankings:    rankings,
		RoundScores: roundResults,
		Duration:    time.Since(s.StartedAt),
	}
	e.logAction(s, ActionGameEnd, "", map[string]any{
		"match_id": result.MatchID,
		"winner":   result.Winner,
	})
	return result
}

func (e *Engine) logAction(s *State, actionType, playerID string, data map[string]any) {
	s.ActionLog = append(s.ActionLog, Action{
		ID:        uuid.NewString(),
		Type:      actionType,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func indexOfCard(hand []card.Card, cardID string) int {
	for i, c := range hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}
