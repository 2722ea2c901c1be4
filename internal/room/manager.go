package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/game"
	"github.com/matchdown/matchdown-server-go/internal/state"
)

// persistTimeout bounds each background snapshot write.
const persistTimeout = 5 * time.Second

// Manager orchestrates game rooms: it drives the engine, owns the per-room
// timers, fans out notifications, and persists a snapshot after every
// state-mutating operation. All operations on the same room are serialized
// through that room's runtime lock; operations on different rooms run
// concurrently.
type Manager struct {
	logger    *zap.Logger
	engine    *game.Engine
	seals     *game.SealEngine
	store     *state.Store
	gateway   Gateway
	scheduler Scheduler
	grace     time.Duration

	mu      sync.Mutex
	rooms   map[string]*roomRuntime
	handler NotificationHandler
}

// roomRuntime is the per-room bookkeeping the engine does not carry: live
// timer handles and accumulated round results. Guarded by its own mutex so
// rooms never block each other.
type roomRuntime struct {
	mu             sync.Mutex
	turnTimer      TimerHandle
	selectionTimer TimerHandle
	graceTimer     TimerHandle
	roundResults   []*game.RoundEndResult
}

// NewManager wires a room manager over the given collaborators.
func NewManager(engine *game.Engine, seals *game.SealEngine, store *state.Store, gateway Gateway, scheduler Scheduler, grace time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		engine:    engine,
		seals:     seals,
		store:     store,
		gateway:   gateway,
		scheduler: scheduler,
		grace:     grace,
		rooms:     make(map[string]*roomRuntime),
	}
}

// SetNotificationHandler registers the outbound event sink. Events are
// delivered on a fresh goroutine so a slow transport never stalls play.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

func (m *Manager) emit(n Notification) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler == nil {
		return
	}
	n.Timestamp = time.Now()
	go handler(n)
}

func (m *Manager) runtime(roomID string) *roomRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.rooms[roomID]
	if !ok {
		rt = &roomRuntime{}
		m.rooms[roomID] = rt
	}
	return rt
}

func cancelTimer(h *TimerHandle) {
	if *h != nil {
		(*h).Cancel()
		*h = nil
	}
}

// CreateGame builds a fresh game for the room, deals the open center and all
// three hand phases, and starts the first turn clock. The room must not
// already be active.
func (m *Manager) CreateGame(roomID string, players []*game.PlayerState) (*game.State, error) {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if m.store.Has(roomID) {
		return nil, fmt.Errorf("room %s already has an active game", roomID)
	}

	s, err := m.engine.CreateGame(roomID, players)
	if err != nil {
		return nil, err
	}
	m.store.Set(roomID, s)

	if _, err := m.engine.DealOpenCenter(s); err != nil {
		m.store.Delete(roomID)
		return nil, err
	}
	m.store.TryPhaseTransition(roomID) // INITIALIZING -> DEALING

	for i := 0; i < game.DealPhasesPerRound; i++ {
		if _, err := m.engine.DealToPlayers(s); err != nil {
			m.store.Delete(roomID)
			return nil, err
		}
	}
	m.store.TryPhaseTransition(roomID) // DEALING -> PLAYER_TURN

	rt.roundResults = nil
	m.startTurnTimer(rt, roomID)
	m.persist(roomID, s)

	m.logger.Info("game created",
		zap.String("room_id", roomID),
		zap.String("first_player", s.Turn.CurrentPlayerID))
	return s, nil
}

// PlayCard plays a card from the player's hand. targetOwnerID is optional and
// pre-resolves a multi-candidate move against a penalty stack.
func (m *Manager) PlayCard(roomID, playerID, cardID, targetOwnerID string) (*game.PlayOutcome, error) {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := m.store.Get(roomID)
	if s == nil {
		return &game.PlayOutcome{ErrorCode: game.ErrCodeGameNotFound}, nil
	}
	outcome, err := m.engine.PlayCard(s, playerID, cardID, targetOwnerID)
	if err != nil {
		return nil, err
	}
	m.afterMove(rt, roomID, s, playerID, outcome)
	return outcome, nil
}

// SelectTarget resolves a pending multi-candidate move against the chosen
// penalty stack owner.
func (m *Manager) SelectTarget(roomID, playerID, targetOwnerID string) (*game.PlayOutcome, error) {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := m.store.Get(roomID)
	if s == nil {
		return &game.PlayOutcome{ErrorCode: game.ErrCodeGameNotFound}, nil
	}
	outcome, err := m.engine.SelectTarget(s, playerID, targetOwnerID)
	if err != nil {
		return nil, err
	}
	m.afterMove(rt, roomID, s, playerID, outcome)
	return outcome, nil
}

// HandleTurnTimeout force-plays the current player's first hand card. Wired
// to the turn timer but callable directly.
func (m *Manager) HandleTurnTimeout(roomID string) (*game.PlayOutcome, error) {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := m.store.Get(roomID)
	if s == nil {
		return &game.PlayOutcome{ErrorCode: game.ErrCodeGameNotFound}, nil
	}
	playerID := s.Turn.CurrentPlayerID
	outcome, err := m.engine.HandleTurnTimeout(s)
	if err != nil {
		return nil, err
	}
	m.afterMove(rt, roomID, s, playerID, outcome)
	return outcome, nil
}

// HandleTargetSelectionTimeout auto-resolves a pending move to its
// highest-priority candidate.
func (m *Manager) HandleTargetSelectionTimeout(roomID string) (*game.PlayOutcome, error) {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := m.store.Get(roomID)
	if s == nil {
		return &game.PlayOutcome{ErrorCode: game.ErrCodeGameNotFound}, nil
	}
	playerID := s.Turn.CurrentPlayerID
	outcome, err := m.engine.HandleTargetSelectionTimeout(s)
	if err != nil {
		return nil, err
	}
	m.afterMove(rt, roomID, s, playerID, outcome)
	return outcome, nil
}

// afterMove runs the shared post-operation flow: timer bookkeeping, event
// fan-out, round/game end detection, and persistence. Caller holds rt.mu.
func (m *Manager) afterMove(rt *roomRuntime, roomID string, s *game.State, playerID string, outcome *game.PlayOutcome) {
	if !outcome.Success && !outcome.NeedsTargetSelection {
		return
	}
	cancelTimer(&rt.turnTimer)
	cancelTimer(&rt.selectionTimer)

	for _, ev := range outcome.SealEvents {
		m.emit(Notification{
			Type:   EventSeal,
			RoomID: roomID,
			Data: map[string]any{
				"player_id":     ev.PlayerID,
				"sealed_rank":   string(ev.SealedRank),
				"stack_size":    ev.StackSize,
				"locked_points": ev.LockedPoints,
			},
		})
	}

	if outcome.NeedsTargetSelection {
		pending := s.Turn.PendingMove
		data := map[string]any{
			"player_id":     playerID,
			"valid_targets": s.Turn.ValidTargets,
		}
		if pending != nil {
			data["card_id"] = pending.Card.ID
			data["deadline"] = pending.SelectionDeadline
		}
		m.emit(Notification{Type: EventAwaitingTarget, RoomID: roomID, Data: data})
		rt.selectionTimer = m.scheduler.Schedule(m.engine.Rules().SelectionTimeout, func() {
			if _, err := m.HandleTargetSelectionTimeout(roomID); err != nil {
				m.logger.Error("selection timeout failed", zap.String("room_id", roomID), zap.Error(err))
			}
		})
		m.persist(roomID, s)
		return
	}

	data := map[string]any{
		"player_id": playerID,
		"result":    string(outcome.Result),
	}
	if outcome.PlayedCard != nil {
		data["card_id"] = outcome.PlayedCard.ID
	}
	if outcome.Match != nil {
		data["match_zone"] = string(outcome.Match.Zone)
		if outcome.Match.OwnerID != "" {
			data["match_owner"] = outcome.Match.OwnerID
		}
	}
	m.emit(Notification{Type: EventCardPlayed, RoomID: roomID, Data: data})

	if m.engine.IsRoundOver(s) {
		m.finishRound(rt, roomID, s)
	} else {
		m.startTurnTimer(rt, roomID)
	}
	m.persist(roomID, s)
}

// finishRound scores the ended round and either deals the next round or ends
// the game. Caller holds rt.mu.
func (m *Manager) finishRound(rt *roomRuntime, roomID string, s *game.State) {
	result := m.engine.CalculateRoundScores(s)
	rt.roundResults = append(rt.roundResults, result)
	s.Phase = game.PhaseRoundEnd
	s.ActionLog = append(s.ActionLog, game.Action{
		ID:        uuid.NewString(),
		Type:      game.ActionRoundEnd,
		Timestamp: time.Now(),
		Data:      map[string]any{"round_number": result.RoundNumber},
	})

	hasNext := !m.engine.IsGameOver(s)
	m.emit(Notification{
		Type:   EventRoundEnd,
		RoomID: roomID,
		Data: map[string]any{
			"round_number": result.RoundNumber,
			"scores":       result.Scores,
			"has_next":     hasNext,
		},
	})

	if !hasNext {
		m.store.TryPhaseTransition(roomID) // ROUND_END -> GAME_OVER
		final := m.engine.CalculateGameResults(s, rt.roundResults)
		m.emit(Notification{
			Type:   EventGameEnd,
			RoomID: roomID,
			Data: map[string]any{
				"match_id": final.MatchID,
				"winner":   final.Winner,
				"rankings": final.Rankings,
				"duration": final.Duration.Seconds(),
			},
		})
		m.logger.Info("game over",
			zap.String("room_id", roomID),
			zap.String("winner", final.Winner))
		return
	}

	if err := m.engine.StartNextRound(s); err != nil {
		m.logger.Error("next round failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if _, err := m.engine.DealOpenCenter(s); err != nil {
		m.logger.Error("center deal failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	for i := 0; i < game.DealPhasesPerRound; i++ {
		if _, err := m.engine.DealToPlayers(s); err != nil {
			m.logger.Error("hand deal failed", zap.String("room_id", roomID), zap.Error(err))
			return
		}
	}
	m.store.TryPhaseTransition(roomID) // DEALING -> PLAYER_TURN
	m.startTurnTimer(rt, roomID)
}

// startTurnTimer arms the turn clock for whoever currently holds the turn.
// Caller holds rt.mu.
func (m *Manager) startTurnTimer(rt *roomRuntime, roomID string) {
	rt.turnTimer = m.scheduler.Schedule(m.engine.Rules().TurnTimeout, func() {
		if _, err := m.HandleTurnTimeout(roomID); err != nil {
			m.logger.Error("turn timeout failed", zap.String("room_id", roomID), zap.Error(err))
		}
	})
}

// HandleDisconnect marks the player disconnected, pauses the room, and arms
// the reconnect grace timer. Returns false when room or player is unknown.
func (m *Manager) HandleDisconnect(roomID, playerID string) bool {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := m.store.Get(roomID)
	if s == nil {
		return false
	}
	p := s.Player(playerID)
	if p == nil {
		return false
	}
	p.Connected = false
	p.LastActiveAt = time.Now()

	if m.store.Pause(roomID) {
		cancelTimer(&rt.turnTimer)
		cancelTimer(&rt.selectionTimer)
		m.emit(Notification{
			Type:   EventRoomPaused,
			RoomID: roomID,
			Data:   map[string]any{"player_id": playerID},
		})
	}
	cancelTimer(&rt.graceTimer)
	rt.graceTimer = m.scheduler.Schedule(m.grace, func() {
		m.emit(Notification{
			Type:     EventGraceExpired,
			RoomID:   roomID,
			PlayerID: playerID,
			Data:     map[string]any{"player_id": playerID},
		})
	})

	m.persist(roomID, s)
	m.logger.Info("player disconnected",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	return true
}

// HandleReconnect marks the player connected again and resumes the room once
// every seat is back. Returns false when room or player is unknown.
func (m *Manager) HandleReconnect(roomID, playerID string) bool {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := m.store.Get(roomID)
	if s == nil {
		return false
	}
	p := s.Player(playerID)
	if p == nil {
		return false
	}
	p.Connected = true
	p.LastActiveAt = time.Now()
	cancelTimer(&rt.graceTimer)

	allConnected := true
	for _, other := range s.Players {
		if !other.Connected {
			allConnected = false
			break
		}
	}
	if allConnected && s.Phase == game.PhasePaused && m.store.Resume(roomID) {
		m.emit(Notification{
			Type:   EventRoomResumed,
			RoomID: roomID,
			Data:   map[string]any{"player_id": playerID},
		})
		m.rearmTimers(rt, roomID, s)
	}

	m.persist(roomID, s)
	m.logger.Info("player reconnected",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	return true
}

// rearmTimers restarts whichever clock the current phase needs. A pending
// move whose deadline already passed gets a short final window rather than
// firing inline under the lock. Caller holds rt.mu.
func (m *Manager) rearmTimers(rt *roomRuntime, roomID string, s *game.State) {
	switch s.Phase {
	case game.PhasePlayerTurn:
		m.startTurnTimer(rt, roomID)
	case game.PhaseResolvingMove:
		d := m.engine.Rules().SelectionTimeout
		if s.Turn.PendingMove != nil {
			if remaining := time.Until(s.Turn.PendingMove.SelectionDeadline); remaining > time.Second {
				d = remaining
			} else {
				d = time.Second
			}
		}
		rt.selectionTimer = m.scheduler.Schedule(d, func() {
			if _, err := m.HandleTargetSelectionTimeout(roomID); err != nil {
				m.logger.Error("selection timeout failed", zap.String("room_id", roomID), zap.Error(err))
			}
		})
	}
}

// GetViewForPlayer projects the masked client view for one player. The room's
// runtime lock serializes the read against mutating operations; the store's
// own lock does not cover in-place state mutation.
func (m *Manager) GetViewForPlayer(roomID, playerID string) *state.ClientView {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return m.store.GetViewForPlayer(roomID, playerID)
}

// RoundResults returns the results of all completed rounds so far.
func (m *Manager) RoundResults(roomID string) []*game.RoundEndResult {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*game.RoundEndResult, len(rt.roundResults))
	copy(out, rt.roundResults)
	return out
}

// EndGame tears the room down: timers cancelled, live state dropped, and the
// persisted snapshot removed.
func (m *Manager) EndGame(ctx context.Context, roomID string) error {
	rt := m.runtime(roomID)
	rt.mu.Lock()
	cancelTimer(&rt.turnTimer)
	cancelTimer(&rt.selectionTimer)
	cancelTimer(&rt.graceTimer)
	rt.mu.Unlock()

	m.store.Delete(roomID)
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()

	if err := m.gateway.DeleteState(ctx, roomID); err != nil {
		return fmt.Errorf("delete persisted state for %s: %w", roomID, err)
	}
	m.logger.Info("game ended", zap.String("room_id", roomID))
	return nil
}

// Hydrate restores every persisted room after a restart. Snapshots that fail
// checksum verification are skipped and logged; their rooms stay down until
// operators intervene.
func (m *Manager) Hydrate(ctx context.Context) error {
	ids, err := m.gateway.ListRoomIDs(ctx)
	if err != nil {
		return fmt.Errorf("list persisted rooms: %w", err)
	}

	restored := 0
	for _, roomID := range ids {
		snap, err := m.gateway.LoadState(ctx, roomID)
		if err != nil {
			m.logger.Error("load snapshot failed", zap.String("room_id", roomID), zap.Error(err))
			continue
		}
		if snap == nil {
			continue
		}
		ok, err := snap.Verify()
		if err != nil {
			m.logger.Error("snapshot verify failed", zap.String("room_id", roomID), zap.Error(err))
			continue
		}
		if !ok {
			m.logger.Error("snapshot checksum mismatch, room not restored",
				zap.String("room_id", roomID))
			continue
		}

		s := snap.State
		m.seals.RebuildAccessibility(s)
		m.store.Set(roomID, s)

		rt := m.runtime(roomID)
		rt.mu.Lock()
		if s.Phase != game.PhasePaused && s.Phase != game.PhaseGameOver {
			m.rearmTimers(rt, roomID, s)
		}
		rt.mu.Unlock()
		restored++
	}

	m.logger.Info("hydration complete",
		zap.Int("persisted", len(ids)),
		zap.Int("restored", restored))
	return nil
}

// Shutdown cancels all live timers. In-flight persistence goroutines finish
// on their own; play stops immediately.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	rooms := make([]*roomRuntime, 0, len(m.rooms))
	for _, rt := range m.rooms {
		rooms = append(rooms, rt)
	}
	m.mu.Unlock()

	for _, rt := range rooms {
		rt.mu.Lock()
		cancelTimer(&rt.turnTimer)
		cancelTimer(&rt.selectionTimer)
		cancelTimer(&rt.graceTimer)
		rt.mu.Unlock()
	}
}

// persist snapshots the state and writes it out on a background goroutine.
// The snapshot deep-copies the state, so play continues while the write runs.
func (m *Manager) persist(roomID string, s *game.State) {
	snap, err := game.NewSnapshot(s)
	if err != nil {
		m.logger.Error("snapshot failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.gateway.SaveState(ctx, roomID, snap); err != nil {
			m.logger.Error("persist failed", zap.String("room_id", roomID), zap.Error(err))
		}
	}()
}
