package state

import (
	"time"

	"github.com/matchdown/matchdown-server-go/internal/card"
	"github.com/matchdown/matchdown-server-go/internal/game"
)

// ClientView is the game state as seen by one player. This projection is the
// only sanctioned channel for exposing state externally: opponents' hands and
// buried penalty cards are the game's hidden information, so everything
// except the viewer's own hand is reduced to counts and visible tops.
type ClientView struct {
	RoomID string          `json:"room_id"`
	Phase  game.Phase      `json:"phase"`
	Round  game.RoundState `json:"round"`

	// The viewer's own data, unmasked.
	MyID    string      `json:"my_id"`
	MyIndex int         `json:"my_index"`
	MyHand  []card.Card `json:"my_hand"`

	// Public board.
	OpenCenter []*card.Card `json:"open_center"`
	PoolTop    *card.Card   `json:"pool_top,omitempty"`
	PoolCount  int          `json:"pool_count"`

	Players []ClientPlayer `json:"players"`
	Turn    ClientTurn     `json:"turn"`

	ServerTime time.Time `json:"server_time"`
}

// ClientPlayer is what any player may see about another player.
type ClientPlayer struct {
	ID          string            `json:"id"`
	Nickname    string            `json:"nickname"`
	SeatIndex   int               `json:"seat_index"`
	CardCount   int               `json:"card_count"`
	Connected   bool              `json:"connected"`
	PenaltySlot ClientPenaltySlot `json:"penalty_slot"`
}

// ClientPenaltySlot is the visible portion of a penalty stack: the same-rank
// top run, a count of what lies buried beneath, and the sealed flag. The
// buried cards themselves never leave the server.
type ClientPenaltySlot struct {
	OwnerID     string      `json:"owner_id"`
	TopCards    []card.Card `json:"top_cards"`
	BuriedCount int         `json:"buried_count"`
	Sealed      bool        `json:"sealed"`
}

// ClientTurn is the turn info shared with clients. ValidTargets is populated
// only for the player whose selection is pending.
type ClientTurn struct {
	CurrentPlayerID    string   `json:"current_player_id"`
	CurrentPlayerIndex int      `json:"current_player_index"`
	TimeRemaining      int      `json:"time_remaining"`
	AwaitingTarget     bool     `json:"awaiting_target"`
	ValidTargets       []string `json:"valid_targets,omitempty"`
}

// GetViewForPlayer projects the masked view for one player, or nil when the
// room or player is unknown.
func (st *Store) GetViewForPlayer(roomID, playerID string) *ClientView {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.states[roomID]
	if !ok {
		return nil
	}
	viewer := s.Player(playerID)
	if viewer == nil {
		return nil
	}

	players := make([]ClientPlayer, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, ClientPlayer{
			ID:          p.ID,
			Nickname:    p.Nickname,
			SeatIndex:   p.SeatIndex,
			CardCount:   len(s.Hands[p.ID]),
			Connected:   p.Connected,
			PenaltySlot: maskPenaltySlot(s.PenaltySlots[p.ID]),
		})
	}

	turn := ClientTurn{
		CurrentPlayerID:    s.Turn.CurrentPlayerID,
		CurrentPlayerIndex: s.Turn.CurrentPlayerIndex,
		TimeRemaining:      s.Turn.TimeRemaining,
		AwaitingTarget:     s.Turn.AwaitingTarget,
	}
	if s.Turn.CurrentPlayerID == playerID {
		turn.ValidTargets = append([]string(nil), s.Turn.ValidTargets...)
	}

	myHand := append([]card.Card(nil), s.Hands[playerID]...)

	return &ClientView{
		RoomID:     s.RoomID,
		Phase:      s.Phase,
		Round:      s.Round,
		MyID:       playerID,
		MyIndex:    viewer.SeatIndex,
		MyHand:     myHand,
		OpenCenter: append([]*card.Card(nil), s.OpenCenter...),
		PoolTop:    s.PoolTop(),
		PoolCount:  len(s.Pool),
		Players:    players,
		Turn:       turn,
		ServerTime: time.Now(),
	}
}

// maskPenaltySlot reduces a stack to its visible top run plus a buried count.
func maskPenaltySlot(stack *game.PenaltyStack) ClientPenaltySlot {
	if stack == nil || len(stack.Cards) == 0 {
		slot := ClientPenaltySlot{TopCards: []card.Card{}}
		if stack != nil {
			slot.OwnerID = stack.OwnerID
			slot.Sealed = stack.Sealed
		}
		return slot
	}

	top := stack.TopGroup()
	return ClientPenaltySlot{
		OwnerID:     stack.OwnerID,
		TopCards:    top,
		BuriedCount: len(stack.Cards) - len(top),
		Sealed:      stack.Sealed,
	}
}
