package room

import "time"

// Notification event types fanned out to the transport collaborator.
const (
	EventCardPlayed     = "CARD_PLAYED"
	EventAwaitingTarget = "AWAITING_TARGET"
	EventSeal           = "SEAL"
	EventRoundEnd       = "ROUND_END"
	EventGameEnd        = "GAME_END"
	EventRoomPaused     = "ROOM_PAUSED"
	EventRoomResumed    = "ROOM_RESUMED"
	EventGraceExpired   = "GRACE_EXPIRED"
)

// Notification is one outbound event payload. PlayerID is empty for
// broadcasts; the transport layer decides how payloads reach connections.
type Notification struct {
	Type      string
	RoomID    string
	PlayerID  string
	Timestamp time.Time
	Data      map[string]any
}

// NotificationHandler receives outbound events. Handlers run on their own
// goroutine and may safely call back into the manager.
type NotificationHandler func(Notification)
