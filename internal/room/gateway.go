package room

import (
	"context"

	"github.com/matchdown/matchdown-server-go/internal/game"
)

// Gateway is the persistence contract the room manager consumes. The manager
// saves after every state-mutating operation without blocking play, and loads
// only during crash-recovery hydration before a room accepts operations.
type Gateway interface {
	SaveState(ctx context.Context, roomID string, snap *game.Snapshot) error
	// LoadState returns (nil, nil) when no snapshot exists for the room.
	LoadState(ctx context.Context, roomID string) (*game.Snapshot, error)
	DeleteState(ctx context.Context, roomID string) error
	Exists(ctx context.Context, roomID string) (bool, error)
	ListRoomIDs(ctx context.Context) ([]string, error)
}
