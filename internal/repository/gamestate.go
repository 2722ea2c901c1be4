package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/matchdown/matchdown-server-go/internal/game"
)

// GameStateRepository persists room snapshots to PostgreSQL. It satisfies the
// room package's persistence gateway.
type GameStateRepository struct {
	db *DB
}

// NewGameStateRepository returns a snapshot repository over the given pool.
func NewGameStateRepository(db *DB) *GameStateRepository {
	return &GameStateRepository{db: db}
}

// EnsureSchema creates the game_states table when it does not exist yet.
func (r *GameStateRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_states (
			room_id    TEXT PRIMARY KEY,
			snapshot   JSONB NOT NULL,
			checksum   TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create game_states table: %w", err)
	}
	return nil
}

// SaveState upserts the room's snapshot.
func (r *GameStateRepository) SaveState(ctx context.Context, roomID string, snap *game.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", roomID, err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO game_states (room_id, snapshot, checksum, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (room_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot,
		              checksum = EXCLUDED.checksum,
		              updated_at = now()`,
		roomID, payload, snap.Checksum)
	if err != nil {
		return fmt.Errorf("save state for %s: %w", roomID, err)
	}

	r.db.logger.Debug("state persisted",
		zap.String("room_id", roomID),
		zap.String("checksum", snap.Checksum))
	return nil
}

// LoadState returns the room's snapshot, or (nil, nil) when none is stored.
func (r *GameStateRepository) LoadState(ctx context.Context, roomID string) (*game.Snapshot, error) {
	var payload []byte
	err := r.db.pool.QueryRow(ctx,
		`SELECT snapshot FROM game_states WHERE room_id = $1`, roomID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", roomID, err)
	}

	var snap game.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", roomID, err)
	}
	return &snap, nil
}

// DeleteState removes the room's snapshot. Missing rows are not an error.
func (r *GameStateRepository) DeleteState(ctx context.Context, roomID string) error {
	_, err := r.db.pool.Exec(ctx,
		`DELETE FROM game_states WHERE room_id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("delete state for %s: %w", roomID, err)
	}
	return nil
}

// Exists reports whether a snapshot is stored for the room.
func (r *GameStateRepository) Exists(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_states WHERE room_id = $1)`, roomID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check state for %s: %w", roomID, err)
	}
	return exists, nil
}

// ListRoomIDs returns every room ID with a stored snapshot, oldest first.
func (r *GameStateRepository) ListRoomIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT room_id FROM game_states ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list persisted rooms: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
