package game

import "errors"

// Structural errors. These indicate prior state corruption, abort the current
// operation and are escalated to the orchestration layer; they are never
// patched over locally.
var (
	// ErrWrongPlayerCount is returned when a game is created without exactly
	// four players.
	ErrWrongPlayerCount = errors.New("game requires exactly 4 players")

	// ErrDeckExhausted is returned when a deal pops from an empty deck.
	ErrDeckExhausted = errors.New("not enough cards in deck")
)
