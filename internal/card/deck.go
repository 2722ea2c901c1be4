package card

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewDeck builds the full 52-card deck in canonical order (suits outer, ranks
// inner). Callers shuffle before dealing.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range AllSuits {
		for _, rank := range AllRanks {
			deck = append(deck, New(rank, suit))
		}
	}
	return deck
}

// Shuffle returns an unbiased random permutation of deck using Fisher-Yates
// driven by crypto/rand. Deal fairness depends on the random source being
// unpredictable, so math/rand is not acceptable here.
func Shuffle(deck []Card) ([]Card, error) {
	shuffled := make([]Card, len(deck))
	copy(shuffled, deck)

	for i := len(shuffled) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("failed to draw shuffle index: %w", err)
		}
		j := int(n.Int64())
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled, nil
}
