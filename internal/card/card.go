package card

import "fmt"

// Suit is one of the four playing card suits.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Rank is a playing card rank. Values are the short names used in card IDs.
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// AllSuits lists the suits in deck-building order.
var AllSuits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// AllRanks lists the ranks in deck-building order (ace low).
var AllRanks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

const (
	// DeckSize is the number of cards in a full deck.
	DeckSize = 52
	// CopiesPerRank is the number of physical copies of each rank (one per suit).
	CopiesPerRank = 4
)

// penaltyValues is the per-rank penalty point table. Threes, face cards and
// aces carry extra weight; every other rank scores its face value.
var penaltyValues = map[Rank]int{
	RankAce:   11,
	RankTwo:   2,
	RankThree: 30,
	RankFour:  4,
	RankFive:  5,
	RankSix:   6,
	RankSeven: 7,
	RankEight: 8,
	RankNine:  9,
	RankTen:   10,
	RankJack:  20,
	RankQueen: 15,
	RankKing:  10,
}

// Card is an immutable playing card. The ID is derived from rank and suit and
// is unique within a game.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
}

// New creates the card of the given rank and suit.
func New(rank Rank, suit Suit) Card {
	return Card{
		ID:   fmt.Sprintf("%s-%s", rank, suit),
		Suit: suit,
		Rank: rank,
	}
}

// PenaltyValue returns the penalty points this card is worth.
func (c Card) PenaltyValue() int {
	return penaltyValues[c.Rank]
}

// PenaltyValueOf returns the penalty points for a rank.
func PenaltyValueOf(rank Rank) int {
	return penaltyValues[rank]
}

// PenaltyTotal sums the penalty points of a set of cards.
func PenaltyTotal(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.PenaltyValue()
	}
	return total
}

func (c Card) String() string {
	return c.ID
}
