package card

import (
	"testing"
)

func TestNewDeck_Composition(t *testing.T) {
	deck := NewDeck()

	if len(deck) != DeckSize {
		t.Fatalf("Expected %d cards, got %d", DeckSize, len(deck))
	}

	seen := make(map[string]bool, DeckSize)
	rankCounts := make(map[Rank]int)
	suitCounts := make(map[Suit]int)
	for _, c := range deck {
		if seen[c.ID] {
			t.Errorf("Duplicate card ID %s", c.ID)
		}
		seen[c.ID] = true
		rankCounts[c.Rank]++
		suitCounts[c.Suit]++
	}

	for _, rank := range AllRanks {
		if rankCounts[rank] != CopiesPerRank {
			t.Errorf("Expected %d copies of rank %s, got %d", CopiesPerRank, rank, rankCounts[rank])
		}
	}
	for _, suit := range AllSuits {
		if suitCounts[suit] != len(AllRanks) {
			t.Errorf("Expected %d cards of suit %s, got %d", len(AllRanks), suit, suitCounts[suit])
		}
	}
}

func TestNew_ID(t *testing.T) {
	c := New(RankQueen, SuitHearts)
	if c.ID != "Q-hearts" {
		t.Errorf("Expected ID Q-hearts, got %s", c.ID)
	}
	if c.String() != c.ID {
		t.Errorf("Expected String() to equal ID, got %s", c.String())
	}
}

func TestShuffle_PreservesDeck(t *testing.T) {
	deck := NewDeck()
	shuffled, err := Shuffle(deck)
	if err != nil {
		t.Fatalf("Shuffle failed: %v", err)
	}
	if len(shuffled) != DeckSize {
		t.Fatalf("Expected %d cards after shuffle, got %d", DeckSize, len(shuffled))
	}

	seen := make(map[string]bool, DeckSize)
	for _, c := range shuffled {
		if seen[c.ID] {
			t.Errorf("Duplicate card ID %s after shuffle", c.ID)
		}
		seen[c.ID] = true
	}
	for _, c := range deck {
		if !seen[c.ID] {
			t.Errorf("Card %s missing after shuffle", c.ID)
		}
	}
}

func TestPenaltyValues(t *testing.T) {
	cases := []struct {
		rank     Rank
		expected int
	}{
		{RankThree, 30},
		{RankJack, 20},
		{RankQueen, 15},
		{RankAce, 11},
		{RankKing, 10},
		{RankTen, 10},
		{RankTwo, 2},
		{RankSeven, 7},
		{RankNine, 9},
	}

	for _, tc := range cases {
		if got := PenaltyValueOf(tc.rank); got != tc.expected {
			t.Errorf("Expected rank %s to score %d, got %d", tc.rank, tc.expected, got)
		}
	}
}

func TestPenaltyTotal(t *testing.T) {
	cards := []Card{
		New(RankThree, SuitHearts),
		New(RankJack, SuitSpades),
		New(RankFour, SuitClubs),
	}
	if got := PenaltyTotal(cards); got != 54 {
		t.Errorf("Expected total 54, got %d", got)
	}
	if got := PenaltyTotal(nil); got != 0 {
		t.Errorf("Expected empty total 0, got %d", got)
	}
}
