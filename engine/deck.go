package engine

import (
	"fmt"
	"math/rand"
)

// DefaultValues is the deck dealt to every browser session: eight fruit pairs.
var DefaultValues = []string{
	"🍎", "🍌", "🍇", "🍊", "🍓", "🥝", "🍑", "🍒",
	"🍎", "🍌", "🍇", "🍊", "🍓", "🥝", "🍑", "🍒",
}

// Card represents a single card in the deck.
type Card struct {
	ID        int    `json:"id"`
	Value     string `json:"value"`
	IsFlipped bool   `json:"isFlipped"`
	IsMatched bool   `json:"isMatched"`
}

// ValidateValues checks that values can form a deck: non-empty, even length,
// and every distinct value present exactly twice.
func ValidateValues(values []string) error {
	if len(values) == 0 {
		return &ConfigurationError{Reason: "deck is empty"}
	}
	if len(values)%2 != 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("deck has odd length %d", len(values))}
	}
	counts := make(map[string]int, len(values)/2)
	for _, v := range values {
		counts[v]++
	}
	for v, n := range counts {
		if n != 2 {
			return &ConfigurationError{Reason: fmt.Sprintf("value %q appears %d times, want 2", v, n)}
		}
	}
	return nil
}

// NewDeck shuffles values and assigns ids 0..N-1 in shuffled order.
// values is not modified. Callers are expected to have validated values.
func NewDeck(values []string) []Card {
	shuffled := make([]string, len(values))
	copy(shuffled, values)

	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cards := make([]Card, len(shuffled))
	for i, v := range shuffled {
		cards[i] = Card{ID: i, Value: v}
	}
	return cards
}
