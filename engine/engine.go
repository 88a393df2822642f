package engine

import "fmt"

// Phase is the round-level state derived from the deck and pending flips.
type Phase int

const (
	Playing Phase = iota
	Resolving
	Won
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case Playing:
		return "playing"
	case Resolving:
		return "resolving"
	case Won:
		return "won"
	default:
		return "unknown"
	}
}

// ClickOutcome describes what an accepted or rejected click did.
type ClickOutcome int

const (
	// ClickIgnored means the card was matched, already face-up, or a pair is awaiting resolution.
	ClickIgnored ClickOutcome = iota
	// ClickFlipped means the first card of a pair was turned face-up.
	ClickFlipped
	// ClickPairRevealed means the second card was turned face-up and a Resolution must be scheduled.
	ClickPairRevealed
)

// String returns a short label for a ClickOutcome.
func (o ClickOutcome) String() string {
	switch o {
	case ClickIgnored:
		return "ignored"
	case ClickFlipped:
		return "flipped"
	case ClickPairRevealed:
		return "pair_revealed"
	default:
		return "unknown"
	}
}

// Resolution is the deferred action produced by the second click of a pair.
// It is only honored by the round (Generation) and pair it was created for.
type Resolution struct {
	Generation uint64
	First      int
	Second     int
	Match      bool
}

// Snapshot is the renderer-facing view of the engine.
type Snapshot struct {
	Cards    []Card `json:"cards"`
	Score    int    `json:"score"`
	Moves    int    `json:"moves"`
	WinState bool   `json:"winState"`
}

// Engine is the turn-resolution state machine for one memory game.
// It is not safe for concurrent use; a single owner must serialize calls.
type Engine struct {
	values       []string
	deck         []Card
	pendingFlips []int
	score        int
	moves        int
	matchedCount int
	generation   uint64
}

// New validates values and deals the first round.
func New(values []string) (*Engine, error) {
	if err := ValidateValues(values); err != nil {
		return nil, err
	}
	v := make([]string, len(values))
	copy(v, values)
	e := &Engine{values: v}
	e.deal()
	return e, nil
}

// Reset discards the current round and deals a fresh one. Any Resolution
// issued before the reset becomes stale.
func (e *Engine) Reset() {
	e.generation++
	e.deal()
}

func (e *Engine) deal() {
	e.deck = NewDeck(e.values)
	e.pendingFlips = make([]int, 0, 2)
	e.score = 0
	e.moves = 0
	e.matchedCount = 0
}

// Click flips the card with the given id.
//
// Matched cards, face-up cards and clicks while two cards are pending are
// silently ignored. An id outside the deck returns ErrInvalidCard. When the
// click reveals the second card of a pair, the returned Resolution must be
// handed back to Resolve once the reveal delay elapses.
func (e *Engine) Click(id int) (ClickOutcome, *Resolution, error) {
	if id < 0 || id >= len(e.deck) {
		return ClickIgnored, nil, fmt.Errorf("card %d: %w", id, ErrInvalidCard)
	}
	card := &e.deck[id]
	if card.IsMatched || card.IsFlipped || len(e.pendingFlips) >= 2 {
		return ClickIgnored, nil, nil
	}

	card.IsFlipped = true
	e.pendingFlips = append(e.pendingFlips, id)
	e.moves++

	if len(e.pendingFlips) == 1 {
		return ClickFlipped, nil, nil
	}

	first := e.deck[e.pendingFlips[0]]
	return ClickPairRevealed, &Resolution{
		Generation: e.generation,
		First:      first.ID,
		Second:     id,
		Match:      first.Value == card.Value,
	}, nil
}

// Resolve applies a Resolution issued by Click. It returns false, leaving the
// engine untouched, when the resolution belongs to an earlier round or to a
// pair that is no longer pending.
func (e *Engine) Resolve(r Resolution) bool {
	if r.Generation != e.generation {
		return false
	}
	if len(e.pendingFlips) != 2 || e.pendingFlips[0] != r.First || e.pendingFlips[1] != r.Second {
		return false
	}

	first := &e.deck[r.First]
	second := &e.deck[r.Second]
	if r.Match {
		first.IsMatched = true
		second.IsMatched = true
		e.matchedCount += 2
		e.score++
	} else {
		first.IsFlipped = false
		second.IsFlipped = false
	}
	e.pendingFlips = e.pendingFlips[:0]
	return true
}

// WinState reports whether every card in the deck is matched.
func (e *Engine) WinState() bool {
	return e.matchedCount == len(e.deck)
}

// Phase returns the current round phase.
func (e *Engine) Phase() Phase {
	switch {
	case e.WinState():
		return Won
	case len(e.pendingFlips) == 2:
		return Resolving
	default:
		return Playing
	}
}

// Snapshot returns a copy of the observable state.
func (e *Engine) Snapshot() Snapshot {
	cards := make([]Card, len(e.deck))
	copy(cards, e.deck)
	return Snapshot{
		Cards:    cards,
		Score:    e.score,
		Moves:    e.moves,
		WinState: e.WinState(),
	}
}

// Card returns the card with the given id.
func (e *Engine) Card(id int) (Card, bool) {
	if id < 0 || id >= len(e.deck) {
		return Card{}, false
	}
	return e.deck[id], true
}

// PendingFlips returns the ids of face-up cards awaiting resolution.
func (e *Engine) PendingFlips() []int {
	out := make([]int, len(e.pendingFlips))
	copy(out, e.pendingFlips)
	return out
}

func (e *Engine) Score() int        { return e.score }
func (e *Engine) Moves() int        { return e.moves }
func (e *Engine) MatchedCount() int { return e.matchedCount }
func (e *Engine) Len() int          { return len(e.deck) }

// Generation identifies the current round; it increments on every Reset.
func (e *Engine) Generation() uint64 { return e.generation }
