package game

import (
	"fmt"

	"memory-match-server/engine"
)

// CardView is the client-facing representation of a card.
// Value is only included when the card is face-up or matched.
type CardView struct {
	ID        int    `json:"id"`
	Value     string `json:"value,omitempty"`
	IsFlipped bool   `json:"isFlipped"`
	IsMatched bool   `json:"isMatched"`
}

// StateMsg is the full game state sent to the renderer after every change.
type StateMsg struct {
	Type      string     `json:"type"`
	SessionID string     `json:"sessionId"`
	Cards     []CardView `json:"cards"`
	Score     int        `json:"score"`
	Moves     int        `json:"moves"`
	WinState  bool       `json:"winState"`
	Phase     string     `json:"phase"`
}

// WonMsg is sent once when every pair of the round has been matched.
type WonMsg struct {
	Type    string `json:"type"`
	Score   int    `json:"score"`
	Moves   int    `json:"moves"`
	Message string `json:"message"`
}

// ErrorMsg is sent when a player action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BuildCardViews constructs the client-facing card list.
// Face-down cards do not expose their value.
func BuildCardViews(cards []engine.Card) []CardView {
	views := make([]CardView, len(cards))
	for i, card := range cards {
		cv := CardView{
			ID:        card.ID,
			IsFlipped: card.IsFlipped,
			IsMatched: card.IsMatched,
		}
		if card.IsFlipped || card.IsMatched {
			cv.Value = card.Value
		}
		views[i] = cv
	}
	return views
}

// BuildStateMsg returns the renderer view of e for session id.
func BuildStateMsg(id string, e *engine.Engine) StateMsg {
	snap := e.Snapshot()
	return StateMsg{
		Type:      "game_state",
		SessionID: id,
		Cards:     BuildCardViews(snap.Cards),
		Score:     snap.Score,
		Moves:     snap.Moves,
		WinState:  snap.WinState,
		Phase:     e.Phase().String(),
	}
}

// WinMessage is the banner shown when a round is won.
func WinMessage(score, moves int) string {
	return fmt.Sprintf("Congratulations! You completed the game in %d moves, your score is %d", moves, score)
}
