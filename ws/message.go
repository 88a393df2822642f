package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// AuthMsg is sent by the client before set_name to attach a signed-in account.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// SetNameMsg declares a display name and starts a session.
type SetNameMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ClickCardMsg is sent when the player clicks a card. ID is required.
type ClickCardMsg struct {
	Type string `json:"type"`
	ID   *int   `json:"id"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AuthenticatedMsg confirms a valid token.
type AuthenticatedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// SessionStartedMsg is sent once when the lobby creates a session, before the first game_state.
type SessionStartedMsg struct {
	Type          string `json:"type"`
	SessionID     string `json:"sessionId"`
	DeckSize      int    `json:"deckSize"`
	RevealDelayMS int    `json:"revealDelayMs"`
}

// SessionEndedMsg is sent after the session's game loop stops.
type SessionEndedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}
