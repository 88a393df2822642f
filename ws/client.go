package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"memory-match-server/auth"
	"memory-match-server/game"
	"memory-match-server/matcherrors"
	"memory-match-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	// mu guards name, userID and game, which the lobby reads from its own goroutine.
	mu     sync.Mutex
	name   string
	userID string // set by a successful auth message; empty for guests
	game   *game.Game
}

// NewClient creates a client without a connection. Used by the lobby tests.
func NewClient(name, userID string, send chan []byte) *Client {
	return &Client{name: name, userID: userID, Send: send}
}

// Name returns the client's display name.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// UserID returns the authenticated user id, or empty for guests.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Identity returns name and user id read together.
func (c *Client) Identity() (name, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.userID
}

// Game returns the client's current session, or nil.
func (c *Client) Game() *game.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

// SetGame attaches a session to the client.
func (c *Client) SetGame(g *game.Game) {
	c.mu.Lock()
	c.game = g
	c.mu.Unlock()
}

// ClearGame detaches g if it is still the client's current session.
func (c *Client) ClearGame(g *game.Game) {
	c.mu.Lock()
	if c.game == g {
		c.game = nil
	}
	c.mu.Unlock()
}

// ReadPump pumps messages from the websocket connection to the hub.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("read error", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Raw)
	case "set_name":
		c.handleSetName(envelope.Raw)
	case "click_card":
		c.handleClickCard(envelope.Raw)
	case "reset":
		c.handleReset()
	case "leave":
		c.handleLeave()
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleAuth(raw json.RawMessage) {
	if c.Hub.Auth == nil || !c.Hub.Auth.Enabled() {
		c.sendError(sessionErrorText(matcherrors.ErrAuthDisabled))
		return
	}
	if c.Game() != nil {
		c.sendError("Cannot sign in during a session.")
		return
	}

	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Token == "" {
		c.sendError("Invalid auth message.")
		return
	}

	claims, err := c.Hub.Auth.Validate(msg.Token)
	if err != nil {
		slog.Debug("auth rejected", "tag", "ws", "err", err)
		c.sendError("Invalid or expired token.")
		return
	}
	c.mu.Lock()
	c.userID = auth.UserIDFromClaims(claims)
	if c.name == "" {
		c.name = auth.DisplayNameFromClaims(claims)
	}
	name, userID := c.name, c.userID
	c.mu.Unlock()
	wsutil.SendJSON(c.Send, AuthenticatedMsg{Type: "authenticated", UserID: userID, Name: name})
}

func (c *Client) handleSetName(raw json.RawMessage) {
	var msg SetNameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid set_name message.")
		return
	}

	name := strings.TrimSpace(msg.Name)
	maxLen := c.Hub.Config.MaxNameLength
	if n := utf8.RuneCountInString(name); n < 1 || n > maxLen {
		c.sendError("Name must be between 1 and " + strconv.Itoa(maxLen) + " characters.")
		return
	}

	if c.Game() != nil {
		c.sendError(sessionErrorText(matcherrors.ErrAlreadyPlaying))
		return
	}

	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	c.Hub.Lobby.Enqueue(c)
}

func (c *Client) handleClickCard(raw json.RawMessage) {
	g := c.Game()
	if g == nil {
		c.sendError(sessionErrorText(matcherrors.ErrNoActiveSession))
		return
	}

	var msg ClickCardMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ID == nil {
		c.sendError("Invalid click_card message.")
		return
	}

	if !g.Click(*msg.ID) {
		c.sendError(sessionErrorText(matcherrors.ErrSessionFinished))
	}
}

func (c *Client) handleReset() {
	g := c.Game()
	if g == nil {
		c.sendError(sessionErrorText(matcherrors.ErrNoActiveSession))
		return
	}
	if !g.Reset() {
		c.sendError(sessionErrorText(matcherrors.ErrSessionFinished))
	}
}

func (c *Client) handleLeave() {
	if err := c.Hub.Lobby.Leave(c); err != nil {
		c.sendError(sessionErrorText(err))
	}
}

func (c *Client) sendError(message string) {
	wsutil.SendJSON(c.Send, ErrorMsg{Type: "error", Message: message})
}

// sessionErrorText maps session errors to renderer-facing text.
func sessionErrorText(err error) string {
	switch {
	case errors.Is(err, matcherrors.ErrLobbyFull):
		return "Server is full. Try again later."
	case errors.Is(err, matcherrors.ErrAlreadyPlaying):
		return "A session is already running."
	case errors.Is(err, matcherrors.ErrNoActiveSession):
		return "You are not in a session."
	case errors.Is(err, matcherrors.ErrSessionFinished):
		return "Session has ended."
	case errors.Is(err, matcherrors.ErrLobbyClosed):
		return "Server is shutting down."
	case errors.Is(err, matcherrors.ErrAuthDisabled):
		return "Server auth not configured."
	default:
		return "Something went wrong."
	}
}

// SendSessionError sends the renderer-facing text for a session error.
func (c *Client) SendSessionError(err error) {
	c.sendError(sessionErrorText(err))
}
