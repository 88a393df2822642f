package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"memory-match-server/config"
)

// LobbyInterface defines what the Hub needs from the Lobby.
type LobbyInterface interface {
	Enqueue(c *Client)
	Leave(c *Client) error
}

// TokenValidator validates tokens sent with the auth message.
type TokenValidator interface {
	Enabled() bool
	Validate(token string) (jwt.MapClaims, error)
}

// Hub maintains the set of active clients and routes messages.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Lobby      LobbyInterface
	Auth       TokenValidator
	Config     *config.Config

	upgrader websocket.Upgrader
	done     chan struct{}
}

// NewHub creates a new Hub. auth may be nil, in which case auth messages are rejected.
func NewHub(cfg *config.Config, lobby LobbyInterface, auth TokenValidator) *Hub {
	h := &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Lobby:      lobby,
		Auth:       auth,
		Config:     cfg,
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigin),
	}
	return h
}

// originChecker allows any origin for "*" or empty, otherwise only the exact origin.
// Requests without an Origin header (non-browser clients) are accepted.
func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			for client := range h.Clients {
				h.Lobby.Leave(client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Debug("client connected", "tag", "ws", "clients", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				// End the session first so no state is sent to a closed channel.
				if err := h.Lobby.Leave(client); err == nil {
					slog.Debug("session ended on disconnect", "tag", "ws", "player", client.Name())
				}
				close(client.Send)
				slog.Debug("client disconnected", "tag", "ws", "clients", len(h.Clients))
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}
