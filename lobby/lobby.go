package lobby

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"memory-match-server/config"
	"memory-match-server/game"
	"memory-match-server/matcherrors"
	"memory-match-server/storage"
	"memory-match-server/ws"
	"memory-match-server/wsutil"
)

const saveTimeout = 5 * time.Second

// ResultStore persists won rounds. Optional; may be nil.
type ResultStore interface {
	InsertRoundResult(ctx context.Context, r storage.RoundResult) error
}

// Metrics receives session and gameplay events. Optional; may be nil.
type Metrics interface {
	game.Recorder
	SessionStarted()
	SessionEnded()
}

// Lobby turns named clients into running sessions, one game.Game per client.
type Lobby struct {
	queue   chan *ws.Client
	config  *config.Config
	store   ResultStore
	metrics Metrics

	mu       sync.Mutex
	sessions map[string]*game.Game

	// done is closed when Run returns.
	done chan struct{}

	// saves tracks in-flight result writes so Wait can drain them on shutdown.
	saves sync.WaitGroup
}

// NewLobby creates a new Lobby.
func NewLobby(cfg *config.Config, store ResultStore, m Metrics) *Lobby {
	return &Lobby{
		queue:    make(chan *ws.Client, 100),
		config:   cfg,
		store:    store,
		metrics:  m,
		sessions: make(map[string]*game.Game),
		done:     make(chan struct{}),
	}
}

// Enqueue asks the lobby to start a session for c. Once Run has stopped,
// the client gets an error instead.
func (l *Lobby) Enqueue(c *ws.Client) {
	select {
	case <-l.done:
		c.SendSessionError(matcherrors.ErrLobbyClosed)
		return
	default:
	}
	select {
	case l.queue <- c:
	case <-l.done:
		c.SendSessionError(matcherrors.ErrLobbyClosed)
	}
}

// Run is the lobby's main loop. It starts a session for each enqueued client
// until ctx is cancelled. Should be run as a goroutine.
func (l *Lobby) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "lobby")
			return
		case c := <-l.queue:
			if err := l.startSession(c); err != nil {
				slog.Debug("session refused", "tag", "lobby", "player", c.Name(), "err", err)
				c.SendSessionError(err)
			}
		}
	}
}

// Leave ends c's current session. It returns matcherrors.ErrNoActiveSession if there is none.
func (l *Lobby) Leave(c *ws.Client) error {
	g := c.Game()
	if g == nil {
		return matcherrors.ErrNoActiveSession
	}
	c.ClearGame(g)
	if !g.Leave() {
		return matcherrors.ErrSessionFinished
	}
	return nil
}

// ActiveSessions returns the number of running sessions.
func (l *Lobby) ActiveSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Wait blocks until pending round results have been written.
func (l *Lobby) Wait() {
	l.saves.Wait()
}

func (l *Lobby) startSession(c *ws.Client) error {
	if c.Game() != nil {
		return matcherrors.ErrAlreadyPlaying
	}

	l.mu.Lock()
	if l.config.MaxSessions > 0 && len(l.sessions) >= l.config.MaxSessions {
		l.mu.Unlock()
		return matcherrors.ErrLobbyFull
	}
	id := uuid.NewString()
	name, userID := c.Identity()
	p := game.NewPlayer(name, userID, c.Send)
	g, err := game.NewGame(id, l.config, p)
	if err != nil {
		l.mu.Unlock()
		slog.Error("create game", "tag", "lobby", "err", err)
		return err
	}
	l.sessions[id] = g
	l.mu.Unlock()

	if l.metrics != nil {
		g.Recorder = l.metrics
		l.metrics.SessionStarted()
	}
	g.OnRoundEnd = l.saveRound

	c.SetGame(g)
	slog.Info("session started", "tag", "lobby", "session", id, "player", name, "authenticated", userID != "")

	wsutil.SendJSON(c.Send, ws.SessionStartedMsg{
		Type:          "session_started",
		SessionID:     id,
		DeckSize:      g.Engine.Len(),
		RevealDelayMS: l.config.RevealDelayMS,
	})

	go g.Run()
	go l.watch(c, g)
	return nil
}

// watch removes the session once its game loop has stopped.
func (l *Lobby) watch(c *ws.Client, g *game.Game) {
	<-g.Done

	l.mu.Lock()
	delete(l.sessions, g.ID)
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.SessionEnded()
	}
	c.ClearGame(g)
	wsutil.SendJSON(c.Send, ws.SessionEndedMsg{Type: "session_ended", SessionID: g.ID})
	slog.Info("session ended", "tag", "lobby", "session", g.ID, "player", c.Name())
}

// saveRound runs on the game goroutine; the write happens in the background.
func (l *Lobby) saveRound(gameID string, p *game.Player, result game.RoundResult) {
	if l.store == nil || p == nil || p.UserID == "" {
		return
	}
	r := storage.RoundResult{
		SessionID:  gameID,
		UserID:     p.UserID,
		PlayerName: p.Name,
		Score:      result.Score,
		Moves:      result.Moves,
		DeckSize:   result.DeckSize,
		Duration:   result.Duration,
	}
	l.saves.Add(1)
	go func() {
		defer l.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := l.store.InsertRoundResult(ctx, r); err != nil {
			slog.Error("InsertRoundResult", "tag", "lobby", "session", gameID, "err", err)
		}
	}()
}
