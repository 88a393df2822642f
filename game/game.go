package game

import (
	"fmt"
	"log/slog"
	"time"

	"memory-match-server/config"
	"memory-match-server/engine"
	"memory-match-server/wsutil"
)

// ActionType enumerates the kinds of actions a game can process.
type ActionType int

const (
	ActionClickCard ActionType = iota
	ActionReset
	ActionLeave    // player left or connection dropped; ends the session
	ActionResolve  // internal: fired after the reveal delay expires
	ActionSnapshot // read the current state on the game goroutine
)

// Action represents a player action sent into the game's action channel.
type Action struct {
	Type       ActionType
	CardID     int               // card id (for ClickCard)
	Resolution engine.Resolution // for ActionResolve
	Reply      chan StateMsg     // for ActionSnapshot
}

// Recorder is called to record click and resolution events. Optional; may be nil.
type Recorder interface {
	RecordClick(outcome string)
	RecordResolution(result string)
	RecordRoundWon()
}

// RoundResult summarizes a won round for persistence.
type RoundResult struct {
	Score    int
	Moves    int
	DeckSize int
	Duration time.Duration
}

// Game manages one browser session: a single engine, driven by the player's
// clicks and the reveal timer. All engine access happens on the Run goroutine.
type Game struct {
	ID          string
	Player      *Player
	Engine      *engine.Engine
	RevealDelay time.Duration

	// Recorder receives click and resolution events; optional, set by lobby.
	Recorder Recorder

	// OnRoundEnd is called once per won round.
	OnRoundEnd func(gameID string, player *Player, result RoundResult)

	roundStarted  time.Time
	resolveCancel chan struct{}
	finished      bool

	Actions chan Action
	Done    chan struct{}
}

// NewGame creates a new Game for one player, dealing the first round from cfg.CardValues.
func NewGame(id string, cfg *config.Config, p *Player) (*Game, error) {
	eng, err := engine.New(cfg.CardValues)
	if err != nil {
		return nil, fmt.Errorf("new game %s: %w", id, err)
	}
	return &Game{
		ID:           id,
		Player:       p,
		Engine:       eng,
		RevealDelay:  time.Duration(cfg.RevealDelayMS) * time.Millisecond,
		roundStarted: time.Now(),
		Actions:      make(chan Action, 16),
		Done:         make(chan struct{}),
	}, nil
}

// Run is the main game loop. It processes actions sequentially.
// It should be run as a goroutine.
func (g *Game) Run() {
	defer close(g.Done)

	g.broadcastState()

	for action := range g.Actions {
		switch action.Type {
		case ActionClickCard:
			g.handleClickCard(action.CardID)
		case ActionReset:
			g.handleReset()
		case ActionResolve:
			g.handleResolve(action.Resolution)
		case ActionSnapshot:
			if action.Reply != nil {
				action.Reply <- BuildStateMsg(g.ID, g.Engine)
			}
		case ActionLeave:
			g.cancelResolution()
			g.finished = true
		}
		if g.finished {
			return
		}
	}
}

// Send posts an action to the game loop. It returns false if the game has ended.
func (g *Game) Send(a Action) bool {
	// Actions is buffered, so an ended game must be detected before the send.
	select {
	case <-g.Done:
		return false
	default:
	}
	select {
	case g.Actions <- a:
		return true
	case <-g.Done:
		return false
	}
}

// Click posts a card click.
func (g *Game) Click(cardID int) bool {
	return g.Send(Action{Type: ActionClickCard, CardID: cardID})
}

// Reset posts a reset request.
func (g *Game) Reset() bool {
	return g.Send(Action{Type: ActionReset})
}

// Leave ends the session.
func (g *Game) Leave() bool {
	return g.Send(Action{Type: ActionLeave})
}

// Snapshot returns the current state as seen by the renderer. ok is false if the game has ended.
func (g *Game) Snapshot() (msg StateMsg, ok bool) {
	reply := make(chan StateMsg, 1)
	if !g.Send(Action{Type: ActionSnapshot, Reply: reply}) {
		return StateMsg{}, false
	}
	select {
	case msg = <-reply:
		return msg, true
	case <-g.Done:
		return StateMsg{}, false
	}
}

func (g *Game) handleClickCard(cardID int) {
	outcome, res, err := g.Engine.Click(cardID)
	if err != nil {
		g.recordClick("invalid")
		g.sendError("Card index out of bounds.")
		return
	}
	g.recordClick(outcome.String())
	if outcome == engine.ClickIgnored {
		return
	}

	if res != nil {
		// Resolution is processed serially via the actions channel after the reveal delay.
		g.scheduleResolution(*res)
	}
	g.broadcastState()
}

// scheduleResolution starts the reveal timer for a revealed pair.
// Only one resolution can be pending: the engine ignores clicks while two cards are face-up.
func (g *Game) scheduleResolution(res engine.Resolution) {
	g.cancelResolution()
	g.resolveCancel = make(chan struct{})
	cancel := g.resolveCancel
	delay := g.RevealDelay
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			select {
			case g.Actions <- Action{Type: ActionResolve, Resolution: res}:
			case <-cancel:
			case <-g.Done:
			}
		case <-cancel:
		case <-g.Done:
		}
	}()
}

// cancelResolution stops a pending reveal timer. Safe if none is pending.
func (g *Game) cancelResolution() {
	if g.resolveCancel != nil {
		close(g.resolveCancel)
		g.resolveCancel = nil
	}
}

func (g *Game) handleResolve(res engine.Resolution) {
	wasWon := g.Engine.WinState()
	if !g.Engine.Resolve(res) {
		// Round was reset after the timer fired.
		g.recordResolution("stale")
		return
	}
	g.resolveCancel = nil
	if res.Match {
		g.recordResolution("match")
	} else {
		g.recordResolution("mismatch")
	}

	g.broadcastState()

	if !wasWon && g.Engine.WinState() {
		g.handleRoundWon()
	}
}

func (g *Game) handleReset() {
	g.cancelResolution()
	g.Engine.Reset()
	g.roundStarted = time.Now()
	slog.Debug("round reset", "tag", "game", "game", g.ID, "generation", g.Engine.Generation())
	g.broadcastState()
}

func (g *Game) handleRoundWon() {
	score, moves := g.Engine.Score(), g.Engine.Moves()
	duration := time.Since(g.roundStarted)
	slog.Info("round won", "tag", "game", "game", g.ID, "player", g.playerName(), "score", score, "moves", moves, "duration", duration.Round(time.Millisecond))

	if g.Recorder != nil {
		g.Recorder.RecordRoundWon()
	}
	g.broadcast(WonMsg{
		Type:    "game_won",
		Score:   score,
		Moves:   moves,
		Message: WinMessage(score, moves),
	})
	if g.OnRoundEnd != nil {
		g.OnRoundEnd(g.ID, g.Player, RoundResult{
			Score:    score,
			Moves:    moves,
			DeckSize: g.Engine.Len(),
			Duration: duration,
		})
	}
}

func (g *Game) recordClick(outcome string) {
	if g.Recorder != nil {
		g.Recorder.RecordClick(outcome)
	}
}

func (g *Game) recordResolution(result string) {
	if g.Recorder != nil {
		g.Recorder.RecordResolution(result)
	}
}

func (g *Game) playerName() string {
	if g.Player == nil {
		return ""
	}
	return g.Player.Name
}

func (g *Game) sendError(message string) {
	g.broadcast(ErrorMsg{Type: "error", Message: message})
}

func (g *Game) broadcastState() {
	g.broadcast(BuildStateMsg(g.ID, g.Engine))
}

func (g *Game) broadcast(msg any) {
	if g.Player == nil || g.Player.Send == nil {
		return
	}
	wsutil.SendJSON(g.Player.Send, msg)
}
