package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"memory-match-server/config"
	"memory-match-server/engine"
)

// mockRecorder is a test double for Recorder.
type mockRecorder struct {
	mu          sync.Mutex
	clicks      map[string]int
	resolutions map[string]int
	won         int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{clicks: make(map[string]int), resolutions: make(map[string]int)}
}

func (m *mockRecorder) RecordClick(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks[outcome]++
}

func (m *mockRecorder) RecordResolution(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[result]++
}

func (m *mockRecorder) RecordRoundWon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.won++
}

func (m *mockRecorder) counts() (map[string]int, map[string]int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := make(map[string]int)
	for k, v := range m.clicks {
		c[k] = v
	}
	r := make(map[string]int)
	for k, v := range m.resolutions {
		r[k] = v
	}
	return c, r, m.won
}

func testConfig() *config.Config {
	return &config.Config{
		RevealDelayMS: 50, // Short for testing
		MaxNameLength: 24,
		CardValues:    []string{"🍎", "🍌", "🍎", "🍌"},
	}
}

// createTestGame creates a game and starts its loop.
// It returns the game and the player's send channel.
func createTestGame(t *testing.T, cfg *config.Config) (*Game, chan []byte) {
	t.Helper()
	send := make(chan []byte, 100)
	g, err := NewGame("test-1", cfg, NewPlayer("Alice", "", send))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	go g.Run()
	t.Cleanup(func() { g.Leave() })
	return g, send
}

// drainChannel reads all available messages from a channel.
func drainChannel(ch chan []byte) [][]byte {
	var msgs [][]byte
	for {
		select {
		case msg := <-ch:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// waitForMessages waits briefly for messages to arrive, then drains the channel.
func waitForMessages(ch chan []byte, timeout time.Duration) [][]byte {
	var msgs [][]byte
	timer := time.After(timeout)
	for {
		select {
		case msg := <-ch:
			msgs = append(msgs, msg)
		case <-timer:
			return append(msgs, drainChannel(ch)...)
		}
	}
}

func messagesOfType(t *testing.T, msgs [][]byte, typ string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, raw := range msgs {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("invalid JSON %s: %v", raw, err)
		}
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func mustSnapshot(t *testing.T, g *Game) StateMsg {
	t.Helper()
	s, ok := g.Snapshot()
	if !ok {
		t.Fatal("game ended unexpectedly")
	}
	return s
}

// findPair finds two card ids that form a pair. Reads the engine directly, so only
// call it while no action is being processed.
func findPair(e *engine.Engine) (int, int) {
	byValue := make(map[string][]int)
	for _, c := range e.Snapshot().Cards {
		if !c.IsMatched {
			byValue[c.Value] = append(byValue[c.Value], c.ID)
		}
	}
	for _, ids := range byValue {
		if len(ids) >= 2 {
			return ids[0], ids[1]
		}
	}
	return -1, -1
}

// findNonPair finds two card ids that do NOT form a pair.
func findNonPair(e *engine.Engine) (int, int) {
	cards := e.Snapshot().Cards
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			if cards[i].Value != cards[j].Value {
				return cards[i].ID, cards[j].ID
			}
		}
	}
	return -1, -1
}

func TestNewGame(t *testing.T) {
	cfg := testConfig()
	g, err := NewGame("test-1", cfg, NewPlayer("Alice", "u1", nil))
	if err != nil {
		t.Fatal(err)
	}

	if g.ID != "test-1" {
		t.Errorf("expected ID='test-1', got %q", g.ID)
	}
	if g.RevealDelay != 50*time.Millisecond {
		t.Errorf("expected RevealDelay=50ms, got %v", g.RevealDelay)
	}
	if g.Engine.Len() != 4 {
		t.Errorf("expected 4 cards, got %d", g.Engine.Len())
	}
	if g.Player.Name != "Alice" || g.Player.UserID != "u1" {
		t.Errorf("unexpected player %+v", g.Player)
	}
}

func TestNewGame_InvalidValues(t *testing.T) {
	cfg := testConfig()
	cfg.CardValues = []string{"a", "b", "c"}

	if _, err := NewGame("bad", cfg, NewPlayer("Alice", "", nil)); err == nil {
		t.Fatal("expected configuration error for odd deck")
	}
}

func TestRun_BroadcastsInitialState(t *testing.T) {
	_, send := createTestGame(t, testConfig())

	msgs := waitForMessages(send, 50*time.Millisecond)
	states := messagesOfType(t, msgs, "game_state")
	if len(states) != 1 {
		t.Fatalf("expected 1 initial game_state, got %d", len(states))
	}
	if states[0]["moves"].(float64) != 0 || states[0]["winState"].(bool) {
		t.Errorf("unexpected initial state %v", states[0])
	}
}

func TestClickCard_MatchResolvesAfterDelay(t *testing.T) {
	cfg := testConfig()
	g, send := createTestGame(t, cfg)
	a, b := findPair(g.Engine)
	waitForMessages(send, 20*time.Millisecond)

	g.Click(a)
	g.Click(b)

	s := mustSnapshot(t, g)
	if s.Moves != 2 {
		t.Errorf("expected Moves=2, got %d", s.Moves)
	}
	if s.Score != 0 || s.Cards[a].IsMatched {
		t.Error("pair should not be matched before the reveal delay")
	}
	if s.Phase != "resolving" {
		t.Errorf("expected phase resolving, got %q", s.Phase)
	}

	time.Sleep(time.Duration(cfg.RevealDelayMS)*time.Millisecond + 100*time.Millisecond)

	s = mustSnapshot(t, g)
	if !s.Cards[a].IsMatched || !s.Cards[b].IsMatched {
		t.Errorf("expected both cards matched, got %+v %+v", s.Cards[a], s.Cards[b])
	}
	if s.Score != 1 {
		t.Errorf("expected Score=1, got %d", s.Score)
	}
	if s.Moves != 2 {
		t.Errorf("expected Moves=2, got %d", s.Moves)
	}
}

func TestClickCard_MismatchFlipsBack(t *testing.T) {
	cfg := testConfig()
	g, send := createTestGame(t, cfg)
	a, b := findNonPair(g.Engine)
	waitForMessages(send, 20*time.Millisecond)

	g.Click(a)
	g.Click(b)

	// Third click before the delay elapses is ignored.
	var third int
	for id := 0; id < 4; id++ {
		if id != a && id != b {
			third = id
			break
		}
	}
	g.Click(third)

	s := mustSnapshot(t, g)
	if s.Moves != 2 {
		t.Errorf("expected Moves=2 with third click ignored, got %d", s.Moves)
	}
	if s.Cards[third].IsFlipped {
		t.Error("third card should stay face-down")
	}

	time.Sleep(time.Duration(cfg.RevealDelayMS)*time.Millisecond + 100*time.Millisecond)

	s = mustSnapshot(t, g)
	if s.Cards[a].IsFlipped || s.Cards[b].IsFlipped {
		t.Error("mismatched cards should be face-down after the delay")
	}
	if s.Score != 0 || s.Moves != 2 {
		t.Errorf("expected score=0 moves=2, got score=%d moves=%d", s.Score, s.Moves)
	}
}

func TestClickCard_InvalidIndexSendsError(t *testing.T) {
	g, send := createTestGame(t, testConfig())
	waitForMessages(send, 20*time.Millisecond)

	g.Click(99)

	msgs := waitForMessages(send, 50*time.Millisecond)
	errs := messagesOfType(t, msgs, "error")
	if len(errs) != 1 {
		t.Fatalf("expected 1 error message, got %d", len(errs))
	}
	if s := mustSnapshot(t, g); s.Moves != 0 {
		t.Errorf("expected Moves=0 after invalid click, got %d", s.Moves)
	}
}

func TestClickCard_IgnoredClickIsSilent(t *testing.T) {
	g, send := createTestGame(t, testConfig())
	waitForMessages(send, 20*time.Millisecond)

	g.Click(0)
	g.Click(0)

	msgs := waitForMessages(send, 50*time.Millisecond)
	if n := len(messagesOfType(t, msgs, "game_state")); n != 1 {
		t.Errorf("expected 1 game_state (second click ignored), got %d", n)
	}
	if n := len(messagesOfType(t, msgs, "error")); n != 0 {
		t.Errorf("ignored clicks should not produce errors, got %d", n)
	}
}

func TestFullRound_SendsGameWonAndCallsOnRoundEnd(t *testing.T) {
	cfg := testConfig()
	send := make(chan []byte, 100)
	g, err := NewGame("test-win", cfg, NewPlayer("Alice", "u1", send))
	if err != nil {
		t.Fatal(err)
	}
	rec := newMockRecorder()
	g.Recorder = rec

	results := make(chan RoundResult, 2)
	g.OnRoundEnd = func(gameID string, p *Player, r RoundResult) {
		if gameID != "test-win" || p.UserID != "u1" {
			t.Errorf("unexpected OnRoundEnd args %q %+v", gameID, p)
		}
		results <- r
	}

	// Collect pairs before the loop starts.
	pairs := make(map[string][]int)
	for _, c := range g.Engine.Snapshot().Cards {
		pairs[c.Value] = append(pairs[c.Value], c.ID)
	}

	go g.Run()
	defer g.Leave()

	for _, ids := range pairs {
		g.Click(ids[0])
		g.Click(ids[1])
		time.Sleep(time.Duration(cfg.RevealDelayMS)*time.Millisecond + 50*time.Millisecond)
	}

	select {
	case r := <-results:
		if r.Score != 2 || r.Moves != 4 || r.DeckSize != 4 {
			t.Errorf("unexpected round result %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("OnRoundEnd was not called")
	}

	s := mustSnapshot(t, g)
	if !s.WinState || s.Phase != "won" {
		t.Errorf("expected won state, got winState=%v phase=%q", s.WinState, s.Phase)
	}

	won := messagesOfType(t, drainChannel(send), "game_won")
	if len(won) != 1 {
		t.Fatalf("expected 1 game_won message, got %d", len(won))
	}
	if won[0]["score"].(float64) != 2 || won[0]["moves"].(float64) != 4 {
		t.Errorf("unexpected game_won payload %v", won[0])
	}

	clicks, resolutions, wonCount := rec.counts()
	if clicks["flipped"] != 2 || clicks["pair_revealed"] != 2 {
		t.Errorf("unexpected click counts %v", clicks)
	}
	if resolutions["match"] != 2 {
		t.Errorf("unexpected resolution counts %v", resolutions)
	}
	if wonCount != 1 {
		t.Errorf("expected 1 won round, got %d", wonCount)
	}
}

func TestReset_DuringResolutionDiscardsPendingPair(t *testing.T) {
	cfg := testConfig()
	cfg.RevealDelayMS = 100
	g, send := createTestGame(t, cfg)
	a, b := findPair(g.Engine)
	waitForMessages(send, 20*time.Millisecond)

	g.Click(a)
	g.Click(b)
	g.Reset()

	time.Sleep(time.Duration(cfg.RevealDelayMS)*time.Millisecond + 100*time.Millisecond)

	s := mustSnapshot(t, g)
	if s.Moves != 0 || s.Score != 0 || s.WinState {
		t.Errorf("expected fresh round after reset, got moves=%d score=%d win=%v", s.Moves, s.Score, s.WinState)
	}
	for _, c := range s.Cards {
		if c.IsFlipped || c.IsMatched {
			t.Errorf("card %d should be face-down after reset, got %+v", c.ID, c)
		}
	}
	if s.Phase != "playing" {
		t.Errorf("expected phase playing, got %q", s.Phase)
	}
}

func TestReset_StaleResolutionIsIgnored(t *testing.T) {
	cfg := testConfig()
	g, send := createTestGame(t, cfg)
	waitForMessages(send, 20*time.Millisecond)

	// A resolution from an earlier round reaching the loop must not apply.
	rec := newMockRecorder()
	g.Recorder = rec
	g.Send(Action{Type: ActionResolve, Resolution: engine.Resolution{Generation: 7, First: 0, Second: 1, Match: true}})

	s := mustSnapshot(t, g)
	if s.Score != 0 {
		t.Errorf("expected Score=0, got %d", s.Score)
	}
	_, resolutions, _ := rec.counts()
	if resolutions["stale"] != 1 {
		t.Errorf("expected 1 stale resolution, got %v", resolutions)
	}
}

func TestLeave_EndsGame(t *testing.T) {
	g, _ := createTestGame(t, testConfig())

	g.Leave()

	select {
	case <-g.Done:
	case <-time.After(time.Second):
		t.Fatal("game did not end after leave")
	}
	for i := 0; i < 100; i++ {
		if g.Click(0) {
			t.Fatalf("attempt %d: click accepted after the game ended", i)
		}
		if g.Reset() {
			t.Fatalf("attempt %d: reset accepted after the game ended", i)
		}
		if g.Leave() {
			t.Fatalf("attempt %d: leave accepted after the game ended", i)
		}
	}
	if _, ok := g.Snapshot(); ok {
		t.Error("snapshot should fail after the game ends")
	}
}
