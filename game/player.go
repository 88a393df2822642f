package game

// Player represents the person playing a session.
type Player struct {
	Name   string
	UserID string      // authenticated user id; empty for guests
	Send   chan []byte // reference to the client's send channel
}

// NewPlayer creates a new Player with the given name and send channel.
func NewPlayer(name, userID string, send chan []byte) *Player {
	return &Player{
		Name:   name,
		UserID: userID,
		Send:   send,
	}
}
