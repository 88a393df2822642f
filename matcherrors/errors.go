package matcherrors

import "errors"

// Session sentinel errors. Used by both lobby and ws packages
// to avoid circular imports.
var (
	ErrLobbyFull       = errors.New("too many active sessions")
	ErrLobbyClosed     = errors.New("lobby stopped")
	ErrAlreadyPlaying  = errors.New("client already has an active session")
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionFinished = errors.New("session finished")
	ErrAuthDisabled    = errors.New("server auth not configured")
)
