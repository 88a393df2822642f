package wsutil

import (
	"encoding/json"
	"log/slog"
)

// SafeSend sends data to a channel without panicking if the channel is closed.
// If the channel is full or closed, the send is skipped and false is returned.
// Panics are recovered and logged for debugging.
func SafeSend(ch chan []byte, data []byte) (sent bool) {
	if ch == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("SafeSend recovered panic", "tag", "wsutil", "panic", r)
			sent = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}

// SendJSON marshals msg and delivers it with SafeSend.
func SendJSON(ch chan []byte, msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling outbound message", "tag", "wsutil", "err", err)
		return false
	}
	return SafeSend(ch, data)
}
