package engine

import "errors"

// ErrInvalidCard is returned by Click when the card id is not in the current deck.
var ErrInvalidCard = errors.New("invalid card reference")

// ConfigurationError reports a value list that cannot form a deck.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}
