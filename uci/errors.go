package uci

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTransportClosed reports that the engine process is gone or its
	// pipes are no longer usable.
	ErrTransportClosed = errors.New("uci: transport closed")

	// ErrSessionClosed rejects requests that were still pending when
	// Dispose ran, and requests made against a disposed session.
	ErrSessionClosed = errors.New("uci: session closed")

	// ErrQueueFull reports that the exchange queue has no room for
	// another request.
	ErrQueueFull = errors.New("uci: exchange queue is full")
)

// TimeoutError reports that an awaited protocol line never arrived within
// its deadline. Token names what was being awaited ("uciok", "readyok",
// "bestmove"). The transport stays open; only the one wait failed.
type TimeoutError struct {
	Token string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("uci: timed out after %s waiting for %q", e.After, e.Token)
}

// OpError wraps a failure with the protocol step that produced it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("uci %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a protocol timeout. A non-empty token
// restricts the match to waits for that token.
func IsTimeout(err error, token string) bool {
	var te *TimeoutError
	if !errors.As(err, &te) {
		return false
	}
	return token == "" || te.Token == token
}
