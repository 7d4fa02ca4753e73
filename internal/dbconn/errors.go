package dbconn

import (
	"context"
	"errors"
	"fmt"
)

// ErrPoolExhausted reports that a connection acquire timed out because
// the bounded pool was fully checked out.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// ConfigError is a fatal startup error: the selected strategy required a
// field that was missing, empty, or malformed. It is never retried.
type ConfigError struct {
	Strategy Strategy
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required and was empty"
	}
	return fmt.Sprintf("database config: %s %s (strategy %s)", e.Field, reason, e.Strategy)
}

// ConnectError reports a failure to establish a real connection with a
// resolved profile. Carries enough detail to tell a paused serverless
// database from a misconfigured one.
type ConnectError struct {
	Strategy Strategy
	Host     string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("database connect: strategy %s host %s: %v", e.Strategy, e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// classifyAcquire maps a context deadline hit during pool acquisition to
// ErrPoolExhausted. Other errors pass through untouched.
func classifyAcquire(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrPoolExhausted, err)
	}
	return err
}
