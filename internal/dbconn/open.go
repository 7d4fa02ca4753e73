package dbconn

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Open turns a resolved profile into a live *sql.DB. It applies the
// profile's pooling policy and verifies the connection with a single
// ping bounded by the connect timeout. No retries here: for a paused
// serverless database the caller owns retrying across the wake-up
// window.
func Open(ctx context.Context, profile *ConnectionProfile) (*sql.DB, error) {
	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, &ConnectError{Strategy: profile.Strategy, Host: profile.Host, Err: err}
	}

	if profile.Pooling.Pooled() {
		db.SetMaxOpenConns(profile.Pooling.MaxOpenConns)
		db.SetMaxIdleConns(profile.Pooling.MaxIdleConns)
		db.SetConnMaxLifetime(profile.Pooling.ConnMaxLifetime)
	} else {
		// No local pool: the proxy pools, the invocation is ephemeral.
		db.SetMaxIdleConns(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, profile.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &ConnectError{Strategy: profile.Strategy, Host: profile.Host, Err: err}
	}

	return db, nil
}

// HealthCheck acquires one connection, pings it, and releases it,
// reporting how long the round trip took. The latency lets callers tell
// serverless wake-up delay from genuine failure. A pool acquire that
// times out surfaces as ErrPoolExhausted.
func HealthCheck(ctx context.Context, db *sql.DB) (time.Duration, error) {
	start := time.Now()

	conn, err := db.Conn(ctx)
	if err != nil {
		return time.Since(start), classifyAcquire(err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return time.Since(start), err
	}

	return time.Since(start), nil
}
