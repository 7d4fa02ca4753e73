package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/openmealplan/mealplanner/internal/dbconn"
	"github.com/openmealplan/mealplanner/internal/domain"
)

// openPostgres opens a PostgreSQL connection from a resolved profile.
//
// Cloud strategies retry here: an auto-pausing serverless cluster can
// take up to ~30s to wake, and dbconn.Open never loops. Local connects
// get a single attempt, a wrong password stays wrong.
func openPostgres(ctx context.Context, cfg domain.RepositoryConfig, profile *dbconn.ConnectionProfile) (*sql.DB, error) {
	if profile == nil {
		return nil, errors.New("postgres driver requires a resolved connection profile")
	}

	attempts := cfg.MaxConnectAttempts
	if attempts <= 0 || profile.Strategy == dbconn.StrategyLocalDirect {
		attempts = 1
	}
	backoff := cfg.ConnectRetryBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := dbconn.Open(ctx, profile)
		if err == nil {
			return db, nil
		}
		lastErr = err

		slog.Warn("database connect attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"strategy", profile.Strategy,
			"error", err,
		)

		if attempt < attempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}
