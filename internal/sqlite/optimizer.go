package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/survey/internal/errors"
)

const optimizeInterval = time.Hour

// StartDatabaseOptimizer runs PRAGMA optimize now and then every hour until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) StartDatabaseOptimizer(ctx context.Context) {
	ticker := time.NewTicker(optimizeInterval)
	defer ticker.Stop()
	for {
		db.optimize(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (db *Database) optimize(ctx context.Context) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		if ctx.Err() != nil {
			return
		}
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
			errors.SlogError(errors.Wrap(err, "optimize database")))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}
