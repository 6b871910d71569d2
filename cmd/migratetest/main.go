package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/survey"
	"github.com/myrjola/survey/internal/testhelpers"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("SINK_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "SINK_SQLITE_URL not set")
		os.Exit(1)
	}

	schema := repositories.ResponsesSchema(survey.HeatPumpEnquiry().RecordColumns())
	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, schema, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Fetch the number of responses from the database and print it out as a simple smoke test.
	row := db.ReadWrite.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`)
	var count int
	if err = row.Scan(&count); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching response count", errors.SlogError(err))
		os.Exit(1)
	}
	if count == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no responses found, something is likely wrong")
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "response count", slog.Int("count", count))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
