package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/survey/internal/envstruct"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/pprofserver"
	"github.com/myrjola/survey/internal/sink"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/survey"
)

const sessionsSchema = `CREATE TABLE sessions
(
    token  TEXT PRIMARY KEY,
    data   BLOB NOT NULL,
    expiry REAL NOT NULL
);

CREATE INDEX sessions_expiry_idx ON sessions (expiry);
`

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	surveys        *survey.Registry
	definition     *survey.Definition
	settleTimeout  time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"SURVEY_ADDR" envDefault:"localhost:4000"`
	// SqliteURL holds the sessions.
	SqliteURL        string        `env:"SURVEY_SQLITE_URL" envDefault:"./survey.sqlite"`
	SinkURL          string        `env:"SURVEY_SINK_URL" envDefault:"http://localhost:4001/exec"`
	SinkMode         string        `env:"SURVEY_SINK_MODE" envDefault:"opaque"`
	SubmitTimeout    time.Duration `env:"SURVEY_SUBMIT_TIMEOUT" envDefault:"30s"`
	AutoAdvanceDelay time.Duration `env:"SURVEY_AUTO_ADVANCE_DELAY" envDefault:"300ms"`
	Timezone         string        `env:"SURVEY_TIMEZONE" envDefault:"Europe/London"`
	FallbackContact  string        `env:"SURVEY_FALLBACK_CONTACT" envDefault:"info@abacusenergysolutions.co.uk"`
	// PprofAddr enables the pprof server when set. Keep it on localhost.
	PprofAddr string `env:"SURVEY_PPROF_ADDR" envDefault:""`
}

const (
	sessionLifetime      = 12 * time.Hour
	sessionCleanup       = time.Hour
	surveyIdleTTL        = 12 * time.Hour
	surveyEvictInterval  = 10 * time.Minute
	// defaultSettleTimeout stays below the handler timeout, an unsettled survey is rendered pending and reloads.
	defaultSettleTimeout = 3 * time.Second
)

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
		loc *time.Location
		db  *sqlite.Database
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
		return errors.Wrap(err, "load timezone", slog.String("timezone", cfg.Timezone))
	}
	sinkClient, err := sink.New(cfg.SinkURL, sink.Mode(cfg.SinkMode), nil)
	if err != nil {
		return errors.Wrap(err, "new sink client")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, sessionsSchema, logger); err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, sessionCleanup)
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = sessionLifetime
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	definition := survey.HeatPumpEnquiry()
	surveys := survey.NewRegistry(ctx, func() survey.Config {
		return survey.Config{
			Definition:       definition,
			Sink:             sinkClient,
			Logger:           logger,
			AutoAdvanceDelay: cfg.AutoAdvanceDelay,
			SubmitTimeout:    cfg.SubmitTimeout,
			Location:         loc,
			Now:              time.Now,
			FallbackContact:  cfg.FallbackContact,
		}
	}, surveyIdleTTL, logger)
	go surveys.StartEvicting(ctx, surveyEvictInterval)

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		surveys:        surveys,
		definition:     definition,
		settleTimeout:  defaultSettleTimeout,
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "survey configured",
		slog.String("sink_url", cfg.SinkURL),
		slog.String("sink_mode", cfg.SinkMode),
		slog.Int("steps", definition.Len()))

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// A missing .env file is fine, the environment is then used as is.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
