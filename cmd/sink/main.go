// Command sink is the reference collection endpoint. It stores every posted answer record as a row of the responses
// table and e-mails a confirmation to the address the visitor entered.
package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/myrjola/survey/internal/envstruct"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/notify"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/survey"
)

type application struct {
	logger    *slog.Logger
	responses *repositories.ResponseRepository
	notifier  *notify.Notifier
	// location and now stamp records that arrive without a timestamp.
	location *time.Location
	now      func() time.Time
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr      string `env:"SINK_ADDR" envDefault:"localhost:4001"`
	SqliteURL string `env:"SINK_SQLITE_URL" envDefault:"./responses.sqlite"`
	// SMTPAddr selects the SMTP relay. When empty the confirmations are only logged.
	SMTPAddr     string `env:"SINK_SMTP_ADDR" envDefault:""`
	SMTPUsername string `env:"SINK_SMTP_USERNAME" envDefault:""`
	SMTPPassword string `env:"SINK_SMTP_PASSWORD" envDefault:""`
	MailFrom     string `env:"SINK_MAIL_FROM" envDefault:"noreply@abacusenergysolutions.co.uk"`
	ContactEmail string `env:"SINK_CONTACT_EMAIL" envDefault:"info@abacusenergysolutions.co.uk"`
	Timezone     string `env:"SINK_TIMEZONE" envDefault:"Europe/London"`
}

func newMailer(cfg config, logger *slog.Logger) (notify.Mailer, error) {
	if cfg.SMTPAddr == "" {
		return notify.NewLogMailer(logger), nil
	}
	mailer, err := notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	if err != nil {
		return nil, errors.Wrap(err, "new smtp mailer")
	}
	return mailer, nil
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
		db  *sqlite.Database
		loc *time.Location
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
		return errors.Wrap(err, "load timezone", slog.String("timezone", cfg.Timezone))
	}
	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}
	notifier, err := notify.NewNotifier(mailer, cfg.ContactEmail, logger)
	if err != nil {
		return errors.Wrap(err, "new notifier")
	}

	columns := survey.HeatPumpEnquiry().RecordColumns()
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, repositories.ResponsesSchema(columns), logger); err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	responses, err := repositories.NewResponseRepository(db, columns, logger)
	if err != nil {
		return errors.Wrap(err, "new response repository")
	}

	app := application{
		logger:    logger,
		responses: responses,
		notifier:  notifier,
		location:  loc,
		now:       time.Now,
	}

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

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting sink", errors.SlogError(err))
		os.Exit(1)
	}
}
