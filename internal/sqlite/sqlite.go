package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/random"
)

// Database holds a single writer connection and a pool of read-only connections to the same SQLite database.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database at url, synchronizes it to schema and starts the hourly optimizer.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, schema string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err = db.Migrate(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "synchronize schema")
	}
	go db.StartDatabaseOptimizer(ctx)
	return db, nil
}

// connect opens the read-write and read-only handles.
//
// Splitting writers from readers avoids SQLITE_BUSY under concurrent load, see
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
func connect(url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sql.DB
		readDB      *sql.DB
	)

	// In-memory databases need shared cache so that both handles see the same data. Each gets a random name so that
	// parallel tests stay isolated. See https://www.sqlite.org/inmemorydb.html.
	readMode, readWriteMode := "mode=ro&_query_only=true", "mode=rwc"
	if strings.Contains(url, ":memory:") {
		var dbNameLength uint = 20
		if url, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		readMode, readWriteMode = "mode=memory&cache=shared&_query_only=true", "mode=memory&cache=shared"
	}

	// Options prefixed with '_' are pragmas interpreted by the driver, see https://www.sqlite.org/pragma.html.
	commonConfig := strings.Join([]string{
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	readConfig := fmt.Sprintf("file:%s?%s&_txlock=deferred&%s", url, readMode, commonConfig)
	readWriteConfig := fmt.Sprintf("file:%s?%s&_txlock=immediate&%s", url, readWriteMode, commonConfig)

	if readWriteDB, err = sql.Open("sqlite3", readWriteConfig); err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)
	// The shared in-memory database lives as long as one connection is open, so create it before the readers.
	if err = readWriteDB.Ping(); err != nil {
		return nil, errors.Join(errors.Wrap(err, "ping read-write database"), readWriteDB.Close())
	}

	if readDB, err = sql.Open("sqlite3", readConfig); err != nil {
		return nil, errors.Join(errors.Wrap(err, "open read database"), readWriteDB.Close())
	}
	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// Close closes both handles.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
