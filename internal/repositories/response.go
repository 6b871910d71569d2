package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/sqids/sqids-go"
)

// ErrNotFound is returned when no response matches a reference.
var ErrNotFound = errors.NewSentinel("response not found")

const (
	responsesTable = "responses"
	referenceAlpha = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	referenceLen   = 6
)

// Response is a stored submission.
type Response struct {
	ID         int64
	Reference  string
	ReceivedAt string
	// Values holds one entry per column, missing answers are empty strings.
	Values map[string]string
}

// ResponsesSchema returns the declarative schema of the responses table with one text column per entry of columns,
// in order.
func ResponsesSchema(columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", responsesTable)
	b.WriteString("    id INTEGER PRIMARY KEY,\n")
	b.WriteString("    reference TEXT NOT NULL DEFAULT '',\n")
	b.WriteString("    received_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))")
	for _, column := range columns {
		fmt.Fprintf(&b, ",\n    %s TEXT NOT NULL DEFAULT ''", quoteIdent(column))
	}
	b.WriteString("\n) STRICT;\n")
	fmt.Fprintf(&b, "CREATE UNIQUE INDEX %s_reference ON %s (reference) WHERE reference <> '';\n",
		responsesTable, responsesTable)
	return b.String()
}

// ResponseRepository appends and reads submissions. Rows keep the column order given at construction.
type ResponseRepository struct {
	db       *sqlite.Database
	readOnly *sqlx.DB
	columns  []string
	refs     *sqids.Sqids
	logger   *slog.Logger
}

// NewResponseRepository expects db to be migrated to [ResponsesSchema] of the same columns.
func NewResponseRepository(db *sqlite.Database, columns []string, logger *slog.Logger) (*ResponseRepository, error) {
	refs, err := sqids.New(sqids.Options{ //nolint:exhaustruct // default blocklist.
		Alphabet:  referenceAlpha,
		MinLength: referenceLen,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new sqids")
	}
	return &ResponseRepository{
		db:       db,
		readOnly: sqlx.NewDb(db.ReadOnly, "sqlite3"),
		columns:  append([]string(nil), columns...),
		refs:     refs,
		logger:   logger.With("source", "ResponseRepository"),
	}, nil
}

// Columns returns the answer columns in their fixed order.
func (r *ResponseRepository) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Append stores values as a new row. Keys outside the columns are ignored and missing ones are stored empty.
func (r *ResponseRepository) Append(ctx context.Context, values map[string]string) (Response, error) {
	quoted := make([]string, len(r.columns))
	args := make([]any, len(r.columns))
	row := make(map[string]string, len(r.columns))
	for i, column := range r.columns {
		quoted[i] = quoteIdent(column)
		args[i] = values[column]
		row[column] = values[column]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(r.columns)), ", ")

	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return Response{}, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id, received_at", //nolint:gosec // quoted.
		responsesTable, strings.Join(quoted, ", "), placeholders)
	if len(r.columns) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id, received_at", responsesTable)
	}
	resp := Response{ID: 0, Reference: "", ReceivedAt: "", Values: row}
	if err = tx.QueryRowContext(ctx, stmt, args...).Scan(&resp.ID, &resp.ReceivedAt); err != nil {
		return Response{}, errors.Wrap(err, "insert response")
	}
	if resp.Reference, err = r.refs.Encode([]uint64{uint64(resp.ID)}); err != nil {
		return Response{}, errors.Wrap(err, "encode reference", slog.Int64("id", resp.ID))
	}
	if _, err = tx.ExecContext(ctx, "UPDATE responses SET reference = ? WHERE id = ?", resp.Reference,
		resp.ID); err != nil {
		return Response{}, errors.Wrap(err, "set reference")
	}
	if err = tx.Commit(); err != nil {
		return Response{}, errors.Wrap(err, "commit")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "stored response",
		slog.Int64("id", resp.ID), slog.String("reference", resp.Reference))
	return resp, nil
}

// List returns the most recent responses first. A limit of zero returns all of them.
func (r *ResponseRepository) List(ctx context.Context, limit int) ([]Response, error) {
	stmt := "SELECT * FROM responses ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.readOnly.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query responses")
	}
	defer func() {
		if err = rows.Close(); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(err, "close rows")))
		}
	}()
	var responses []Response
	for rows.Next() {
		var resp Response
		if resp, err = r.scan(rows); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return responses, nil
}

// Get returns the response with the given public reference.
func (r *ResponseRepository) Get(ctx context.Context, reference string) (Response, error) {
	ids := r.refs.Decode(reference)
	if len(ids) != 1 {
		return Response{}, errors.Wrap(ErrNotFound, "decode reference", slog.String("reference", reference))
	}
	row := r.readOnly.QueryRowxContext(ctx, "SELECT * FROM responses WHERE id = ? AND reference = ?",
		int64(ids[0]), reference) //nolint:gosec // ids originate from int64 row ids.
	resp, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, errors.Wrap(ErrNotFound, "get response", slog.String("reference", reference))
	}
	return resp, err
}

// scan reads a row whose columns depend on the current schema.
func (r *ResponseRepository) scan(row interface{ MapScan(map[string]any) error }) (Response, error) {
	fields := map[string]any{}
	if err := row.MapScan(fields); err != nil {
		return Response{}, errors.Wrap(err, "map scan")
	}
	resp := Response{ID: 0, Reference: "", ReceivedAt: "", Values: make(map[string]string, len(r.columns))}
	if id, ok := fields["id"].(int64); ok {
		resp.ID = id
	}
	resp.Reference = asString(fields["reference"])
	resp.ReceivedAt = asString(fields["received_at"])
	for _, column := range r.columns {
		resp.Values[column] = asString(fields[column])
	}
	return resp, nil
}

func asString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
