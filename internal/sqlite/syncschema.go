package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/random"
)

type schemaObject struct {
	kind    string
	name    string
	tblName string
	sql     string
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Migrate synchronizes the database to the declarative schema.
//
// The schema is first applied to an empty in-memory database and the resulting objects are compared with the live
// ones. Tables missing from the target are dropped, new ones are created and tables whose definition changed are
// rebuilt with the copy-and-rename procedure of https://www.sqlite.org/lang_altertable.html#otheralter, keeping the
// data of the columns both definitions share. Indexes and triggers are recreated when they differ.
func (db *Database) Migrate(ctx context.Context, schema string) error {
	target, err := declaredObjects(ctx, schema)
	if err != nil {
		return errors.Wrap(err, "evaluate target schema")
	}

	// Foreign keys cannot be toggled inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to re-enable foreign keys",
				errors.SlogError(errors.Wrap(fkErr, "re-enable foreign key validation")))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := queryObjects(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "query current schema")
	}
	if err = db.syncObjects(ctx, tx, current, target); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (db *Database) syncObjects(ctx context.Context, tx *sql.Tx, current, target map[string]schemaObject) error {
	// Indexes and triggers go first since they depend on the tables they belong to.
	for _, obj := range sortedObjects(current) {
		if obj.kind == "table" {
			continue
		}
		if t, ok := target[obj.name]; ok && t.sql == obj.sql {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping schema object",
			slog.String("kind", obj.kind), slog.String("name", obj.name))
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP %s %s", strings.ToUpper(obj.kind), quote(obj.name))); err != nil {
			return errors.Wrap(err, "drop schema object", slog.String("name", obj.name))
		}
	}

	for _, obj := range sortedObjects(current) {
		if _, ok := target[obj.name]; obj.kind != "table" || ok {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", obj.name))
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quote(obj.name)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", obj.name))
		}
	}

	rebuilt := map[string]bool{}
	for _, obj := range sortedObjects(target) {
		if obj.kind != "table" {
			continue
		}
		existing, ok := current[obj.name]
		switch {
		case !ok:
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", obj.sql))
			if _, err := tx.ExecContext(ctx, obj.sql); err != nil {
				return errors.Wrap(err, "create table", slog.String("table", obj.name))
			}
		case existing.sql != obj.sql:
			if err := db.rebuildTable(ctx, tx, existing, obj); err != nil {
				return errors.Wrap(err, "rebuild table", slog.String("table", obj.name))
			}
			rebuilt[obj.name] = true
		}
	}

	for _, obj := range sortedObjects(target) {
		if obj.kind == "table" {
			continue
		}
		// Dropping a rebuilt table took its indexes and triggers with it.
		if c, ok := current[obj.name]; ok && c.sql == obj.sql && !rebuilt[obj.tblName] {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating schema object",
			slog.String("kind", obj.kind), slog.String("query", obj.sql))
		if _, err := tx.ExecContext(ctx, obj.sql); err != nil {
			return errors.Wrap(err, "create schema object", slog.String("name", obj.name))
		}
	}
	return nil
}

// rebuildTable creates the new definition under a temporary name, copies the shared columns and swaps the tables.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, current, target schemaObject) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", target.name),
		slog.String("current_sql", current.sql),
		slog.String("new_sql", target.sql))

	currentColumns, err := tableColumns(ctx, tx, target.name)
	if err != nil {
		return errors.Wrap(err, "query current columns")
	}
	tempName := target.name + "_migration_temp"
	tempSQL := strings.Replace(target.sql, target.name, tempName, 1)
	if _, err = tx.ExecContext(ctx, tempSQL); err != nil {
		return errors.Wrap(err, "create table under temporary name", slog.String("query", tempSQL))
	}
	targetColumns, err := tableColumns(ctx, tx, tempName)
	if err != nil {
		return errors.Wrap(err, "query target columns")
	}

	var common []string
	for _, column := range targetColumns {
		if slices.Contains(currentColumns, column) {
			common = append(common, quote(column))
		}
	}
	if len(common) > 0 {
		columns := strings.Join(common, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", //nolint:gosec // identifiers are quoted.
			quote(tempName), columns, columns, quote(target.name))
		db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data")
		}
	}
	if _, err = tx.ExecContext(ctx, "DROP TABLE "+quote(target.name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(tempName),
		quote(target.name))); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}

// declaredObjects applies schema to a scratch in-memory database and returns the objects it defines.
func declaredObjects(ctx context.Context, schema string) (map[string]schemaObject, error) {
	var dbNameLength uint = 20
	name, err := random.Letters(dbNameLength)
	if err != nil {
		return nil, errors.Wrap(err, "generate random ID")
	}
	scratch, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory", name))
	if err != nil {
		return nil, errors.Wrap(err, "open scratch database")
	}
	defer func() {
		_ = scratch.Close()
	}()
	// A private in-memory database only exists on the connection that created it.
	scratch.SetMaxOpenConns(1)
	if strings.TrimSpace(schema) != "" {
		if _, err = scratch.ExecContext(ctx, schema); err != nil {
			return nil, errors.Wrap(err, "apply schema to scratch database")
		}
	}
	return queryObjects(ctx, scratch)
}

func queryObjects(ctx context.Context, q querier) (map[string]schemaObject, error) {
	rows, err := q.QueryContext(ctx, `SELECT type, name, tbl_name, sql FROM sqlite_schema
WHERE type IN ('table', 'index', 'trigger', 'view') AND sql IS NOT NULL AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, errors.Wrap(err, "query sqlite_schema")
	}
	defer func() {
		_ = rows.Close()
	}()
	objects := map[string]schemaObject{}
	for rows.Next() {
		var obj schemaObject
		if err = rows.Scan(&obj.kind, &obj.name, &obj.tblName, &obj.sql); err != nil {
			return nil, errors.Wrap(err, "scan schema object")
		}
		objects[obj.name] = obj
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return objects, nil
}

func tableColumns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, errors.Wrap(err, "query table info")
	}
	defer func() {
		_ = rows.Close()
	}()
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, errors.Wrap(err, "scan column")
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return columns, nil
}

func sortedObjects(objects map[string]schemaObject) []schemaObject {
	sorted := make([]schemaObject, 0, len(objects))
	for _, obj := range objects {
		sorted = append(sorted, obj)
	}
	slices.SortFunc(sorted, func(a, b schemaObject) int {
		return strings.Compare(a.name, b.name)
	})
	return sorted
}

// quote returns name as a double-quoted SQLite identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
