package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a read-only executor over a local SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Introspector = (*SQLite)(nil)

// OpenSQLite opens path with query_only set on every connection.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path + "?" + url.Values{
		"_pragma": {"query_only(1)", "busy_timeout(5000)", "foreign_keys(1)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Execute runs one query and returns its rows keyed by column name.
func (s *SQLite) Execute(ctx context.Context, query string) ([]map[string]any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		normalizeRow(row)
		out = append(out, row)
	}
	return out, rows.Err()
}

// FetchTableSchema reads columns and foreign keys through SQLite pragmas.
func (s *SQLite) FetchTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	ts := &TableSchema{Name: table}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type, "notnull", COALESCE(dflt_value, ''), pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	for rows.Next() {
		var (
			col     ColumnInfo
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.DataType, &notNull, &col.Default, &pk); err != nil {
			rows.Close()
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		col.IsNullable = notNull == 0
		col.IsPK = pk > 0
		ts.Columns = append(ts.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	fkRows, err := s.db.QueryContext(ctx,
		`SELECT id, "from", "table", COALESCE("to", '') FROM pragma_foreign_key_list(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys %s: %w", table, err)
	}
	defer fkRows.Close()
	for fkRows.Next() {
		var (
			id int
			fk ForeignKeyInfo
		)
		if err := fkRows.Scan(&id, &fk.Column, &fk.ForeignTable, &fk.ForeignColumn); err != nil {
			return nil, fmt.Errorf("foreign keys %s: %w", table, err)
		}
		fk.ConstraintName = fmt.Sprintf("fk_%s_%d", table, id)
		ts.ForeignKeys = append(ts.ForeignKeys, fk)
	}
	return ts, fkRows.Err()
}
