package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
)

// Execute runs one query inside a READ ONLY transaction and returns its
// rows keyed by column name.
func (d *DB) Execute(ctx context.Context, query string) ([]map[string]any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	var rows []map[string]any
	err := pgx.BeginTxFunc(ctx, d.Pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		result, err := tx.Query(ctx, query)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(result, pgx.RowToMap)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		normalizeRow(row)
	}
	return rows, nil
}

// normalizeRow converts driver values that do not serialise readably.
func normalizeRow(row map[string]any) {
	for k, v := range row {
		switch val := v.(type) {
		case [16]byte:
			row[k] = uuid.UUID(val).String()
		case []byte:
			row[k] = string(val)
		}
	}
}
