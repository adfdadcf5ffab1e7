package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	pgx "github.com/jackc/pgx/v5"

	"github.com/equipoapa2-hub/autopic/schema"
)

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name       string
	DataType   string
	IsNullable bool
	Default    string
	IsPK       bool
}

// ForeignKeyInfo describes a foreign key constraint.
type ForeignKeyInfo struct {
	ConstraintName string
	Column         string
	ForeignTable   string
	ForeignColumn  string
}

// TableSchema holds live schema information for a table. A table that does
// not exist has no columns.
type TableSchema struct {
	Name        string
	Columns     []ColumnInfo
	ForeignKeys []ForeignKeyInfo
}

// Introspector reads live table structure.
type Introspector interface {
	FetchTableSchema(ctx context.Context, table string) (*TableSchema, error)
}

var _ Introspector = (*DB)(nil)

// FetchTableSchema retrieves columns and foreign keys for a table in the
// public schema.
func (d *DB) FetchTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	columns, err := d.describeTable(ctx, "public", table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	fks, err := d.TableForeignKeys(ctx, "public", table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys %s: %w", table, err)
	}
	return &TableSchema{Name: table, Columns: columns, ForeignKeys: fks}, nil
}

func (d *DB) describeTable(ctx context.Context, schemaName, table string) ([]ColumnInfo, error) {
	query := `
		SELECT c.column_name, c.data_type, c.is_nullable = 'YES',
		       COALESCE(c.column_default, ''),
		       EXISTS (
		         SELECT 1
		         FROM information_schema.table_constraints tc
		         JOIN information_schema.key_column_usage k
		           ON tc.constraint_name = k.constraint_name
		          AND tc.table_schema = k.table_schema
		         WHERE tc.constraint_type = 'PRIMARY KEY'
		           AND tc.table_schema = c.table_schema
		           AND tc.table_name = c.table_name
		           AND k.column_name = c.column_name
		       )
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`
	rows, err := d.Pool.Query(ctx, query, schemaName, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ColumnInfo])
}

// TableForeignKeys lists the declared foreign keys of a table.
func (d *DB) TableForeignKeys(ctx context.Context, schemaName, table string) ([]ForeignKeyInfo, error) {
	query := `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`
	rows, err := d.Pool.Query(ctx, query, schemaName, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ForeignKeyInfo])
}

// Drift lists descriptor entries missing from the live database.
type Drift struct {
	MissingTables    []string
	MissingColumns   []string // "Table.column"
	MissingRelations []string // "Table.column -> Foreign.column"
}

// OK reports whether the live database matches the descriptor.
func (r *Drift) OK() bool {
	return len(r.MissingTables) == 0 && len(r.MissingColumns) == 0 && len(r.MissingRelations) == 0
}

func (r *Drift) String() string {
	if r.OK() {
		return "schema matches the database"
	}
	var sb strings.Builder
	write := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(&sb, "  - %s\n", it)
		}
	}
	write("missing tables", r.MissingTables)
	write("missing columns", r.MissingColumns)
	write("missing relations", r.MissingRelations)
	return strings.TrimRight(sb.String(), "\n")
}

// VerifyDescriptor compares the descriptor against the live database.
func VerifyDescriptor(ctx context.Context, in Introspector, desc *schema.Descriptor) (*Drift, error) {
	drift := &Drift{}
	live := make(map[string]*TableSchema, len(desc.Tables))

	for _, t := range desc.Tables {
		ts, err := in.FetchTableSchema(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if len(ts.Columns) == 0 {
			drift.MissingTables = append(drift.MissingTables, t.Name)
			continue
		}
		live[t.Name] = ts

		have := make(map[string]bool, len(ts.Columns))
		for _, c := range ts.Columns {
			have[c.Name] = true
		}
		for _, c := range t.Columns {
			if !have[c.Name] {
				drift.MissingColumns = append(drift.MissingColumns, t.Name+"."+c.Name)
			}
		}
	}

	for _, rel := range desc.Relations() {
		ts, ok := live[rel.Table]
		if !ok {
			continue
		}
		found := false
		for _, fk := range ts.ForeignKeys {
			if fk.Column == rel.Column && fk.ForeignTable == rel.ForeignTable && fk.ForeignColumn == rel.ForeignColumn {
				found = true
				break
			}
		}
		if !found {
			drift.MissingRelations = append(drift.MissingRelations,
				fmt.Sprintf("%s.%s -> %s.%s", rel.Table, rel.Column, rel.ForeignTable, rel.ForeignColumn))
		}
	}

	sort.Strings(drift.MissingColumns)
	return drift, nil
}
