package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipoapa2-hub/autopic/schema"
)

func TestNormalizeRow(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	row := map[string]any{
		"id":    [16]byte(id),
		"notes": []byte("revisión"),
		"year":  int64(2021),
		"email": nil,
	}

	normalizeRow(row)

	assert.Equal(t, id.String(), row["id"])
	assert.Equal(t, "revisión", row["notes"])
	assert.Equal(t, int64(2021), row["year"])
	assert.Nil(t, row["email"])
}

type stubIntrospector map[string]*TableSchema

func (s stubIntrospector) FetchTableSchema(_ context.Context, table string) (*TableSchema, error) {
	if ts, ok := s[table]; ok {
		return ts, nil
	}
	return &TableSchema{Name: table}, nil
}

type failingIntrospector struct{}

func (failingIntrospector) FetchTableSchema(context.Context, string) (*TableSchema, error) {
	return nil, errors.New("connection reset")
}

func TestVerifyDescriptor_Stub(t *testing.T) {
	desc, err := schema.Parse([]byte(`
tables:
  - name: A
    columns:
      - {name: id, type: INTEGER, primary_key: true}
  - name: B
    columns:
      - {name: id, type: INTEGER, primary_key: true}
      - {name: aId, type: INTEGER, references: A.id}
      - {name: extra, type: TEXT}
`))
	require.NoError(t, err)

	live := stubIntrospector{
		"A": {Name: "A", Columns: []ColumnInfo{{Name: "id", IsPK: true}}},
		"B": {
			Name:        "B",
			Columns:     []ColumnInfo{{Name: "id"}, {Name: "aId"}},
			ForeignKeys: []ForeignKeyInfo{{Column: "aId", ForeignTable: "A", ForeignColumn: "id"}},
		},
	}

	drift, err := VerifyDescriptor(context.Background(), live, desc)
	require.NoError(t, err)
	assert.Empty(t, drift.MissingTables)
	assert.Equal(t, []string{"B.extra"}, drift.MissingColumns)
	assert.Empty(t, drift.MissingRelations)

	live["B"].Columns = append(live["B"].Columns, ColumnInfo{Name: "extra"})
	drift, err = VerifyDescriptor(context.Background(), live, desc)
	require.NoError(t, err)
	assert.True(t, drift.OK())
	assert.Equal(t, "schema matches the database", drift.String())

	_, err = VerifyDescriptor(context.Background(), failingIntrospector{}, desc)
	assert.ErrorContains(t, err, "connection reset")
}
