package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleet_Tables(t *testing.T) {
	d := Fleet()

	require.Len(t, d.Tables, 3)
	for _, name := range []string{"Users", "Vehicles", "VehicleUsages"} {
		_, ok := d.Table(name)
		assert.True(t, ok, "missing table %s", name)
	}
	assert.Same(t, d, Fleet(), "descriptor must be compiled once")
}

func TestFleet_Relations(t *testing.T) {
	rels := Fleet().Relations()

	require.Len(t, rels, 2)
	assert.Equal(t, Relation{Table: "VehicleUsages", Column: "userId", ForeignTable: "Users", ForeignColumn: "id"}, rels[0])
	assert.Equal(t, Relation{Table: "VehicleUsages", Column: "vehicleId", ForeignTable: "Vehicles", ForeignColumn: "id"}, rels[1])
}

func TestFleet_Text(t *testing.T) {
	text := Fleet().String()

	assert.True(t, strings.HasPrefix(text, "Tablas de la base de datos:"))
	assert.Contains(t, text, `1. "Users" (Usuarios):`)
	assert.Contains(t, text, `   - "lastName2": STRING (segundo apellido, opcional)`)
	assert.Contains(t, text, `   - "userId": INTEGER (clave foránea a "Users".id)`)
	assert.Contains(t, text, `- "VehicleUsages"."vehicleId" -> "Vehicles".id`)
	assert.Contains(t, text, "NOTA CRÍTICA")
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"id", "id"},
		{"start_date", "start_date"},
		{"startDate", `"startDate"`},
		{"Users", `"Users"`},
		{"odd name", `"odd name"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteIdent(tt.in))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "tables: []", "no tables"},
		{"bad yaml", "tables: [", "decode schema"},
		{"duplicate table", "tables:\n  - {name: A, columns: []}\n  - {name: A, columns: []}", "duplicate table"},
		{"column without type", "tables:\n  - name: A\n    columns:\n      - {name: id}", "needs name and type"},
		{"unknown reference", "tables:\n  - name: A\n    columns:\n      - {name: bId, type: INTEGER, references: B.id}", "unknown reference"},
		{"malformed reference", "tables:\n  - name: A\n    columns:\n      - {name: bId, type: INTEGER, references: B}", "malformed reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
