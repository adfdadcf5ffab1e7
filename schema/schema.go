// Package schema holds the Schema Descriptor: a static description of the
// fleet tables that is injected into every assistant prompt so the model can
// reference real structure.
//
// The descriptor is compiled once from the embedded fleet.yaml and is
// immutable afterwards; any number of goroutines may read it.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed fleet.yaml
var fleetYAML []byte

// Column describes one column of a table.
type Column struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Note       string `yaml:"note,omitempty"`
	Nullable   bool   `yaml:"nullable,omitempty"`
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	// References is "Table.column" for foreign keys.
	References string `yaml:"references,omitempty"`
}

// Table describes one queryable entity.
type Table struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label"`
	Columns []Column `yaml:"columns"`
}

// Relation is a foreign key edge between two tables.
type Relation struct {
	Table         string
	Column        string
	ForeignTable  string
	ForeignColumn string
}

// Descriptor is the parsed, validated schema. Do not mutate after Parse.
type Descriptor struct {
	Tables []Table `yaml:"tables"`

	relations []Relation
	text      string
}

var fleet = sync.OnceValue(func() *Descriptor {
	d, err := Parse(fleetYAML)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded fleet.yaml is invalid: %v", err))
	}
	return d
})

// Fleet returns the descriptor of the fleet database.
func Fleet() *Descriptor {
	return fleet()
}

// Parse decodes and validates a YAML descriptor.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if len(d.Tables) == 0 {
		return nil, fmt.Errorf("schema has no tables")
	}

	columns := make(map[string]bool)
	for _, t := range d.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table without name")
		}
		if columns[t.Name] {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		columns[t.Name] = true
		for _, c := range t.Columns {
			key := t.Name + "." + c.Name
			if c.Name == "" || c.Type == "" {
				return nil, fmt.Errorf("table %q: column needs name and type", t.Name)
			}
			if columns[key] {
				return nil, fmt.Errorf("duplicate column %q", key)
			}
			columns[key] = true
		}
	}

	for _, t := range d.Tables {
		for _, c := range t.Columns {
			if c.References == "" {
				continue
			}
			idx := strings.LastIndex(c.References, ".")
			if idx <= 0 || idx == len(c.References)-1 {
				return nil, fmt.Errorf("%s.%s: malformed reference %q", t.Name, c.Name, c.References)
			}
			if !columns[c.References] {
				return nil, fmt.Errorf("%s.%s: unknown reference %q", t.Name, c.Name, c.References)
			}
			d.relations = append(d.relations, Relation{
				Table:         t.Name,
				Column:        c.Name,
				ForeignTable:  c.References[:idx],
				ForeignColumn: c.References[idx+1:],
			})
		}
	}

	d.text = d.render()
	return &d, nil
}

// Table looks a table up by exact name.
func (d *Descriptor) Table(name string) (Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Relations returns the foreign key edges in declaration order.
func (d *Descriptor) Relations() []Relation {
	out := make([]Relation, len(d.relations))
	copy(out, d.relations)
	return out
}

// String returns the prompt text for the descriptor.
func (d *Descriptor) String() string {
	return d.text
}

func (d *Descriptor) render() string {
	var sb strings.Builder
	sb.WriteString("Tablas de la base de datos:\n")

	for i, t := range d.Tables {
		fmt.Fprintf(&sb, "\n%d. %q (%s):\n", i+1, t.Name, t.Label)
		for _, c := range t.Columns {
			fmt.Fprintf(&sb, "   - %s: %s", QuoteIdent(c.Name), c.Type)
			if note := columnNote(c); note != "" {
				fmt.Fprintf(&sb, " (%s)", note)
			}
			sb.WriteString("\n")
		}
	}

	if len(d.relations) > 0 {
		sb.WriteString("\nRelaciones:\n")
		for _, r := range d.relations {
			fmt.Fprintf(&sb, "- %q.%s -> %q.%s\n",
				r.Table, QuoteIdent(r.Column), r.ForeignTable, QuoteIdent(r.ForeignColumn))
		}
	}

	sb.WriteString("\nNOTA CRÍTICA: En PostgreSQL, los nombres de tablas y columnas con mayúsculas DEBEN ir entre comillas dobles.\n")
	return sb.String()
}

func columnNote(c Column) string {
	var parts []string
	if c.Note != "" {
		parts = append(parts, c.Note)
	}
	if c.References != "" {
		idx := strings.LastIndex(c.References, ".")
		parts = append(parts, fmt.Sprintf("clave foránea a %q.%s",
			c.References[:idx], QuoteIdent(c.References[idx+1:])))
	}
	if c.Nullable {
		parts = append(parts, "opcional")
	}
	return strings.Join(parts, ", ")
}

// QuoteIdent double-quotes an identifier when PostgreSQL would otherwise
// fold it to lower case.
func QuoteIdent(name string) string {
	for _, r := range name {
		if unicode.IsUpper(r) || !(unicode.IsLower(r) || unicode.IsDigit(r) || r == '_') {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
	}
	return name
}
