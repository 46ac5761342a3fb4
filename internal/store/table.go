package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/crudkit/internal/queryir"
	"github.com/roach88/crudkit/internal/querysql"
)

// Kind is the storage kind of a column.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindJSON   Kind = "json"
	KindTime   Kind = "time" // RFC 3339 text
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindString, KindInt, KindFloat, KindBool, KindJSON, KindTime}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown column kind %q", s)
}

// sqlType maps a kind to its SQLite column type.
// Time and bool use TEXT and INTEGER so the driver never converts them.
func (k Kind) sqlType() string {
	switch k {
	case KindInt, KindBool:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Column is one column of a Table.
type Column struct {
	Name string
	Kind Kind
}

// Table describes a resource table: its name, key column and columns.
type Table struct {
	Name    string
	Key     string
	Columns []Column
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is usable as a table or column name.
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// Validate checks the table definition.
func (t *Table) Validate() error {
	if !ValidIdent(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if !ValidIdent(c.Name) {
			return fmt.Errorf("table %q: invalid column name %q", t.Name, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
		if _, err := ParseKind(string(c.Kind)); err != nil {
			return fmt.Errorf("table %q column %q: %w", t.Name, c.Name, err)
		}
	}

	key, ok := t.Column(t.Key)
	if !ok {
		return fmt.Errorf("table %q: key %q is not a column", t.Name, t.Key)
	}
	if key.Kind != KindString && key.Kind != KindInt {
		return fmt.Errorf("table %q: key %q must be string or int, got %s", t.Name, t.Key, key.Kind)
	}
	return nil
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// KeyKind returns the kind of the key column.
func (t *Table) KeyKind() Kind {
	c, _ := t.Column(t.Key)
	return c.Kind
}

// Select returns a base query over the whole table, ordered by key.
func (t *Table) Select() queryir.Select {
	return queryir.Select{
		From:       t.Name,
		Columns:    t.ColumnNames(),
		TieBreaker: t.Key,
	}
}

// CreateSQL returns the CREATE TABLE IF NOT EXISTS statement for t.
// An int key becomes INTEGER PRIMARY KEY, so SQLite assigns it on insert.
func (t *Table) CreateSQL() string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		def := querysql.QuoteIdent(c.Name) + " " + c.Kind.sqlType()
		if c.Name == t.Key {
			def += " PRIMARY KEY"
			if c.Kind != KindInt {
				// SQLite permits NULL in non-integer primary keys
				def += " NOT NULL"
			}
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", querysql.QuoteIdent(t.Name), strings.Join(defs, ", "))
}

// EnsureTable creates t if it does not exist. Existing tables are left
// untouched; their columns must already match the definition.
func (s *Store) EnsureTable(ctx context.Context, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, t.CreateSQL()); err != nil {
		return fmt.Errorf("ensure table %q: %w", t.Name, err)
	}
	return nil
}
