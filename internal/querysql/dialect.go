package querysql

import (
	"fmt"
	"strings"
)

// ObjectMarker prefixes every to-one output column. The reshaper strips it
// and collapses the single-element array underneath.
const ObjectMarker = "convert_to_object_"

// Subquery is a lowered relation ready to be rendered by a Dialect.
type Subquery struct {
	Key     string   // sanitized shape key, the output column name
	Table   string   // relation table name
	Alias   string   // correlation alias
	Columns []string // rendered select list entries
	Where   []string // correlation and filter conditions, ANDed
}

// Dialect renders lowered relations into SQL text that returns nested JSON.
//
// Implementations must be pure: identical input yields identical text.
type Dialect interface {
	// Name identifies the dialect in config and logs.
	Name() string

	// Param renders the n-th (1-based) positional filter placeholder.
	Param(n int) string

	// Anchor renders the root id placeholder.
	Anchor(name string) string

	// Column renders a plain selected column.
	Column(key string) string

	// ToOne renders a single-row correlated subquery column.
	ToOne(sub Subquery) string

	// ToMany renders a multi-row correlated subquery column.
	ToMany(sub Subquery) string

	// Root renders the outer statement.
	Root(columns []string, list bool) string

	// Wrap adapts a compiled statement for fetching as one text value.
	Wrap(sql string) string
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// MSSQL renders T-SQL using FOR JSON PATH.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) Param(n int) string { return fmt.Sprintf("@p%d", n) }

func (MSSQL) Anchor(name string) string { return "@" + name }

func (MSSQL) Column(key string) string { return key }

func (MSSQL) ToOne(sub Subquery) string {
	return fmt.Sprintf("(SELECT TOP 1 %s FROM %s %s%s FOR JSON PATH, INCLUDE_NULL_VALUES) AS %s%s",
		strings.Join(sub.Columns, ", "), sub.Table, sub.Alias, where(sub.Where), ObjectMarker, sub.Key)
}

func (MSSQL) ToMany(sub Subquery) string {
	return fmt.Sprintf("(SELECT %s FROM %s %s%s FOR JSON PATH, INCLUDE_NULL_VALUES) AS %s",
		strings.Join(sub.Columns, ", "), sub.Table, sub.Alias, where(sub.Where), sub.Key)
}

func (MSSQL) Root(columns []string, list bool) string {
	if list {
		return fmt.Sprintf("SELECT %s FOR JSON PATH", strings.Join(columns, ", "))
	}
	return fmt.Sprintf("SELECT %s FOR JSON PATH, WITHOUT_ARRAY_WRAPPER", strings.Join(columns, ", "))
}

// Wrap casts the JSON result to one NVARCHAR(MAX) value. Without it SQL
// Server splits long FOR JSON output across several rows.
func (MSSQL) Wrap(sql string) string {
	return fmt.Sprintf("SELECT CAST((%s) AS NVARCHAR(MAX))", sql)
}

// SQLite renders the same statement shape with the JSON1 functions, so a
// shape can be fetched from a local database and reshaped identically.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Param(n int) string { return fmt.Sprintf("@p%d", n) }

func (SQLite) Anchor(name string) string { return "@" + name }

func (SQLite) Column(key string) string { return fmt.Sprintf("'%s', %s", key, key) }

func (SQLite) ToOne(sub Subquery) string {
	return fmt.Sprintf("'%s%s', json((SELECT json_array(json_object(%s)) FROM %s %s%s LIMIT 1))",
		ObjectMarker, sub.Key, strings.Join(sub.Columns, ", "), sub.Table, sub.Alias, where(sub.Where))
}

func (SQLite) ToMany(sub Subquery) string {
	return fmt.Sprintf("'%s', json((SELECT json_group_array(json_object(%s)) FROM %s %s%s))",
		sub.Key, strings.Join(sub.Columns, ", "), sub.Table, sub.Alias, where(sub.Where))
}

func (SQLite) Root(columns []string, list bool) string {
	if list {
		return fmt.Sprintf("SELECT json_array(json_object(%s))", strings.Join(columns, ", "))
	}
	return fmt.Sprintf("SELECT json_object(%s)", strings.Join(columns, ", "))
}

func (SQLite) Wrap(sql string) string { return sql }

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "mssql", "sqlserver":
		return MSSQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q", name)
	}
}
