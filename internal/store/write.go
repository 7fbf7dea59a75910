package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonnymoo/shape/internal/querysql"
)

// Fixture is a batch of rows for one table.
//
// In YAML:
//
//	- table: UPMFOLDER
//	  rows:
//	    - {folderID: F1, folderref: MYREF, datejoinedcomp: "2019-04-06"}
type Fixture struct {
	Table string           `yaml:"table"`
	Rows  []map[string]any `yaml:"rows"`
}

// UnmarshalYAML decodes a fixture. Unquoted dates such as 2019-04-06 keep
// the text written instead of becoming time.Time values.
func (f *Fixture) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fixture must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch key := n.Content[i]; key.Value {
		case "table", "rows":
		default:
			return fmt.Errorf("line %d: field %s not found in fixture", key.Line, key.Value)
		}
	}

	KeepTimestampText(n)
	type plain Fixture
	return n.Decode((*plain)(f))
}

// KeepTimestampText retags every implicitly typed timestamp scalar under n
// as a string, so decoding into any yields the source text. Scalars with an
// explicit !!timestamp tag are left alone.
func KeepTimestampText(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode && n.Style&yaml.TaggedStyle == 0 && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		KeepTimestampText(c)
	}
}

// ReadFixtures decodes a YAML list of fixtures. Unknown fields are errors.
func ReadFixtures(r io.Reader) ([]Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fixtures []Fixture
	if err := dec.Decode(&fixtures); err != nil {
		if errors.Is(err, io.EOF) {
			return []Fixture{}, nil
		}
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return fixtures, nil
}

// Load inserts every fixture in order inside one transaction. Tables
// referenced by a foreign key must come first.
//
// Rows whose primary key already exists are left untouched, so Load is
// safe to repeat.
func (s *Store) Load(ctx context.Context, fixtures []Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, f := range fixtures {
		for i, row := range f.Rows {
			if err := insert(ctx, tx, f.Table, row); err != nil {
				return fmt.Errorf("load fixtures: %s row %d: %w", f.Table, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	return nil
}

// Insert adds one row to table. Table and column names are sanitized the
// same way shape keys are.
func (s *Store) Insert(ctx context.Context, table string, row map[string]any) error {
	if err := insert(ctx, s.db, table, row); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, table string, row map[string]any) error {
	name := querysql.SanitizeIdentifier(table)
	if name == "" {
		return fmt.Errorf("table %q has no identifier characters", table)
	}
	if len(row) == 0 {
		return fmt.Errorf("empty row")
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		col := querysql.SanitizeIdentifier(k)
		if col == "" {
			return fmt.Errorf("column %q has no identifier characters", k)
		}
		cols[i] = col
		marks[i] = "?"
		args[i] = row[k]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		name, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}
