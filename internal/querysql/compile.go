package querysql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/shape"
)

// Defaults used by New.
const (
	DefaultAnchor      = "keyobjectid"
	DefaultTablePrefix = "UPM"
)

// ErrInvalidShape marks a shape that cannot be lowered to SQL. It is a
// programmer error in the shape, never a property of fetched data.
var ErrInvalidShape = errors.New("shape cannot be compiled")

// Query is a compiled statement.
//
// Placeholders in SQL appear left to right in the same order as Binds:
// @p1 is Binds[0], @p2 is Binds[1], and so on.
type Query struct {
	SQL     string
	Binds   []any
	Anchor  string // anchor parameter name, "" when SQL does not reference it
	Dialect string
	List    bool // result is a JSON array rather than a single object
}

// Args returns database/sql arguments for the query. anchorID is bound to
// the anchor placeholder when the statement uses one.
func (q Query) Args(anchorID any) []any {
	args := make([]any, 0, len(q.Binds)+1)
	for i, b := range q.Binds {
		args = append(args, sql.Named(fmt.Sprintf("p%d", i+1), b))
	}
	if q.Anchor != "" {
		args = append(args, sql.Named(q.Anchor, anchorID))
	}
	return args
}

// Compiler lowers shape documents to a single SQL statement returning
// nested JSON.
//
// A Compiler holds no per-compilation state and is safe for concurrent use.
type Compiler struct {
	dialect Dialect
	anchor  string
	prefix  string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDialect selects the SQL dialect. The default is MSSQL.
func WithDialect(d Dialect) Option {
	return func(c *Compiler) {
		c.dialect = d
	}
}

// WithAnchor sets the parameter name that root to-one relations are
// correlated against.
func WithAnchor(name string) Option {
	return func(c *Compiler) {
		c.anchor = SanitizeIdentifier(name)
	}
}

// WithoutAnchor leaves root relations uncorrelated.
func WithoutAnchor() Option {
	return func(c *Compiler) {
		c.anchor = ""
	}
}

// WithTablePrefix sets the prefix prepended to every relation table name.
func WithTablePrefix(prefix string) Option {
	return func(c *Compiler) {
		c.prefix = SanitizeIdentifier(prefix)
	}
}

// New creates a Compiler. Without options it emits T-SQL against UPM
// tables anchored on @keyobjectid.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		dialect: MSSQL{},
		anchor:  DefaultAnchor,
		prefix:  DefaultTablePrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile lowers a shape document with the default compiler.
func Compile(doc shape.Document) (Query, error) {
	return New().Compile(doc)
}

// CompileShape lowers a plain (non-list) shape.
func (c *Compiler) CompileShape(s shape.Shape) (Query, error) {
	return c.Compile(shape.Document{Shape: s})
}

// Compile lowers a shape document to a single statement.
//
// Every compilation starts its alias counter at 1 and its placeholder
// counter at 0; both are threaded through the recursion, so output is
// deterministic byte for byte.
func (c *Compiler) Compile(doc shape.Document) (Query, error) {
	frag, st, err := c.lower(doc.Shape, nil, "", state{alias: 1})
	if err != nil {
		return Query{}, err
	}
	if len(frag.columns) == 0 {
		return Query{}, fmt.Errorf("%w: root selects no columns", ErrInvalidShape)
	}

	q := Query{
		SQL:     c.dialect.Root(frag.columns, doc.List),
		Binds:   frag.binds,
		Dialect: c.dialect.Name(),
		List:    doc.List,
	}
	if st.anchored {
		q.Anchor = c.anchor
	}
	return q, nil
}

// relation is the enclosing relation of a shape being lowered.
type relation struct {
	alias string
	key   string
}

// state is threaded through lower and returned advanced.
type state struct {
	alias    int  // next alias suffix
	param    int  // last placeholder number used
	anchored bool // anchor placeholder emitted
}

// fragment is the lowered form of one shape level.
type fragment struct {
	columns []string
	binds   []any
	filters []string // conditions on the enclosing relation
}

// pendingFilter is an own-level filter whose placeholder is numbered after
// every nested subquery of the same level, matching text order.
type pendingFilter struct {
	key   string
	value ir.Value
	path  string
}

func (c *Compiler) lower(s shape.Shape, parent *relation, path string, st state) (fragment, state, error) {
	var frag fragment
	var own []pendingFilter

	for _, f := range s.Fields {
		fieldPath := joinPath(path, f.Key)
		key := SanitizeIdentifier(f.Key)
		if key == "" {
			return fragment{}, st, fmt.Errorf("%w: key %q at %s has no identifier characters", ErrInvalidShape, f.Key, fieldPath)
		}

		switch n := f.Node.(type) {
		case shape.Scalar:
			frag.columns = append(frag.columns, c.dialect.Column(key))

		case shape.Filter:
			if parent == nil {
				return fragment{}, st, fmt.Errorf("%w: filter %s has no enclosing relation", ErrInvalidShape, fieldPath)
			}
			own = append(own, pendingFilter{key: key, value: n.Value, path: fieldPath})

		case shape.ToOne:
			sub, binds, next, err := c.subquery(n.Shape, key, fieldPath, st, func(alias string, st *state) []string {
				if parent != nil {
					return []string{fmt.Sprintf("%s.%sID = %s.%sID", alias, key, parent.alias, key)}
				}
				if c.anchor != "" {
					st.anchored = true
					return []string{fmt.Sprintf("%s.%sID = %s", alias, key, c.dialect.Anchor(c.anchor))}
				}
				return nil
			})
			if err != nil {
				return fragment{}, st, err
			}
			st = next
			sub.Table = c.prefix + strings.ToUpper(key)
			frag.columns = append(frag.columns, c.dialect.ToOne(sub))
			frag.binds = append(frag.binds, binds...)

		case shape.ToMany:
			sub, binds, next, err := c.subquery(n.Template, key, fieldPath, st, func(alias string, _ *state) []string {
				if parent == nil {
					return nil
				}
				return []string{fmt.Sprintf("%s.%sID = %s.%sID", alias, parent.key, parent.alias, parent.key)}
			})
			if err != nil {
				return fragment{}, st, err
			}
			st = next
			sub.Table = c.prefix + key
			frag.columns = append(frag.columns, c.dialect.ToMany(sub))
			frag.binds = append(frag.binds, binds...)

		default:
			return fragment{}, st, fmt.Errorf("%w: unsupported node %T at %s", ErrInvalidShape, f.Node, fieldPath)
		}
	}

	for _, p := range own {
		v, err := bindValue(p.value)
		if err != nil {
			return fragment{}, st, fmt.Errorf("%w: filter %s: %v", ErrInvalidShape, p.path, err)
		}
		st.param++
		frag.filters = append(frag.filters, fmt.Sprintf("%s.%s = %s", parent.alias, p.key, c.dialect.Param(st.param)))
		frag.binds = append(frag.binds, v)
	}

	return frag, st, nil
}

// subquery allocates an alias for key, lowers child beneath it and
// assembles the WHERE list: correlation first, then the child's filters.
func (c *Compiler) subquery(child shape.Shape, key, path string, st state, correlate func(alias string, st *state) []string) (Subquery, []any, state, error) {
	alias := aliasFor(key, st.alias)
	st.alias++

	frag, next, err := c.lower(child, &relation{alias: alias, key: key}, path, st)
	if err != nil {
		return Subquery{}, nil, st, err
	}
	if len(frag.columns) == 0 {
		return Subquery{}, nil, st, fmt.Errorf("%w: %s selects no columns", ErrInvalidShape, path)
	}

	conds := correlate(alias, &next)
	conds = append(conds, frag.filters...)

	return Subquery{
		Key:     key,
		Alias:   alias,
		Columns: frag.columns,
		Where:   conds,
	}, frag.binds, next, nil
}

// aliasFor joins key and counter. A key ending in a digit gets an
// underscore separator so "a1"+"1" cannot meet "a"+"11".
func aliasFor(key string, n int) string {
	last := key[len(key)-1]
	if last >= '0' && last <= '9' {
		return fmt.Sprintf("%s_%d", key, n)
	}
	return fmt.Sprintf("%s%d", key, n)
}

// bindValue converts a filter literal to a database/sql argument.
func bindValue(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", string(val), err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported filter value %T", v)
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
