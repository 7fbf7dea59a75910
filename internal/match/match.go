// Package match checks whether an input tree already contains a shape.
//
// Match never fails: mismatches are returned as data in a Report. Keys that
// name a known relation root also carry example SQL that would fetch the
// missing branch.
package match

import (
	"fmt"
	"strings"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/shape"
)

// Reasons recorded in a Missing entry.
const (
	ReasonMissing      = "missing"
	ReasonExpectObject = "expected a nested object"
	ReasonExpectList   = "expected a list"
)

// KnownRoots are the entity types the schema exposes as relation roots.
var KnownRoots = []string{
	"folder", "person", "paylocation", "payroll", "payrollmember",
	"company", "client", "scheme", "area", "system",
}

// Missing describes one unmet requirement.
type Missing struct {
	Key        string `json:"key"`
	Reason     string `json:"reason"`
	ExampleSQL string `json:"example-sql,omitempty"`
	Path       string `json:"path,omitempty"`
}

// Report is the outcome of Match.
type Report struct {
	OK      bool      `json:"ok"`
	Missing []Missing `json:"missing"`
}

// Option configures Match.
type Option func(*matcher)

// WithCompiler sets the compiler used for example SQL.
func WithCompiler(c *querysql.Compiler) Option {
	return func(m *matcher) {
		m.compiler = c
	}
}

// WithKnownRoots replaces the relation roots that get example SQL.
func WithKnownRoots(roots ...string) Option {
	return func(m *matcher) {
		m.roots = rootSet(roots)
	}
}

type matcher struct {
	compiler *querysql.Compiler
	roots    map[string]bool
	missing  []Missing
}

func rootSet(roots []string) map[string]bool {
	set := make(map[string]bool, len(roots))
	for _, r := range roots {
		set[strings.ToLower(r)] = true
	}
	return set
}

// Match walks s depth first and records every requirement input does not
// meet. Only parts of input named by s are visited.
func Match(s shape.Shape, input ir.Value, opts ...Option) Report {
	m := &matcher{
		compiler: querysql.New(),
		roots:    rootSet(KnownRoots),
		missing:  []Missing{},
	}
	for _, opt := range opts {
		opt(m)
	}

	obj, _ := input.(ir.Object)
	m.shape(s, obj, "")

	return Report{
		OK:      len(m.missing) == 0,
		Missing: m.missing,
	}
}

func (m *matcher) add(key, reason, path string) {
	m.missing = append(m.missing, Missing{Key: key, Reason: reason, Path: path})
}

// shape checks s against obj. A nil obj reports every key as missing.
func (m *matcher) shape(s shape.Shape, obj ir.Object, path string) {
	for _, f := range s.Fields {
		fieldPath := joinPath(path, f.Key)

		val, ok := obj[f.Key]
		if !ok {
			entry := Missing{Key: f.Key, Reason: ReasonMissing, Path: fieldPath}
			if m.roots[strings.ToLower(f.Key)] {
				entry.ExampleSQL = m.exampleSQL(f)
			}
			m.missing = append(m.missing, entry)
			continue
		}

		switch n := f.Node.(type) {
		case shape.ToOne:
			child, isObj := val.(ir.Object)
			if !isObj {
				m.add(f.Key, ReasonExpectObject, fieldPath)
				continue
			}
			m.shape(n.Shape, child, fieldPath)

		case shape.ToMany:
			list, isList := val.(ir.Array)
			if !isList {
				m.add(f.Key, ReasonExpectList, fieldPath)
				continue
			}
			for i, elem := range list {
				elemPath := fmt.Sprintf("%s[%d]", fieldPath, i)
				child, isObj := elem.(ir.Object)
				if !isObj {
					m.add(f.Key, ReasonExpectObject, elemPath)
					continue
				}
				m.shape(n.Template, child, elemPath)
			}

		default:
			// Scalar and Filter: presence is enough.
		}
	}
}

// exampleSQL compiles the one-key shape {key: node}. Shapes that cannot be
// compiled (a root filter literal, say) get no example.
func (m *matcher) exampleSQL(f shape.Field) string {
	if m.compiler == nil {
		return ""
	}
	q, err := m.compiler.CompileShape(shape.New(f))
	if err != nil {
		return ""
	}
	return q.SQL
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
