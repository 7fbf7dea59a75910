package shape

import (
	"github.com/jonnymoo/shape/internal/ir"
)

// Node is one value in a shape description.
//
// This is a sealed interface - only types in this package implement it.
//
// Node types:
//   - Scalar: required leaf (JSON null)
//   - ToOne: required nested object (JSON object)
//   - ToMany: required list of objects (JSON array with one template)
//   - Filter: equality filter on the parent relation (non-null JSON scalar)
type Node interface {
	shapeNode() // Marker method - seals interface to this package
}

// Scalar requires a leaf value to be present.
//
// At compile time it becomes a bare column in the parent's select list.
type Scalar struct{}

func (Scalar) shapeNode() {}

// ToOne requires a nested object with the given shape.
//
// At compile time it becomes a TOP 1 correlated subquery whose output
// column carries the object marker prefix.
type ToOne struct {
	Shape Shape
}

func (ToOne) shapeNode() {}

// ToMany requires a list whose every element has the template shape.
//
// At compile time it becomes a correlated subquery returning all rows.
type ToMany struct {
	Template Shape
}

func (ToMany) shapeNode() {}

// Filter is a literal scalar value.
//
// At compile time it restricts the parent relation with
// <alias>.<key> = <placeholder> and is never selected as a column.
// At match time it only requires the key to be present.
type Filter struct {
	Value ir.Value // String, Number, or Bool - never Null
}

func (Filter) shapeNode() {}

// Field is one key of a shape and the node describing it.
type Field struct {
	Key  string
	Node Node
}

// F is a shorthand for Field.
// Example: New(F("folderref", Scalar{}), F("salary", ToMany{Template: New(...)}))
func F(key string, node Node) Field {
	return Field{Key: key, Node: node}
}

// Shape is an ordered set of fields.
//
// Order is declaration order from the source document. Keys are unique.
type Shape struct {
	Fields []Field
}

// New creates a Shape from fields in order.
func New(fields ...Field) Shape {
	return Shape{Fields: fields}
}

// Len returns the number of fields.
func (s Shape) Len() int {
	return len(s.Fields)
}

// Keys returns field keys in declaration order.
func (s Shape) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the node for key.
func (s Shape) Get(key string) (Node, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Node, true
		}
	}
	return nil, false
}

// Document is a root shape description.
//
// List is set when the root was written as a one-element template array,
// in which case the compiled statement returns a JSON array at top level.
type Document struct {
	Shape Shape
	List  bool
}
