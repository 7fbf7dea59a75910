package catalog

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/shape"
)

func compileEntry(name string, v cue.Value) (Entry, error) {
	if err := v.Err(); err != nil {
		return Entry{}, withEntry(name, formatCUEError(err))
	}

	entry := Entry{Name: name, Pos: v.Pos()}

	if d := v.LookupPath(cue.ParsePath("description")); d.Exists() {
		s, err := d.String()
		if err != nil {
			return Entry{}, withEntry(name, formatCUEError(err))
		}
		entry.Description = s
	}

	if r := v.LookupPath(cue.ParsePath("rule")); r.Exists() {
		s, err := r.String()
		if err != nil {
			return Entry{}, withEntry(name, formatCUEError(err))
		}
		entry.Rule = s
	}

	if l := v.LookupPath(cue.ParsePath("list")); l.Exists() {
		b, err := l.Bool()
		if err != nil {
			return Entry{}, withEntry(name, formatCUEError(err))
		}
		entry.Document.List = b
	}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if !fields.Exists() {
		return Entry{}, &LoadError{Entry: name, Field: "fields", Message: "fields is required", Pos: v.Pos()}
	}
	s, err := compileShape(name, fields, "")
	if err != nil {
		return Entry{}, err
	}
	if s.Len() == 0 {
		return Entry{}, &LoadError{Entry: name, Field: "fields", Message: "at least one field is required", Pos: fields.Pos()}
	}
	entry.Document.Shape = s

	return entry, nil
}

func compileShape(entry string, v cue.Value, path string) (shape.Shape, error) {
	iter, err := v.Fields()
	if err != nil {
		return shape.Shape{}, withEntry(entry, formatCUEError(err))
	}

	var s shape.Shape
	for iter.Next() {
		key := iter.Selector().Unquoted()
		node, err := compileNode(entry, iter.Value(), join(path, key))
		if err != nil {
			return shape.Shape{}, err
		}
		s.Fields = append(s.Fields, shape.F(key, node))
	}
	return s, nil
}

func compileNode(entry string, v cue.Value, path string) (shape.Node, error) {
	fail := func(format string, args ...any) error {
		return &LoadError{Entry: entry, Field: path, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return shape.Scalar{}, nil

	case cue.StructKind:
		s, err := compileShape(entry, v, path)
		if err != nil {
			return nil, err
		}
		return shape.ToOne{Shape: s}, nil

	case cue.ListKind:
		n, err := v.Len().Int64()
		if err != nil {
			return nil, withEntry(entry, formatCUEError(err))
		}
		if n != 1 {
			return nil, fail("to-many template must have exactly one element, got %d", n)
		}
		elem := v.LookupPath(cue.MakePath(cue.Index(0)))
		if elem.Kind() != cue.StructKind {
			return nil, fail("to-many template must be a struct")
		}
		s, err := compileShape(entry, elem, path+"[0]")
		if err != nil {
			return nil, err
		}
		return shape.ToMany{Template: s}, nil

	case cue.StringKind:
		str, err := v.String()
		if err != nil {
			return nil, withEntry(entry, formatCUEError(err))
		}
		return shape.Filter{Value: ir.String(str)}, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, withEntry(entry, formatCUEError(err))
		}
		return shape.Filter{Value: ir.Bool(b)}, nil

	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, withEntry(entry, formatCUEError(err))
		}
		return shape.Filter{Value: ir.Int(i)}, nil

	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, withEntry(entry, formatCUEError(err))
		}
		return shape.Filter{Value: ir.Number(strconv.FormatFloat(f, 'g', -1, 64))}, nil

	default:
		return nil, fail("value must be concrete null, struct, list, string, bool or number")
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
