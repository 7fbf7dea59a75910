// Package reshape turns the nested JSON produced by a compiled shape query
// into plain objects.
//
// FOR JSON subqueries always yield arrays. Columns tagged with the object
// marker hold to-one relations whose single-element array is collapsed back
// into an object here. Untagged arrays are to-many data and are kept.
package reshape

import (
	"fmt"
	"strings"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
)

// Reshape reshapes a top-level query result. The root is a collapse point:
// a root array yields its first row.
func Reshape(v ir.Value) ir.Value {
	return Value(v, true)
}

// Value reshapes v. When collapse is set, v is expected to hold a single
// logical row: an array yields its first element (or an empty object) and
// anything else is reshaped as is.
func Value(v ir.Value, collapse bool) ir.Value {
	switch val := v.(type) {
	case nil, ir.Null:
		return ir.Array{}

	case ir.Array:
		if collapse {
			if len(val) == 0 {
				return ir.Object{}
			}
			return Value(val[0], false)
		}
		out := make(ir.Array, len(val))
		for i, elem := range val {
			out[i] = Value(elem, false)
		}
		return out

	case ir.Object:
		out := make(ir.Object, len(val))
		for k, elem := range val {
			if !strings.HasPrefix(k, querysql.ObjectMarker) {
				out[k] = Value(elem, false)
			}
		}
		// Marked keys win over a plain key of the same name.
		for k, elem := range val {
			if name, ok := strings.CutPrefix(k, querysql.ObjectMarker); ok {
				out[name] = Value(elem, true)
			}
		}
		return out

	default:
		return v
	}
}

// JSON decodes data, reshapes it, and encodes the result.
func JSON(data []byte, collapse bool) ([]byte, error) {
	v, err := ir.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	out, err := ir.MarshalValue(Value(v, collapse))
	if err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	return out, nil
}
