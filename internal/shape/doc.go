// Package shape provides the shape description IR: a declarative, nested
// description of the subset of an object graph a caller needs.
//
// A shape is authored as JSON (or YAML) where every value means something:
//
//	{
//	  "folder": {                    ToOne    - required nested object
//	    "folderref": "MYREF",        Filter   - equality filter / presence
//	    "datejoinedcomp": null,      Scalar   - required leaf column
//	    "salary": [{                 ToMany   - required list, one template
//	      "datestarted": null
//	    }]
//	  }
//	}
//
// The same description drives three consumers: the matcher (does a payload
// already contain this shape?), the SQL compiler (fetch this shape as nested
// JSON) and the lint pass. Field order is significant because compiled SQL
// column order follows declaration order, so Shape is an ordered slice of
// fields rather than a map.
//
// SEALED INTERFACE:
//
// Node is sealed with a marker method. Only Scalar, ToOne, ToMany and Filter
// implement it, so consumers can type switch exhaustively:
//
//	switch n := node.(type) {
//	case shape.Scalar:
//	case shape.ToOne:
//	case shape.ToMany:
//	case shape.Filter:
//	}
//
// A ToMany always holds exactly one template. Sequences with zero or several
// elements are rejected at parse time with ErrMalformedShape.
package shape
