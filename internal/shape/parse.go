package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jonnymoo/shape/internal/ir"
)

// ErrMalformedShape marks a shape description that violates the shape
// grammar (for example a to-many sequence without exactly one template).
// It is a programmer error, not a payload mismatch.
var ErrMalformedShape = errors.New("malformed shape")

// ParseError locates a grammar violation inside a shape description.
type ParseError struct {
	Path    string // dotted location, "" for the root
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed shape: %s", e.Message)
	}
	return fmt.Sprintf("malformed shape at %s: %s", e.Path, e.Message)
}

// Unwrap lets errors.Is match ErrMalformedShape.
func (e *ParseError) Unwrap() error {
	return ErrMalformedShape
}

func malformed(path, format string, args ...any) error {
	return &ParseError{Path: path, Message: fmt.Sprintf(format, args...)}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// ParseJSON parses a shape document, keeping key declaration order.
//
// The root must be an object, or a one-element array holding an object
// (a list document).
func ParseJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	p := &jsonParser{dec: dec}
	node, err := p.node("")
	if err != nil {
		return Document{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Document{}, fmt.Errorf("parse shape JSON: unexpected data after top-level value")
	}

	return DocumentOf(node)
}

// MustParseJSON is like ParseJSON but panics on error.
// Use only in tests or for shapes compiled into the binary.
func MustParseJSON(data string) Document {
	doc, err := ParseJSON([]byte(data))
	if err != nil {
		panic(err)
	}
	return doc
}

// DocumentOf wraps a root node: an object is a plain document and a
// to-many node is a list document. Anything else is malformed.
func DocumentOf(node Node) (Document, error) {
	switch n := node.(type) {
	case ToOne:
		return Document{Shape: n.Shape}, nil
	case ToMany:
		return Document{Shape: n.Template, List: true}, nil
	default:
		return Document{}, malformed("", "root must be an object or a one-element list of objects")
	}
}

type jsonParser struct {
	dec *json.Decoder
}

func (p *jsonParser) token() (json.Token, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse shape JSON: %w", err)
	}
	return tok, nil
}

func (p *jsonParser) node(path string) (Node, error) {
	tok, err := p.token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return Scalar{}, nil
	case string:
		return Filter{Value: ir.String(t)}, nil
	case json.Number:
		return Filter{Value: ir.Number(t)}, nil
	case bool:
		return Filter{Value: ir.Bool(t)}, nil
	case json.Delim:
		switch t {
		case '{':
			s, err := p.object(path)
			if err != nil {
				return nil, err
			}
			return ToOne{Shape: s}, nil
		case '[':
			return p.template(path)
		}
	}
	return nil, fmt.Errorf("parse shape JSON: unexpected token %v", tok)
}

// object reads fields until the closing brace. The opening brace has
// already been consumed.
func (p *jsonParser) object(path string) (Shape, error) {
	var s Shape
	seen := make(map[string]bool)

	for p.dec.More() {
		tok, err := p.token()
		if err != nil {
			return Shape{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Shape{}, fmt.Errorf("parse shape JSON: expected object key, got %v", tok)
		}
		if seen[key] {
			return Shape{}, malformed(join(path, key), "duplicate key")
		}
		seen[key] = true

		node, err := p.node(join(path, key))
		if err != nil {
			return Shape{}, err
		}
		s.Fields = append(s.Fields, Field{Key: key, Node: node})
	}

	if _, err := p.token(); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// template reads a to-many sequence. The opening bracket has already been
// consumed.
func (p *jsonParser) template(path string) (Node, error) {
	var elems []Node
	for p.dec.More() {
		node, err := p.node(fmt.Sprintf("%s[%d]", path, len(elems)))
		if err != nil {
			return nil, err
		}
		elems = append(elems, node)
	}
	if _, err := p.token(); err != nil {
		return nil, err
	}
	return toMany(path, elems)
}

func toMany(path string, elems []Node) (Node, error) {
	if len(elems) != 1 {
		return nil, malformed(path, "to-many template must have exactly one element, got %d", len(elems))
	}
	one, ok := elems[0].(ToOne)
	if !ok {
		return nil, malformed(path, "to-many template must be an object")
	}
	return ToMany{Template: one.Shape}, nil
}

// ParseYAML parses a shape document written in YAML, keeping key order.
// ~ and null are Scalar leaves.
func ParseYAML(data []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("parse shape YAML: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Document{}, malformed("", "empty document")
	}

	node, err := FromYAMLNode(root.Content[0])
	if err != nil {
		return Document{}, err
	}
	return DocumentOf(node)
}

// FromYAMLNode converts a decoded yaml.Node into a shape node. It is used
// directly by loaders that embed shapes inside larger YAML documents.
func FromYAMLNode(n *yaml.Node) (Node, error) {
	return yamlNode(n, "")
}

func yamlNode(n *yaml.Node, path string) (Node, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	switch n.Kind {
	case yaml.MappingNode:
		var s Shape
		seen := make(map[string]bool)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if seen[key] {
				return nil, malformed(join(path, key), "duplicate key")
			}
			seen[key] = true

			child, err := yamlNode(n.Content[i+1], join(path, key))
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, Field{Key: key, Node: child})
		}
		return ToOne{Shape: s}, nil

	case yaml.SequenceNode:
		elems := make([]Node, 0, len(n.Content))
		for i, c := range n.Content {
			child, err := yamlNode(c, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			elems = append(elems, child)
		}
		return toMany(path, elems)

	case yaml.ScalarNode:
		return yamlScalar(n, path)

	default:
		return nil, malformed(path, "unsupported YAML node at line %d", n.Line)
	}
}

func yamlScalar(n *yaml.Node, path string) (Node, error) {
	switch n.ShortTag() {
	case "!!null":
		return Scalar{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("parse shape YAML at %s: %w", path, err)
		}
		return Filter{Value: ir.Bool(b)}, nil
	case "!!int", "!!float":
		if !json.Valid([]byte(n.Value)) {
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, fmt.Errorf("parse shape YAML at %s: %w", path, err)
			}
			return Filter{Value: ir.Number(strconv.FormatFloat(f, 'g', -1, 64))}, nil
		}
		return Filter{Value: ir.Number(n.Value)}, nil
	default:
		return Filter{Value: ir.String(n.Value)}, nil
	}
}

// MarshalJSON writes the shape in its source form, keeping field order.
func (s Shape) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeShape(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON writes the document in its source form.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if d.List {
		buf.WriteByte('[')
	}
	if err := writeShape(&buf, d.Shape); err != nil {
		return nil, err
	}
	if d.List {
		buf.WriteByte(']')
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a shape document, so Document round-trips through
// encoding/json.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

func writeShape(buf *bytes.Buffer, s Shape) error {
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(f.Key)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		switch n := f.Node.(type) {
		case ToOne:
			err = writeShape(buf, n.Shape)
		case ToMany:
			buf.WriteByte('[')
			err = writeShape(buf, n.Template)
			buf.WriteByte(']')
		case Filter:
			var b []byte
			b, err = ir.MarshalValue(n.Value)
			buf.Write(b)
		default:
			buf.WriteString("null")
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}
