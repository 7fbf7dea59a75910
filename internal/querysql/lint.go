package querysql

import (
	"fmt"

	"github.com/jonnymoo/shape/internal/shape"
)

// LintResult holds advisory findings about a shape.
//
// A shape with warnings may still compile; Compile is the authority on
// whether it can be lowered.
type LintResult struct {
	// Clean is true when no warnings were found.
	Clean bool

	// Warnings lists findings in traversal order.
	Warnings []string
}

// Lint inspects a shape for keys that will not survive into SQL the way
// they were written.
//
// Lint is a pure function with no side effects.
func Lint(doc shape.Document) LintResult {
	l := &linter{warnings: []string{}}
	l.lintShape(doc.Shape, "", true)

	return LintResult{
		Clean:    len(l.warnings) == 0,
		Warnings: l.warnings,
	}
}

type linter struct {
	warnings []string
}

func (l *linter) addWarning(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *linter) lintShape(s shape.Shape, path string, root bool) {
	if s.Len() == 0 {
		l.addWarning("%s selects no columns", displayPath(path))
	}

	seen := make(map[string]string, s.Len())
	for _, f := range s.Fields {
		fieldPath := joinPath(path, f.Key)
		ident := SanitizeIdentifier(f.Key)

		switch {
		case ident == "":
			l.addWarning("key %q at %s has no identifier characters", f.Key, fieldPath)
		case ident != f.Key:
			l.addWarning("key %q at %s is emitted as %q", f.Key, fieldPath, ident)
		}
		if prev, ok := seen[ident]; ok && ident != "" {
			l.addWarning("keys %q and %q at %s both emit %q", prev, f.Key, displayPath(path), ident)
		}
		seen[ident] = f.Key

		switch n := f.Node.(type) {
		case shape.Filter:
			if root {
				l.addWarning("filter %s has no enclosing relation", fieldPath)
			}
		case shape.ToOne:
			l.lintShape(n.Shape, fieldPath, false)
		case shape.ToMany:
			l.lintShape(n.Template, fieldPath, false)
		}
	}
}

func displayPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
