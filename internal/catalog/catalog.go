package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/jonnymoo/shape/internal/shape"
)

// Entry is one named shape.
type Entry struct {
	Name        string
	Description string
	Rule        string // business rule run after a successful match, "" for none
	Document    shape.Document
	Pos         token.Pos
}

// Catalog is a set of entries keyed by name.
type Catalog struct {
	entries map[string]Entry
}

// New creates a catalog from entries. Later duplicates replace earlier ones.
func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		c.entries[e.Name] = e
	}
	return c
}

// Get returns the entry called name.
func (c *Catalog) Get(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Names returns entry names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load reads every CUE file in dir as one instance and compiles its
// shape entries. The returned catalog holds every entry that compiled.
func Load(dir string, mode LoadMode) (*Catalog, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Field: "dir", Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Field: "dir", Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Field: "dir", Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, []error{&LoadError{Field: "dir", Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Field: "dir", Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Field: "load", Message: "no CUE instances loaded"}}
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	value := cuecontext.New().BuildInstance(instances[0])
	return FromValue(value, mode)
}

// LoadString compiles CUE source held in memory. filename is used in
// error positions.
func LoadString(src, filename string, mode LoadMode) (*Catalog, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	return FromValue(value, mode)
}

// FromValue compiles the shape entries of an already built CUE value.
func FromValue(value cue.Value, mode LoadMode) (*Catalog, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	c := New()
	shapes := value.LookupPath(cue.ParsePath("shape"))
	if !shapes.Exists() {
		return c, []error{&LoadError{Field: "shape", Message: "no shape entries found", Pos: value.Pos()}}
	}

	iter, err := shapes.Fields()
	if err != nil {
		return c, []error{formatCUEError(err)}
	}

	var errs []error
	for iter.Next() {
		entry, err := compileEntry(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return c, errs
			}
			continue
		}
		c.entries[entry.Name] = entry
	}
	return c, errs
}
