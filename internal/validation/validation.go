// Package validation composes the matcher with a business function.
//
// A Validator checks its input against a shape before calling the wrapped
// function, so the function only ever sees inputs it can rely on:
//
//	v := validation.New(salary.Shape, salary.CheckSalaryRecords)
//	res, err := v.Call(ctx, input)
//
// Mismatches are handled according to Policy. Run additionally fans a
// list-shaped request out into one call per element.
package validation

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
	"github.com/jonnymoo/shape/internal/shape"
)

// Func is a business function. It receives an input that satisfies the
// validator's shape.
type Func func(ctx context.Context, input ir.Object) (ir.Value, error)

// Policy selects how a shape mismatch is surfaced.
type Policy int

const (
	// PolicyError returns an *InvalidInputError carrying the report.
	PolicyError Policy = iota

	// PolicyReport returns a Result with OK false and the report, and a
	// nil error.
	PolicyReport
)

// String returns the policy name used in config.
func (p Policy) String() string {
	switch p {
	case PolicyError:
		return "error"
	case PolicyReport:
		return "report"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "error":
		return PolicyError, nil
	case "report":
		return PolicyReport, nil
	default:
		return 0, fmt.Errorf("unknown validation policy %q (want error or report)", s)
	}
}

// Result is the outcome of one validated call.
type Result struct {
	OK     bool          `json:"ok"`
	Output ir.Value      `json:"output,omitempty"`
	Report *match.Report `json:"report,omitempty"`
}

// Item is one call of a fanned-out Run, correlated by Index with the
// element of the expanded list that produced it.
type Item struct {
	Index  int
	Result Result
	Err    error
}

// Outcome is the result of Run.
type Outcome struct {
	// Expanded is true when the input was fanned out.
	Expanded bool

	// Key names the expanded field. Empty when not expanded.
	Key string

	// Items holds one entry per call in index order.
	Items []Item
}

// Validator wraps a business function with a shape check.
//
// A Validator is immutable and safe for concurrent use.
type Validator struct {
	shape       shape.Shape
	fn          Func
	policy      Policy
	matchOpts   []match.Option
	concurrency int
	logger      *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithPolicy sets the mismatch policy. The default is PolicyError.
func WithPolicy(p Policy) Option {
	return func(v *Validator) {
		v.policy = p
	}
}

// WithMatchOptions passes options through to match.Match.
func WithMatchOptions(opts ...match.Option) Option {
	return func(v *Validator) {
		v.matchOpts = append(v.matchOpts, opts...)
	}
}

// WithConcurrency bounds the number of concurrent calls in Run.
// Values below 1 mean unbounded.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		v.concurrency = n
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// New creates a Validator for fn requiring s.
func New(s shape.Shape, fn Func, opts ...Option) *Validator {
	v := &Validator{
		shape:       s,
		fn:          fn,
		policy:      PolicyError,
		concurrency: 8,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Shape returns the required shape.
func (v *Validator) Shape() shape.Shape {
	return v.shape
}

// Call validates input and, if it matches, calls the business function.
// No list expansion is performed.
func (v *Validator) Call(ctx context.Context, input ir.Value) (Result, error) {
	obj, isObj := input.(ir.Object)
	report := match.Match(v.shape, input, v.matchOpts...)
	if !isObj {
		report = match.Report{Missing: []match.Missing{{Reason: match.ReasonExpectObject}}}
	}
	if !report.OK {
		v.logger.Debug("input does not match shape", "missing", len(report.Missing))
		if v.policy == PolicyReport {
			return Result{OK: false, Report: &report}, nil
		}
		return Result{}, &InvalidInputError{Report: report}
	}

	out, err := v.fn(ctx, obj)
	if err != nil {
		return Result{}, fmt.Errorf("business function: %w", err)
	}
	return Result{OK: true, Output: out}, nil
}

// Expand reports the field a request would be fanned out over, if any.
//
// A request is expanded when it is an object with exactly one top-level
// array field and the shape does not declare that field as a to-many
// relation.
func (v *Validator) Expand(input ir.Value) (string, bool) {
	obj, ok := input.(ir.Object)
	if !ok {
		return "", false
	}

	var key string
	count := 0
	for k, val := range obj {
		if _, isList := val.(ir.Array); isList {
			key = k
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	if node, declared := v.shape.Get(key); declared {
		if _, many := node.(shape.ToMany); many {
			return "", false
		}
	}
	return key, true
}

// Run calls Call once, or once per element when the input is expanded.
//
// Expanded calls run concurrently. Per-call failures are recorded on the
// Item; Run itself returns an error only when ctx is cancelled. A single
// unexpanded call returns its error directly.
func (v *Validator) Run(ctx context.Context, input ir.Value) (Outcome, error) {
	key, expand := v.Expand(input)
	if !expand {
		res, err := v.Call(ctx, input)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Items: []Item{{Index: 0, Result: res}}}, nil
	}

	obj := input.(ir.Object)
	list := obj[key].(ir.Array)
	items := make([]Item, len(list))

	v.logger.Debug("expanding request", "key", key, "count", len(list))

	g, gctx := errgroup.WithContext(ctx)
	if v.concurrency > 0 {
		g.SetLimit(v.concurrency)
	}
	for i, elem := range list {
		i, elem := i, elem
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := v.Call(gctx, bind(obj, key, elem))
			items[i] = Item{Index: i, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, fmt.Errorf("expand %s: %w", key, err)
	}

	return Outcome{Expanded: true, Key: key, Items: items}, nil
}

// bind returns a shallow copy of obj with key set to elem.
func bind(obj ir.Object, key string, elem ir.Value) ir.Object {
	out := make(ir.Object, len(obj))
	for k, val := range obj {
		out[k] = val
	}
	out[key] = elem
	return out
}
