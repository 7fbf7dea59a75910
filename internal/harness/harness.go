package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/reshape"
	"github.com/jonnymoo/shape/internal/store"
)

// Harness is the scenario execution engine.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Match Input against the shape
//  2. Compile the shape for the scenario dialect
//  3. Reshape Result
//  4. Seed a fresh in-memory database with Fixtures and fetch the shape
//
// Failed checks are recorded in the result. The error return is reserved
// for infrastructure failures (the in-memory database, bad fixture data).
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()
	doc := scenario.Document()
	h.logger.Debug("running scenario", "name", scenario.Name)

	if scenario.Input != nil {
		input, err := ir.FromGo(scenario.Input)
		if err != nil {
			return nil, fmt.Errorf("scenario input: %w", err)
		}
		report := match.Match(doc.Shape, input)
		result.Report = &report
		checkMatch(scenario.Expect, report, result)
	}

	dialect, err := querysql.DialectByName(scenario.Dialect)
	if err != nil {
		return nil, err
	}
	q, compileErr := querysql.New(querysql.WithDialect(dialect)).Compile(doc)
	if compileErr != nil {
		result.CompileError = compileErr.Error()
	} else {
		result.SQL = q.SQL
		result.Binds = q.Binds
	}
	checkCompile(scenario.Expect, result)

	if scenario.Result != nil {
		raw, err := ir.FromGo(scenario.Result)
		if err != nil {
			return nil, fmt.Errorf("scenario result: %w", err)
		}
		result.Reshaped = reshape.Value(raw, !doc.List)
		if scenario.Expect.Reshaped != nil {
			checkValue("reshaped", scenario.Expect.Reshaped, result.Reshaped, result)
		}
	}

	if len(scenario.Fixtures) > 0 && compileErr == nil {
		fetched, err := h.fetch(ctx, scenario)
		if err != nil {
			return nil, err
		}
		result.Fetched = fetched
		if scenario.Expect.Fetched != nil {
			checkValue("fetched", scenario.Expect.Fetched, result.Fetched, result)
		}
	}

	h.logger.Debug("scenario finished", "name", scenario.Name, "pass", result.Pass)
	return result, nil
}

// fetch seeds a fresh in-memory database and fetches the scenario shape
// with the sqlite dialect.
func (h *Harness) fetch(ctx context.Context, scenario *Scenario) (ir.Value, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.Load(ctx, scenario.Fixtures); err != nil {
		return nil, err
	}

	q, err := querysql.New(querysql.WithDialect(querysql.SQLite{})).Compile(scenario.Document())
	if err != nil {
		return nil, err
	}
	return store.NewFetcher(st.DB(), h.logger).Fetch(ctx, q, scenario.AnchorID)
}
