package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/reshape"
)

// ErrNoResult is returned when a query produced no row at all.
var ErrNoResult = errors.New("query returned no rows")

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx a Fetcher needs.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Fetcher executes compiled shape queries.
type Fetcher struct {
	db     Querier
	logger *slog.Logger
}

// NewFetcher creates a Fetcher over db. A nil logger uses slog.Default().
func NewFetcher(db Querier, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{db: db, logger: logger}
}

// Fetch runs q with anchorID bound to its anchor and returns the reshaped
// document: an object for plain documents, an array for list documents.
//
// A NULL result (no row matched anywhere) yields an empty object or array.
func (f *Fetcher) Fetch(ctx context.Context, q querysql.Query, anchorID any) (ir.Value, error) {
	raw, err := f.FetchRaw(ctx, q, anchorID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		if q.List {
			return ir.Array{}, nil
		}
		return ir.Object{}, nil
	}

	v, err := ir.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", q.Dialect, err)
	}
	return reshape.Value(v, !q.List), nil
}

// FetchRaw runs q and returns the JSON text exactly as the database
// produced it, or nil when the result is NULL.
func (f *Fetcher) FetchRaw(ctx context.Context, q querysql.Query, anchorID any) ([]byte, error) {
	d, err := querysql.DialectByName(q.Dialect)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	stmt := d.Wrap(q.SQL)
	f.logger.DebugContext(ctx, "executing shape query",
		"dialect", d.Name(),
		"binds", len(q.Binds),
		"anchor", q.Anchor,
	)

	var out sql.NullString
	if err := f.db.QueryRowContext(ctx, stmt, q.Args(anchorID)...).Scan(&out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoResult
		}
		return nil, fmt.Errorf("execute shape query: %w", err)
	}
	if !out.Valid {
		return nil, nil
	}
	return []byte(out.String), nil
}
