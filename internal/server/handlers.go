package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonnymoo/shape/internal/cache"
	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/shape"
	"github.com/jonnymoo/shape/internal/store"
	"github.com/jonnymoo/shape/internal/validation"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeValue(w, http.StatusServiceUnavailable, ir.Object{
				"status":  ir.String("unavailable"),
				"message": ir.String(err.Error()),
			})
			return
		}
	}
	writeValue(w, http.StatusOK, ir.Object{"status": ir.String("ok")})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.rules[s.defaultRule]
	if !ok {
		writeError(w, http.StatusNotFound, "no default rule configured")
		return
	}
	s.validate(w, r, s.defaultRule, rule)
}

// handleValidateNamed resolves name against the catalog first, then
// against the registered rules. A catalog entry supplies the shape and
// names the rule that runs.
func (s *Server) handleValidateNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if s.catalog != nil {
		if entry, ok := s.catalog.Get(name); ok {
			rule, ok := s.rules[entry.Rule]
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Sprintf("shape %q has no registered rule %q", name, entry.Rule))
				return
			}
			s.validate(w, r, name, Rule{Shape: entry.Document.Shape, Func: rule.Func})
			return
		}
	}

	rule, ok := s.rules[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown rule %q", name))
		return
	}
	s.validate(w, r, name, rule)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request, name string, rule Rule) {
	ctx := r.Context()

	input, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validation.New(rule.Shape, rule.Func,
		validation.WithPolicy(validation.PolicyReport),
		validation.WithLogger(s.logger),
	)
	out, err := v.Run(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "validation failed",
			"request_id", RequestID(ctx),
			"rule", name,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !out.Expanded {
		item := out.Items[0]
		if !item.Result.OK {
			writeValue(w, http.StatusUnprocessableEntity, ir.Object{
				"ok":     ir.Bool(false),
				"report": reportValue(*item.Result.Report),
			})
			return
		}
		writeValue(w, http.StatusOK, item.Result.Output)
		return
	}

	results := make(ir.Array, len(out.Items))
	for i, item := range out.Items {
		entry := ir.Object{"index": ir.Int(int64(item.Index))}
		switch {
		case item.Err != nil:
			entry["ok"] = ir.Bool(false)
			entry["message"] = ir.String(item.Err.Error())
		case !item.Result.OK:
			entry["ok"] = ir.Bool(false)
			entry["report"] = reportValue(*item.Result.Report)
		default:
			entry["ok"] = ir.Bool(true)
			entry["output"] = item.Result.Output
		}
		results[i] = entry
	}
	writeValue(w, http.StatusOK, ir.Object{
		"key":     ir.String(out.Key),
		"results": results,
	})
}

// compileBody parses the request body as a shape document and compiles it.
func (s *Server) compileBody(w http.ResponseWriter, r *http.Request) (shape.Document, querysql.Query, bool) {
	data, err := readBytes(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return shape.Document{}, querysql.Query{}, false
	}
	doc, err := shape.ParseJSON(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return shape.Document{}, querysql.Query{}, false
	}
	q, err := s.compiler.Compile(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return shape.Document{}, querysql.Query{}, false
	}
	return doc, q, true
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	doc, q, ok := s.compileBody(w, r)
	if !ok {
		return
	}

	binds, err := ir.FromGo(q.Binds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	warnings := ir.Array{}
	for _, msg := range querysql.Lint(doc).Warnings {
		warnings = append(warnings, ir.String(msg))
	}

	resp := ir.Object{
		"sql":      ir.String(q.SQL),
		"binds":    binds,
		"dialect":  ir.String(q.Dialect),
		"list":     ir.Bool(q.List),
		"warnings": warnings,
	}
	if q.Anchor != "" {
		resp["anchor"] = ir.String(q.Anchor)
	}
	writeValue(w, http.StatusOK, resp)
}

func (s *Server) handleShapeQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	_, q, ok := s.compileBody(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if q.Anchor != "" && id == "" {
		writeError(w, http.StatusBadRequest, "query parameter id is required")
		return
	}

	load := func(ctx context.Context) (ir.Value, error) {
		return s.fetcher.Fetch(ctx, q, id)
	}

	var (
		result ir.Value
		err    error
	)
	if s.cache != nil {
		result, err = s.cached(w, r, q, id, load)
	} else {
		result, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, store.ErrNoResult) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.ErrorContext(ctx, "shape query failed",
			"request_id", RequestID(ctx),
			"id", id,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeValue(w, http.StatusOK, result)
}

// cached runs load through the result cache and reports hit or miss in
// the X-Cache header. A failed cache write is logged, not returned.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, q querysql.Query, id string, load cache.LoadFunc) (ir.Value, error) {
	ctx := r.Context()

	key, err := cache.Key(q, id)
	if err != nil {
		return nil, err
	}

	v, hit, err := cache.Through(ctx, s.cache, key, s.cacheTTL, load)
	if err != nil {
		if v == nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "cache write failed", "request_id", RequestID(ctx), "error", err)
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	return v, nil
}
