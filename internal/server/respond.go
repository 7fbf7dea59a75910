package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
)

func writeValue(w http.ResponseWriter, status int, v ir.Value) {
	data, err := ir.MarshalValue(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]string{"message": msg})
}

func readBytes(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// readBody decodes a JSON request body into a value tree.
func readBody(w http.ResponseWriter, r *http.Request) (ir.Value, error) {
	data, err := readBytes(w, r)
	if err != nil {
		return nil, err
	}
	v, err := ir.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return v, nil
}

func reportValue(r match.Report) ir.Object {
	missing := make(ir.Array, len(r.Missing))
	for i, m := range r.Missing {
		entry := ir.Object{
			"key":    ir.String(m.Key),
			"reason": ir.String(m.Reason),
		}
		if m.Path != "" {
			entry["path"] = ir.String(m.Path)
		}
		if m.ExampleSQL != "" {
			entry["example-sql"] = ir.String(m.ExampleSQL)
		}
		missing[i] = entry
	}
	return ir.Object{"ok": ir.Bool(r.OK), "missing": missing}
}
