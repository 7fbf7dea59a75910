package validation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
	"github.com/jonnymoo/shape/internal/salary"
	"github.com/jonnymoo/shape/internal/shape"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func decode(t *testing.T, s string) ir.Value {
	t.Helper()
	v, err := ir.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

// echo returns its input's "id" field so calls can be correlated.
func echo(_ context.Context, in ir.Object) (ir.Value, error) {
	return ir.Object{"echo": in["id"]}, nil
}

func TestCall_Success(t *testing.T) {
	v := New(salary.Shape, salary.CheckSalaryRecords, WithLogger(quietLogger))

	res, err := v.Call(context.Background(), decode(t, `{
	  "folder": {
	    "datejoinedcomp": "2022-12-01",
	    "salary": [{"datestarted": "2022-12-01"}, {"datestarted": "2023-04-01"}]
	  },
	  "inputs": {"current_date": "2024-03-31"}
	}`))
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Nil(t, res.Report)
	out, err := ir.MarshalValue(res.Output)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputs":{"all_present":"true","missing_years":[]}}`, string(out))
}

func TestCall_PolicyError(t *testing.T) {
	called := false
	fn := func(context.Context, ir.Object) (ir.Value, error) {
		called = true
		return ir.Null{}, nil
	}
	v := New(salary.Shape, fn, WithLogger(quietLogger))

	_, err := v.Call(context.Background(), decode(t, `{"inputs": {"current_date": "2024-03-31"}}`))
	require.Error(t, err)

	assert.False(t, called, "business function must not run on mismatch")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, IsInvalidInput(err))

	var ie *InvalidInputError
	require.ErrorAs(t, err, &ie)
	require.Len(t, ie.Report.Missing, 1)
	assert.Equal(t, "folder", ie.Report.Missing[0].Key)
	assert.NotEmpty(t, ie.Report.Missing[0].ExampleSQL)
	assert.Equal(t, "invalid input: folder: missing", err.Error())
}

func TestCall_PolicyReport(t *testing.T) {
	v := New(salary.Shape, salary.CheckSalaryRecords, WithPolicy(PolicyReport), WithLogger(quietLogger))

	res, err := v.Call(context.Background(), decode(t, `{"folder": {}, "inputs": {}}`))
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Nil(t, res.Output)
	require.NotNil(t, res.Report)
	assert.Len(t, res.Report.Missing, 3)
}

func TestCall_NonObjectInput(t *testing.T) {
	v := New(shape.New(), echo, WithPolicy(PolicyReport), WithLogger(quietLogger))

	res, err := v.Call(context.Background(), ir.Array{})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, []match.Missing{{Reason: match.ReasonExpectObject}}, res.Report.Missing)
}

func TestCall_BusinessError(t *testing.T) {
	boom := errors.New("boom")
	v := New(shape.New(), func(context.Context, ir.Object) (ir.Value, error) {
		return nil, boom
	}, WithLogger(quietLogger))

	_, err := v.Call(context.Background(), ir.Object{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsInvalidInput(err))
}

func TestInvalidInputError_Message(t *testing.T) {
	err := &InvalidInputError{Report: match.Report{Missing: []match.Missing{
		{Key: "a", Reason: "missing", Path: "x.a"},
		{Key: "b", Reason: "missing"},
	}}}
	assert.Equal(t, "invalid input: x.a: missing (and 1 more)", err.Error())
	assert.Equal(t, "invalid input", (&InvalidInputError{}).Error())
}

func TestExpand(t *testing.T) {
	v := New(shape.MustParseJSON(`{"id": null, "tags": [{"name": null}]}`).Shape, echo)

	tests := []struct {
		name  string
		input string
		key   string
		ok    bool
	}{
		{"one undeclared list", `{"id": [1, 2], "other": 1}`, "id", true},
		{"declared to-many", `{"tags": [{"name": 1}]}`, "", false},
		{"two lists", `{"id": [1], "more": [2]}`, "", false},
		{"no list", `{"id": 1}`, "", false},
		{"undeclared key", `{"batch": [1]}`, "batch", true},
		{"not an object", `[1, 2]`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := v.Expand(decode(t, tt.input))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestRun_ExpandsAndCorrelatesByIndex(t *testing.T) {
	s := shape.MustParseJSON(`{"id": null, "inputs": {"current_date": null}}`).Shape
	v := New(s, echo, WithPolicy(PolicyReport), WithConcurrency(2), WithLogger(quietLogger))

	input := decode(t, `{"id": [10, 11, 12, 13, 14], "inputs": {"current_date": "2024-01-01"}}`)

	out, err := v.Run(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, out.Expanded)
	assert.Equal(t, "id", out.Key)
	require.Len(t, out.Items, 5)
	for i, item := range out.Items {
		assert.Equal(t, i, item.Index)
		require.NoError(t, item.Err)
		assert.True(t, item.Result.OK)
		assert.Equal(t, ir.Object{"echo": ir.Int(int64(10 + i))}, item.Result.Output)
	}

	// The caller's input is left untouched.
	assert.IsType(t, ir.Array{}, input.(ir.Object)["id"])
}

func TestRun_PerItemFailures(t *testing.T) {
	s := shape.MustParseJSON(`{"row": {"name": null}}`).Shape
	v := New(s, echo, WithLogger(quietLogger))

	out, err := v.Run(context.Background(), decode(t, `{"row": [{"name": "a"}, {"nope": 1}, 3]}`))
	require.NoError(t, err)

	require.Len(t, out.Items, 3)
	assert.NoError(t, out.Items[0].Err)
	assert.ErrorIs(t, out.Items[1].Err, ErrInvalidInput)
	assert.ErrorIs(t, out.Items[2].Err, ErrInvalidInput)
}

func TestRun_EmptyList(t *testing.T) {
	v := New(shape.New(), echo, WithLogger(quietLogger))

	out, err := v.Run(context.Background(), decode(t, `{"batch": []}`))
	require.NoError(t, err)
	assert.True(t, out.Expanded)
	assert.Empty(t, out.Items)
}

func TestRun_NotExpanded(t *testing.T) {
	v := New(shape.MustParseJSON(`{"id": null}`).Shape, echo, WithLogger(quietLogger))

	out, err := v.Run(context.Background(), decode(t, `{"id": 7}`))
	require.NoError(t, err)
	assert.False(t, out.Expanded)
	require.Len(t, out.Items, 1)
	assert.Equal(t, ir.Object{"echo": ir.Int(7)}, out.Items[0].Result.Output)

	_, err = v.Run(context.Background(), decode(t, `{}`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	fn := func(context.Context, ir.Object) (ir.Value, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return ir.Null{}, nil
	}
	v := New(shape.New(), fn, WithConcurrency(3), WithLogger(quietLogger))

	out, err := v.Run(context.Background(), decode(t, `{"batch": [1,2,3,4,5,6,7,8,9,10]}`))
	require.NoError(t, err)
	assert.Len(t, out.Items, 10)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_CancelledContext(t *testing.T) {
	v := New(shape.New(), echo, WithLogger(quietLogger))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Run(ctx, decode(t, `{"batch": [1, 2]}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("report")
	require.NoError(t, err)
	assert.Equal(t, PolicyReport, p)
	assert.Equal(t, "report", p.String())

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyError, p)

	_, err = ParsePolicy("panic")
	assert.Error(t, err)
}
