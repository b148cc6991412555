package livetable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// countingView renders [id, status] and counts ComputeCells calls.
type countingView struct {
	ViewFuncs
	computed int
}

func newCountingView() *countingView {
	v := &countingView{}
	v.ViewFuncs = ViewFuncs{
		Layout: []Column{{Label: "id"}, {Label: "status"}},
		Reads:  []string{"id", "status"},
		Initial: func(id int) []*Cell {
			return []*Cell{{HTML: fmt.Sprint(id), Class: "id"}, nil}
		},
		Compute: func(attrs Attributes) []*Cell {
			v.computed++
			status := attrs.Text("status")
			cls := "ko"
			if status == "on" {
				cls = "ok"
			}
			return []*Cell{
				{HTML: fmt.Sprint(attrs["id"]), Class: "id"},
				{HTML: SpanHTML(status, cls), Class: cls},
			}
		},
		Noteworthy: func(attrs Attributes) bool {
			return attrs.Text("status") == "on"
		},
	}
	return v
}

func newTestRegistry(t *testing.T, count int, view View, opts ...RegistryOption) *Registry {
	t.Helper()
	r, err := NewRegistry(count, view, opts...)
	require.NoError(t, err)
	r.Render()
	return r
}

func cellOps(p Patch, key string) []Op {
	var ops []Op
	for _, op := range p.Ops {
		if op.Kind == OpSetCell && op.Key == key {
			ops = append(ops, op)
		}
	}
	return ops
}
