package livetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(0, newCountingView())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewRegistry(3, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	r, err := NewRegistry(3, newCountingView())
	require.NoError(t, err)
	require.Len(t, r.Nodes(), 3)
	for i, node := range r.Nodes() {
		assert.Equal(t, i+1, node.ID)
		assert.False(t, node.Merged())
		assert.Len(t, node.Cells, 2)
	}
	_, ok := r.Lookup(0)
	assert.False(t, ok)
	_, ok = r.Lookup(4)
	assert.False(t, ok)
	node, ok := r.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, 2, node.ID)
}

func TestRegistryRenderPlaceholders(t *testing.T) {
	r, err := NewRegistry(3, newCountingView())
	require.NoError(t, err)

	patch := r.Render()
	assert.Equal(t, 3, patch.Count(OpInsertRow))
	assert.Equal(t, 6, patch.Count(OpSetCell))
	require.Len(t, r.Document().Rows, 3)
	for i, row := range r.Document().Rows {
		assert.Equal(t, RowKey(i+1), row.Key)
		assert.Equal(t, Placeholder, row.Cells[1].HTML)
		assert.Empty(t, row.Cells[1].Class)
		assert.True(t, row.Visible())
	}
	assert.Equal(t, "2", r.Document().Rows[1].Cells[0].HTML)
}

func TestRegistryDispatchScenario(t *testing.T) {
	view := newCountingView()
	r := newTestRegistry(t, 3, view)

	report := r.Dispatch(Batch{{"id": 1, "status": "on"}})
	assert.Equal(t, []int{1}, report.Changed)
	assert.Empty(t, report.Unknown)
	assert.Equal(t, 1, view.computed)
	assert.Equal(t, []Op{{
		Kind: OpSetCell, Key: "row1", Col: 1,
		HTML: "<span class='ok'>on</span>", Class: "ok",
	}}, cellOps(report.Patch, "row1"))
	// nodes 2 and 3 keep their placeholders
	assert.Empty(t, cellOps(report.Patch, "row2"))
	assert.Empty(t, cellOps(report.Patch, "row3"))
	assert.Equal(t, Placeholder, r.Document().Rows[2].Cells[1].HTML)

	// same batch again: nothing recomputed, nothing written
	report = r.Dispatch(Batch{{"id": 1, "status": "on"}})
	assert.Empty(t, report.Changed)
	assert.Equal(t, 1, view.computed)
	assert.True(t, report.Patch.Empty())

	// node 4 does not exist
	report = r.Dispatch(Batch{{"id": 1, "status": "on"}, {"id": 4, "status": "bad"}})
	assert.Empty(t, report.Changed)
	require.Len(t, report.Unknown, 1)
	assert.Equal(t, 4, report.Unknown[0]["id"])
	assert.Equal(t, 1, view.computed)
	assert.True(t, report.Patch.Empty())
}

func TestRegistryDispatchOnePassPerBatch(t *testing.T) {
	r := newTestRegistry(t, 3, newCountingView())
	before := r.Reconciler().Passes()

	r.Dispatch(Batch{{"id": 1, "status": "on"}, {"id": 2, "status": "on"}, {"id": 3, "status": "off"}})
	assert.Equal(t, before+1, r.Reconciler().Passes())

	r.Dispatch(Batch{})
	assert.Equal(t, before+2, r.Reconciler().Passes())
}

func TestRegistryDispatchLastSnapshotWins(t *testing.T) {
	r := newTestRegistry(t, 2, newCountingView())

	report := r.Dispatch(Batch{{"id": 2, "status": "on"}, {"id": 2, "status": "off"}})
	assert.Equal(t, []int{2, 2}, report.Changed)
	assert.Equal(t, "<span class='ko'>off</span>", r.Document().Rows[1].Cells[1].HTML)
}

func TestRegistryDispatchMalformed(t *testing.T) {
	view := newCountingView()
	r := newTestRegistry(t, 2, view)

	report := r.Dispatch(Batch{{"status": "on"}, {"id": "one"}, {"id": 1.5}, {"id": 2, "status": "on"}})
	assert.Len(t, report.Unknown, 3)
	assert.Equal(t, []int{2}, report.Changed)
	assert.Equal(t, 1, view.computed)
}

func TestRegistryDispatchFailingView(t *testing.T) {
	view := newCountingView()
	compute := view.Compute
	view.Compute = func(attrs Attributes) []*Cell {
		if attrs.Text("status") == "boom" {
			panic("bad attributes")
		}
		return compute(attrs)
	}
	r := newTestRegistry(t, 2, view)

	report := r.Dispatch(Batch{{"id": 1, "status": "boom"}, {"id": 2, "status": "on"}})
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, report.Failed[0].ID)
	assert.Equal(t, []int{1, 2}, report.Changed)

	row1, _ := r.Document().Row("row1")
	assert.Equal(t, Placeholder, row1.Cells[0].HTML)
	assert.Equal(t, Placeholder, row1.Cells[1].HTML)
	row2, _ := r.Document().Row("row2")
	assert.Equal(t, "ok", row2.Cells[1].Class)

	// recovers with the next good snapshot
	report = r.Dispatch(Batch{{"id": 1, "status": "on"}})
	assert.Empty(t, report.Failed)
	assert.Equal(t, "ok", row1.Cells[1].Class)
	assert.Equal(t, "1", row1.Cells[0].HTML)
}

func TestRegistryViewMode(t *testing.T) {
	view := newCountingView()
	r := newTestRegistry(t, 3, view)
	r.Dispatch(Batch{{"id": 1, "status": "on"}, {"id": 2, "status": "off"}})
	computed := view.computed

	patch := r.SetViewMode(ModeWorth)
	assert.Equal(t, ModeWorth, r.Mode())
	require.NotEmpty(t, patch.Ops)
	assert.Equal(t, Op{Kind: OpSetMode, Mode: ModeWorth}, patch.Ops[0])
	assert.Equal(t, 2, patch.Count(OpHideRow))
	assert.Equal(t, computed, view.computed)

	rows := r.Document().VisibleRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "row1", rows[0].Key)

	// no flip, no op
	patch = r.SetViewMode(ModeWorth)
	assert.True(t, patch.Empty())

	patch = r.ToggleViewMode()
	assert.Equal(t, ModeAll, r.Mode())
	assert.Equal(t, 2, patch.Count(OpShowRow))
	assert.Len(t, r.Document().VisibleRows(), 3)
}

func TestRegistryRejectsUnknownViewMode(t *testing.T) {
	r := newTestRegistry(t, 2, newCountingView())

	patch := r.SetViewMode(ViewMode("bogus"))
	assert.True(t, patch.Empty())
	assert.Equal(t, ModeAll, r.Mode())
	assert.Len(t, r.Document().VisibleRows(), 2)

	r.SetViewMode(ModeWorth)
	patch = r.SetViewMode("")
	assert.True(t, patch.Empty())
	assert.Equal(t, ModeWorth, r.Mode())
}

func TestRegistryWorthModeLeavesNewContentHidden(t *testing.T) {
	r := newTestRegistry(t, 2, newCountingView())
	r.SetViewMode(ModeWorth)

	// visibility is only recomputed on view mode passes
	r.Dispatch(Batch{{"id": 2, "status": "on"}})
	row, _ := r.Document().Row("row2")
	assert.False(t, row.Visible())

	r.SetViewMode(ModeWorth)
	assert.True(t, row.Visible())
}

func TestRegistryDismiss(t *testing.T) {
	r := newTestRegistry(t, 3, newCountingView())

	patch, err := r.Dismiss(2)
	require.NoError(t, err)
	assert.Equal(t, []Op{{Kind: OpHideRow, Key: "row2"}}, patch.Ops)
	assert.Len(t, r.Document().VisibleRows(), 2)

	// already hidden
	patch, err = r.DismissKey("row2")
	require.NoError(t, err)
	assert.True(t, patch.Empty())

	// content updates keep the row dismissed
	r.Dispatch(Batch{{"id": 2, "status": "on"}})
	row, _ := r.Document().Row("row2")
	assert.False(t, row.Visible())

	// a view mode pass resets dismissals
	patch = r.SetViewMode(ModeAll)
	assert.Equal(t, []Op{{Kind: OpShowRow, Key: "row2"}}, patch.Ops)

	_, err = r.Dismiss(9)
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = r.DismissKey("bogus")
	assert.True(t, errors.Is(err, ErrUnknownNode))
}

func TestRegistryStates(t *testing.T) {
	r := newTestRegistry(t, 2, newCountingView())
	r.Dispatch(Batch{{"id": 1, "status": "on", "extra": "x"}})

	states := r.States()
	require.Len(t, states, 2)
	assert.Equal(t, Attributes{"id": 1, "status": "on"}, states[0].Attributes)
	assert.True(t, states[0].Noteworthy)
	assert.True(t, states[0].Reported)
	assert.Empty(t, states[1].Attributes)
	assert.False(t, states[1].Noteworthy)
	assert.False(t, states[1].Reported)

	// copies are detached from the registry
	states[0].Attributes["status"] = "off"
	node, _ := r.Lookup(1)
	assert.Equal(t, "on", node.Attributes["status"])
}
