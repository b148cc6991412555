package livetable

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/glog"
)

// Merge folds snapshot into node.Attributes and reports whether any value changed.
// Values are compared strictly: a type mismatch is a change, and so is
// undefined against a defined value. Keys absent from the snapshot are left
// untouched. Non-scalar values are dropped.
func Merge(node *Node, snapshot Snapshot) bool {
	node.merged = true
	changed := false
	for key, value := range snapshot {
		if !isScalar(value) {
			glog.V(2).Infof("node %d: dropping non-scalar attribute %s", node.ID, key)
			continue
		}
		old, ok := node.Attributes[key]
		if !ok && value == nil {
			continue
		}
		if ok && sameValue(old, value) {
			continue
		}
		node.Attributes[key] = value
		changed = true
		glog.V(3).Infof("node %d: %s = %v", node.ID, key, value)
	}
	return changed
}

// Update merges snapshot into node and, only if something changed,
// recomputes its cells through view.
//
// A view that panics or returns the wrong number of cells leaves the node
// with a placeholder row and a *CellError; the attributes stay merged.
func (n *Node) Update(view View, snapshot Snapshot) (bool, error) {
	if !Merge(n, snapshot) {
		return false, nil
	}
	nodeChanges.Inc()

	cells, err := computeCells(view, n)
	n.Revision++
	if err != nil {
		n.Cells = placeholderRow(len(view.Columns()))
		return true, err
	}
	n.Cells = cells
	glog.V(2).Infof("node %d: recomputed %d cells (revision %d)", n.ID, len(cells), n.Revision)
	return true, nil
}

func computeCells(view View, node *Node) (cells []*Cell, err error) {
	defer func() {
		if r := recover(); r != nil {
			cells = nil
			err = &CellError{ID: node.ID, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	cells = view.ComputeCells(node.Attributes)
	if want := len(view.Columns()); len(cells) != want {
		return nil, &CellError{
			ID:    node.ID,
			Cause: fmt.Errorf("got %d cells, want %d", len(cells), want),
		}
	}
	return cells, nil
}

// sameValue is strict equality, except that NaN equals NaN.
func sameValue(a, b any) bool {
	if a == b {
		return true
	}
	fa, ok := a.(float64)
	if !ok {
		return false
	}
	fb, ok := b.(float64)
	return ok && math.IsNaN(fa) && math.IsNaN(fb)
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number, int, int64, float64:
		return true
	}
	return false
}
