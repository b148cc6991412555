package livetable

import (
	"time"

	"github.com/golang/glog"
)

// Binder re-attaches interactive behaviour to the table after a pass.
// Bindings are not assumed to survive content overwrites, so Bind runs
// after every pass, including passes that mutate nothing.
type Binder interface {
	Bind(doc *Document, patch *Patch)
}

// BinderFunc adapts a function to Binder.
type BinderFunc func(doc *Document, patch *Patch)

// Bind implements Binder.
func (f BinderFunc) Bind(doc *Document, patch *Patch) { f(doc, patch) }

// DefaultBinder makes the first cell of every row dismiss the row on click
// and asks clients to re-activate tooltips.
var DefaultBinder Binder = BinderFunc(func(doc *Document, patch *Patch) {
	for _, row := range doc.Rows {
		if len(row.Cells) > 0 {
			row.Cells[0].Dismissable = true
		}
	}
	patch.Rebind = true
})

// Reconciler keeps a Document aligned with a node sequence using keyed
// enter / update / exit passes.
type Reconciler struct {
	binder Binder
	passes int
}

// NewReconciler creates a reconciler; a nil binder means DefaultBinder.
func NewReconciler(binder Binder) *Reconciler {
	if binder == nil {
		binder = DefaultBinder
	}
	return &Reconciler{binder: binder}
}

// Passes returns how many content passes have run.
func (r *Reconciler) Passes() int {
	return r.passes
}

// Reconcile aligns doc with nodes, which must be sorted by ascending id.
// Rows are keyed by RowKey: missing rows are created, rows of nodes that
// are gone are removed, and existing rows are reused with only the cells
// whose content, class or tooltip differ being rewritten. Rows whose node
// revision was already rendered are skipped without comparing cells.
//
// Visibility is left alone; a new row starts visible.
func (r *Reconciler) Reconcile(doc *Document, nodes []*Node) Patch {
	start := time.Now()
	defer func() {
		reconcileDuration.Observe(time.Since(start).Seconds())
	}()
	r.passes++

	var patch Patch

	desired := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		desired[RowKey(node.ID)] = struct{}{}
	}

	// exit
	for i := 0; i < len(doc.Rows); {
		row := doc.Rows[i]
		if _, ok := desired[row.Key]; ok {
			i++
			continue
		}
		doc.remove(row.Key)
		patch.add(Op{Kind: OpRemoveRow, Key: row.Key})
	}

	for i, node := range nodes {
		key := RowKey(node.ID)
		row, ok := doc.Row(key)
		if !ok {
			// enter
			row = &Row{Key: key, ID: node.ID}
			doc.insert(row, i)
			patch.add(Op{Kind: OpInsertRow, Key: key, Index: i})
		} else if row.rendered && row.revision == node.Revision && len(row.Cells) == len(node.Cells) {
			continue
		}

		// update
		updateCells(row, node.Cells, &patch)
		row.revision = node.Revision
		row.rendered = true
	}

	r.binder.Bind(doc, &patch)
	if !patch.Empty() {
		glog.V(2).Infof("reconcile pass %d: %d ops", r.passes, len(patch.Ops))
	}
	return patch
}

func updateCells(row *Row, cells []*Cell, patch *Patch) {
	if len(row.Cells) > len(cells) {
		row.Cells = row.Cells[:len(cells)]
	}
	for len(row.Cells) < len(cells) {
		row.Cells = append(row.Cells, RenderedCell{})
	}
	for col, cell := range cells {
		html, class, tooltip := cell.Render()
		rc := &row.Cells[col]
		if rc.written && rc.HTML == html && rc.Class == class && rc.Tooltip == tooltip {
			continue
		}
		rc.HTML, rc.Class, rc.Tooltip = html, class, tooltip
		rc.written = true
		patch.add(Op{
			Kind:    OpSetCell,
			Key:     row.Key,
			Col:     col,
			HTML:    html,
			Class:   class,
			Tooltip: tooltip,
		})
	}
}

// Visibility shows or hides every row according to visible, independently
// of content. Any earlier dismissal is cleared. Only rows whose visibility
// actually flips produce an op.
func (r *Reconciler) Visibility(doc *Document, nodes []*Node, visible func(*Node) bool) Patch {
	var patch Patch
	shown := 0
	for _, node := range nodes {
		row, ok := doc.Row(RowKey(node.ID))
		if !ok {
			continue
		}
		was := row.Visible()
		row.Hidden = !visible(node)
		row.Dismissed = false
		now := row.Visible()
		if now {
			shown++
		}
		switch {
		case now && !was:
			patch.add(Op{Kind: OpShowRow, Key: row.Key})
		case !now && was:
			patch.add(Op{Kind: OpHideRow, Key: row.Key})
		}
	}
	visibleRows.Set(float64(shown))
	return patch
}

// Dismiss hides one row until the next visibility pass.
func (r *Reconciler) Dismiss(doc *Document, key string) (Patch, error) {
	var patch Patch
	row, ok := doc.Row(key)
	if !ok {
		return patch, ErrUnknownNode
	}
	if row.Visible() {
		patch.add(Op{Kind: OpHideRow, Key: key})
	}
	row.Dismissed = true
	return patch, nil
}
