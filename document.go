package livetable

import "strconv"

// RowKey is the stable key of the row rendering node id.
func RowKey(id int) string {
	return "row" + strconv.Itoa(id)
}

// RenderedCell is what a table cell currently shows.
type RenderedCell struct {
	HTML        string `json:"html"`
	Class       string `json:"class"`
	Tooltip     string `json:"tooltip,omitempty"`
	Dismissable bool   `json:"dismissable,omitempty"`

	written bool
}

// Row is one rendered table row.
type Row struct {
	Key       string         `json:"key"`
	ID        int            `json:"id"`
	Cells     []RenderedCell `json:"cells"`
	Hidden    bool           `json:"hidden,omitempty"`
	Dismissed bool           `json:"dismissed,omitempty"`

	revision uint64
	rendered bool
}

// Visible reports whether the row is displayed.
func (r *Row) Visible() bool {
	return !r.Hidden && !r.Dismissed
}

// Document is the rendered table body. Only a Reconciler mutates it.
type Document struct {
	Rows  []*Row `json:"rows"`
	index map[string]*Row
}

// NewDocument returns an empty table body.
func NewDocument() *Document {
	return &Document{index: make(map[string]*Row)}
}

// Row looks a row up by key.
func (d *Document) Row(key string) (*Row, bool) {
	row, ok := d.index[key]
	return row, ok
}

// VisibleRows returns the displayed rows in order.
func (d *Document) VisibleRows() []*Row {
	var rows []*Row
	for _, row := range d.Rows {
		if row.Visible() {
			rows = append(rows, row)
		}
	}
	return rows
}

// Clone returns a deep copy that can be handed to another goroutine.
func (d *Document) Clone() *Document {
	out := &Document{
		Rows:  make([]*Row, len(d.Rows)),
		index: make(map[string]*Row, len(d.Rows)),
	}
	for i, row := range d.Rows {
		cp := *row
		cp.Cells = make([]RenderedCell, len(row.Cells))
		copy(cp.Cells, row.Cells)
		out.Rows[i] = &cp
		out.index[cp.Key] = &cp
	}
	return out
}

// Ops replays the document as a patch building it from an empty body.
func (d *Document) Ops() []Op {
	var ops []Op
	for i, row := range d.Rows {
		ops = append(ops, Op{Kind: OpInsertRow, Key: row.Key, Index: i})
		for col, cell := range row.Cells {
			ops = append(ops, Op{
				Kind:    OpSetCell,
				Key:     row.Key,
				Col:     col,
				HTML:    cell.HTML,
				Class:   cell.Class,
				Tooltip: cell.Tooltip,
			})
		}
		if !row.Visible() {
			ops = append(ops, Op{Kind: OpHideRow, Key: row.Key})
		}
	}
	return ops
}

func (d *Document) insert(row *Row, at int) {
	d.Rows = append(d.Rows, nil)
	copy(d.Rows[at+1:], d.Rows[at:])
	d.Rows[at] = row
	d.index[row.Key] = row
}

func (d *Document) remove(key string) {
	for i, row := range d.Rows {
		if row.Key == key {
			d.Rows = append(d.Rows[:i], d.Rows[i+1:]...)
			break
		}
	}
	delete(d.index, key)
}
