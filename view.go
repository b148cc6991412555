package livetable

import "fmt"

// Column describes one column of the table layout.
// Label is an HTML fragment shown in the header.
type Column struct {
	Label   string
	Tooltip string
}

// View is the set of display rules for one kind of table.
// The registry and reconciler only ever talk to a View; they know nothing
// about what the columns mean.
//
// ComputeCells must return exactly len(Columns()) entries, in column order,
// whatever attributes are present. A nil entry renders as Placeholder.
// ComputeCells and IsNoteworthy must be pure functions of attrs.
type View interface {
	Columns() []Column
	// Keys lists the attributes the view reads.
	Keys() []string
	// InitialCells returns the cells of a node that never received a snapshot.
	// A nil result means all placeholders.
	InitialCells(id int) []*Cell
	ComputeCells(attrs Attributes) []*Cell
	IsNoteworthy(attrs Attributes) bool
}

// ViewFuncs builds a View out of plain functions.
type ViewFuncs struct {
	Layout     []Column
	Reads      []string
	Initial    func(id int) []*Cell
	Compute    func(attrs Attributes) []*Cell
	Noteworthy func(attrs Attributes) bool
}

// Columns implements View.
func (v *ViewFuncs) Columns() []Column { return v.Layout }

// Keys implements View.
func (v *ViewFuncs) Keys() []string { return v.Reads }

// InitialCells implements View.
func (v *ViewFuncs) InitialCells(id int) []*Cell {
	if v.Initial == nil {
		return nil
	}
	return v.Initial(id)
}

// ComputeCells implements View.
func (v *ViewFuncs) ComputeCells(attrs Attributes) []*Cell {
	if v.Compute == nil {
		return make([]*Cell, len(v.Layout))
	}
	return v.Compute(attrs)
}

// IsNoteworthy implements View.
func (v *ViewFuncs) IsNoteworthy(attrs Attributes) bool {
	if v.Noteworthy == nil {
		return true
	}
	return v.Noteworthy(attrs)
}

// SpanHTML wraps text in a span, with a class attribute when cls is set.
func SpanHTML(text any, cls string) string {
	if cls == "" {
		return fmt.Sprintf("<span>%v</span>", text)
	}
	return fmt.Sprintf("<span class='%s'>%v</span>", cls, text)
}

func placeholderRow(width int) []*Cell {
	return make([]*Cell, width)
}

// initialCells returns the view's initial cells for id, falling back to
// placeholders when the view gives none or the wrong number.
func initialCells(view View, id int) []*Cell {
	width := len(view.Columns())
	cells := view.InitialCells(id)
	if len(cells) != width {
		return placeholderRow(width)
	}
	out := make([]*Cell, width)
	copy(out, cells)
	return out
}
