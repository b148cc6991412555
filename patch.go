package livetable

// OpKind names one structural mutation of the rendered table.
type OpKind string

const (
	OpInsertRow OpKind = "insert"
	OpRemoveRow OpKind = "remove"
	OpSetCell   OpKind = "cell"
	OpShowRow   OpKind = "show"
	OpHideRow   OpKind = "hide"
	OpSetMode   OpKind = "mode"
)

// Op is one mutation, in the form browsers apply it.
type Op struct {
	Kind    OpKind   `json:"op"`
	Key     string   `json:"key,omitempty"`
	Index   int      `json:"index,omitempty"`
	Col     int      `json:"col,omitempty"`
	HTML    string   `json:"html,omitempty"`
	Class   string   `json:"class,omitempty"`
	Tooltip string   `json:"tooltip,omitempty"`
	Mode    ViewMode `json:"mode,omitempty"`
}

// Patch is the ordered list of mutations produced by one pass.
type Patch struct {
	Ops []Op `json:"ops"`
	// Rebind asks clients to re-attach tooltips and click handlers.
	Rebind bool `json:"rebind,omitempty"`
}

// Empty reports whether the patch mutates nothing.
func (p *Patch) Empty() bool {
	return len(p.Ops) == 0
}

func (p *Patch) add(op Op) {
	p.Ops = append(p.Ops, op)
	domOps.WithLabelValues(string(op.Kind)).Inc()
}

// Extend appends the mutations of other.
func (p *Patch) Extend(other Patch) {
	p.Ops = append(p.Ops, other.Ops...)
	p.Rebind = p.Rebind || other.Rebind
}

// Count returns how many ops of kind the patch holds.
func (p *Patch) Count(kind OpKind) int {
	n := 0
	for _, op := range p.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
