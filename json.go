package livetable

import "encoding/json"

// PatchJSON is the message streamed to browsers on /ws.
// A reset message replaces the whole table body.
type PatchJSON struct {
	Reset  bool     `json:"reset,omitempty"`
	Mode   ViewMode `json:"mode"`
	Ops    []Op     `json:"ops"`
	Rebind bool     `json:"rebind,omitempty"`
}

// ClientJSON is a gesture sent back by a browser.
type ClientJSON struct {
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
}

const (
	clientToggle  = "toggle"
	clientDismiss = "dismiss"
)

// TableJSON is the representation served at /api/table.
type TableJSON struct {
	Mode    ViewMode     `json:"mode"`
	Columns []ColumnJSON `json:"columns"`
	Rows    []*Row       `json:"rows"`
	Nodes   []NodeState  `json:"nodes"`
}

// ColumnJSON is the JSON representation of a column header.
type ColumnJSON struct {
	Label   string `json:"label"`
	Tooltip string `json:"tooltip,omitempty"`
}

// FrameToJSON converts a frame to its /api/table representation.
func FrameToJSON(frame *Frame) TableJSON {
	if frame == nil {
		return TableJSON{Mode: ModeAll, Columns: []ColumnJSON{}, Rows: []*Row{}, Nodes: []NodeState{}}
	}
	columns := make([]ColumnJSON, len(frame.Columns))
	for i, c := range frame.Columns {
		columns[i] = ColumnJSON{Label: c.Label, Tooltip: c.Tooltip}
	}
	rows := []*Row{}
	if frame.Document != nil {
		rows = frame.Document.Rows
	}
	return TableJSON{
		Mode:    frame.Mode,
		Columns: columns,
		Rows:    rows,
		Nodes:   frame.Nodes,
	}
}

func resetMessage(frame *Frame) ([]byte, error) {
	msg := PatchJSON{Reset: true, Mode: ModeAll, Ops: []Op{}, Rebind: true}
	if frame != nil {
		msg.Mode = frame.Mode
		if frame.Document != nil {
			msg.Ops = frame.Document.Ops()
		}
	}
	return json.Marshal(msg)
}

func patchMessage(frame *Frame) ([]byte, error) {
	return json.Marshal(PatchJSON{
		Mode:   frame.Mode,
		Ops:    frame.Patch.Ops,
		Rebind: frame.Patch.Rebind,
	})
}
