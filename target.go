package livetable

import "context"

// NodeState is a read-only copy of one node's declared attributes.
type NodeState struct {
	ID         int        `json:"id"`
	Attributes Attributes `json:"attributes"`
	Noteworthy bool       `json:"noteworthy"`
	// Reported is false until the node's first snapshot arrives.
	Reported   bool       `json:"reported"`
}

// Frame is what targets receive after each event handled by the table.
// Document and Nodes are copies owned by the receiver.
type Frame struct {
	Columns  []Column
	Mode     ViewMode
	Patch    Patch
	Document *Document
	Nodes    []NodeState
}

// NewFrame snapshots the registry's current table along with patch.
func NewFrame(r *Registry, patch Patch) *Frame {
	return &Frame{
		Columns:  r.View().Columns(),
		Mode:     r.Mode(),
		Patch:    patch,
		Document: r.Document().Clone(),
		Nodes:    r.States(),
	}
}

// Target represents a rendering destination for the table.
type Target interface {
	// Update sends the latest frame to the target.
	Update(ctx context.Context, frame *Frame) error

	// Close cleans up the target.
	Close() error

	// Name returns a descriptive name for logging.
	Name() string
}

// Controller receives the user gestures a target collects.
type Controller interface {
	ToggleViewMode()
	Dismiss(key string)
}

// controlled is implemented by targets that forward gestures to a Controller.
type controlled interface {
	SetController(c Controller)
}
