package livetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// DispatchReport summarises what one batch did.
type DispatchReport struct {
	Patch Patch
	// Changed lists the ids of nodes whose attributes changed, in batch order.
	Changed []int
	// Unknown holds the snapshots that matched no node.
	Unknown []Snapshot
	// Failed holds the nodes whose cells could not be computed.
	Failed []*CellError
}

// Registry owns the fixed, dense set of nodes of one table, its view mode
// and its rendered document. It is not safe for concurrent use; Table
// serializes all calls on one goroutine.
type Registry struct {
	view       View
	nodes      []*Node
	filter     *Filter
	doc        *Document
	reconciler *Reconciler
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBinder sets the affordance binder used after each pass.
func WithBinder(b Binder) RegistryOption {
	return func(r *Registry) {
		r.reconciler = NewReconciler(b)
	}
}

// NewRegistry creates count nodes with ids 1..count for view.
func NewRegistry(count int, view View, opts ...RegistryOption) (*Registry, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: node count %d", ErrInvalidConfig, count)
	}
	if view == nil {
		return nil, fmt.Errorf("%w: no view", ErrInvalidConfig)
	}

	r := &Registry{
		view:       view,
		nodes:      make([]*Node, count),
		filter:     NewFilter(view),
		doc:        NewDocument(),
		reconciler: NewReconciler(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.nodes {
		id := i + 1
		r.nodes[i] = NewNode(id, initialCells(view, id))
	}
	return r, nil
}

// View returns the registry's view.
func (r *Registry) View() View { return r.view }

// Nodes returns the node sequence, ordered by id.
func (r *Registry) Nodes() []*Node { return r.nodes }

// Document returns the rendered document.
func (r *Registry) Document() *Document { return r.doc }

// Reconciler returns the reconciler driving the document.
func (r *Registry) Reconciler() *Reconciler { return r.reconciler }

// Mode returns the current view mode.
func (r *Registry) Mode() ViewMode { return r.filter.Mode() }

// Lookup returns the node with the given id.
func (r *Registry) Lookup(id int) (*Node, bool) {
	if id < 1 || id > len(r.nodes) {
		return nil, false
	}
	return r.nodes[id-1], true
}

// Render runs one reconciliation pass without merging anything.
func (r *Registry) Render() Patch {
	return r.reconciler.Reconcile(r.doc, r.nodes)
}

// Dispatch merges every snapshot of batch into its node, in order, then
// runs exactly one reconciliation pass over the whole node sequence.
// Unknown or malformed snapshots and failing views are reported, never fatal.
func (r *Registry) Dispatch(batch Batch) DispatchReport {
	batches.Inc()
	var report DispatchReport
	for _, snapshot := range batch {
		snapshots.Inc()
		node, err := r.locate(snapshot)
		if err != nil {
			unknownSnapshots.Inc()
			glog.Warningf("livetable: %v - ignored", err)
			report.Unknown = append(report.Unknown, snapshot)
			continue
		}

		changed, err := node.Update(r.view, snapshot)
		if changed {
			report.Changed = append(report.Changed, node.ID)
		}
		var cellErr *CellError
		if errors.As(err, &cellErr) {
			cellFailures.Inc()
			glog.Errorf("livetable: %v", cellErr)
			report.Failed = append(report.Failed, cellErr)
		}
	}

	report.Patch = r.reconciler.Reconcile(r.doc, r.nodes)
	return report
}

func (r *Registry) locate(snapshot Snapshot) (*Node, error) {
	id, err := snapshot.ID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownNode, err)
	}
	node, ok := r.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: could not locate node id %d", ErrUnknownNode, id)
	}
	return node, nil
}

// SetViewMode switches the view mode and runs a visibility pass over all
// rows. No cell is recomputed. An unknown mode is logged and ignored.
func (r *Registry) SetViewMode(mode ViewMode) Patch {
	var patch Patch
	if _, err := ParseViewMode(string(mode)); err != nil {
		glog.Warningf("livetable: %v - ignored", err)
		return patch
	}
	if r.filter.Set(mode) {
		glog.V(1).Infof("livetable: view mode %s", mode)
		patch.add(Op{Kind: OpSetMode, Mode: mode})
	}
	patch.Extend(r.reconciler.Visibility(r.doc, r.nodes, r.filter.Visible))
	return patch
}

// ToggleViewMode flips between ModeAll and ModeWorth.
func (r *Registry) ToggleViewMode() Patch {
	return r.SetViewMode(r.filter.Mode().Toggle())
}

// Dismiss hides the row of node id until the next view mode pass.
func (r *Registry) Dismiss(id int) (Patch, error) {
	patch, err := r.reconciler.Dismiss(r.doc, RowKey(id))
	if err != nil {
		return patch, fmt.Errorf("dismiss node %d: %w", id, err)
	}
	return patch, nil
}

// DismissKey is Dismiss addressed by row key ("row" + id).
func (r *Registry) DismissKey(key string) (Patch, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(key, "row"))
	if err != nil || !strings.HasPrefix(key, "row") {
		return Patch{}, fmt.Errorf("dismiss %q: %w", key, ErrUnknownNode)
	}
	return r.Dismiss(id)
}

// States returns a copy of each node's declared attributes, noteworthiness
// and whether it has reported yet.
func (r *Registry) States() []NodeState {
	keys := r.view.Keys()
	states := make([]NodeState, len(r.nodes))
	for i, node := range r.nodes {
		states[i] = NodeState{
			ID:         node.ID,
			Attributes: node.Attributes.Clone(keys...),
			Noteworthy: noteworthy(r.view, node),
			Reported:   node.Merged(),
		}
	}
	return states
}

func noteworthy(view View, node *Node) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return view.IsNoteworthy(node.Attributes)
}
