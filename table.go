package livetable

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// DefaultNodes is the size of the testbed.
const DefaultNodes = 37

// DefaultCategory is the push channel category carrying node snapshots.
const DefaultCategory = "nodes"

type eventKind int

const (
	eventBatch eventKind = iota
	eventToggle
	eventMode
	eventDismiss
)

type event struct {
	kind  eventKind
	batch Batch
	mode  ViewMode
	key   string
}

// Table is a live status table. One goroutine owns the registry and handles
// batches and user gestures strictly one after another; push channel callbacks
// and targets only enqueue events. After each event that changed the
// rendered table, every target receives a Frame.
type Table struct {
	mu         sync.RWMutex
	registry   *Registry
	channel    PushChannel
	categories []string
	targets    []Target
	queueSize  int
	nodes      int
	view       View
	regOpts    []RegistryOption

	events chan event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the Table.
type Option func(*Table)

// WithNodes sets the number of nodes, ids 1..n.
func WithNodes(n int) Option {
	return func(t *Table) {
		t.nodes = n
	}
}

// WithView sets the view; the default is the testbed view.
func WithView(v View) Option {
	return func(t *Table) {
		t.view = v
	}
}

// WithChannel sets the push channel the table subscribes to.
func WithChannel(c PushChannel) Option {
	return func(t *Table) {
		t.channel = c
	}
}

// WithCategories sets the push channel categories carrying node snapshots.
func WithCategories(categories ...string) Option {
	return func(t *Table) {
		t.categories = categories
	}
}

// WithQueueSize sets how many events may wait for the loop.
func WithQueueSize(n int) Option {
	return func(t *Table) {
		t.queueSize = n
	}
}

// WithRegistryOptions passes options through to the registry.
func WithRegistryOptions(opts ...RegistryOption) Option {
	return func(t *Table) {
		t.regOpts = append(t.regOpts, opts...)
	}
}

// New creates a Table with the given options.
func New(opts ...Option) (*Table, error) {
	t := &Table{
		nodes:      DefaultNodes,
		categories: []string{DefaultCategory},
		queueSize:  64,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.view == nil {
		t.view = NewTestbedView(TestbedOptions{})
	}

	registry, err := NewRegistry(t.nodes, t.view, t.regOpts...)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	t.registry = registry
	t.events = make(chan event, t.queueSize)
	return t, nil
}

// Registry exposes the table's registry. It must not be touched while the
// table is running.
func (t *Table) Registry() *Registry {
	return t.registry
}

// AddTarget adds an output target. Targets that collect gestures get the
// table as their Controller.
func (t *Table) AddTarget(target Target) error {
	if c, ok := target.(controlled); ok {
		c.SetController(t)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targets = append(t.targets, target)
	return nil
}

// RemoveTarget removes a target by reference.
func (t *Table) RemoveTarget(target Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.targets {
		if existing == target {
			t.targets = append(t.targets[:i], t.targets[i+1:]...)
			return
		}
	}
}

// Start renders the initial table, subscribes to the push channel and
// begins handling events.
func (t *Table) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	loopCtx := t.ctx
	t.mu.Unlock()

	// Initial placeholder render
	t.publish(loopCtx, t.registry.Render())

	go t.run(loopCtx)

	if t.channel == nil {
		return nil
	}
	t.channel.RegisterCategories(t.categories...)
	for _, category := range t.categories {
		t.channel.RegisterCallback(category, t.Deliver)
	}
	if err := t.channel.Open(loopCtx); err != nil {
		t.Stop()
		return fmt.Errorf("open push channel: %w", err)
	}
	return nil
}

func (t *Table) run(ctx context.Context) {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.events:
			t.publish(ctx, t.handle(ev))
		}
	}
}

func (t *Table) handle(ev event) Patch {
	switch ev.kind {
	case eventBatch:
		return t.registry.Dispatch(ev.batch).Patch
	case eventToggle:
		return t.registry.ToggleViewMode()
	case eventMode:
		return t.registry.SetViewMode(ev.mode)
	case eventDismiss:
		patch, err := t.registry.DismissKey(ev.key)
		if err != nil {
			glog.Warningf("livetable: %v", err)
		}
		return patch
	}
	return Patch{}
}

// publish fans a non-empty patch out to all targets.
func (t *Table) publish(ctx context.Context, patch Patch) {
	if patch.Empty() {
		return
	}
	t.mu.RLock()
	targets := make([]Target, len(t.targets))
	copy(targets, t.targets)
	t.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	frame := NewFrame(t.registry, patch)
	for _, target := range targets {
		if err := target.Update(ctx, frame); err != nil {
			glog.Warningf("target %s: %v", target.Name(), err)
		}
	}
}

func (t *Table) enqueue(ev event) {
	t.mu.RLock()
	ctx := t.ctx
	t.mu.RUnlock()
	if ctx == nil {
		glog.V(1).Infof("livetable: event dropped, table not started")
		return
	}
	select {
	case t.events <- ev:
	case <-ctx.Done():
	}
}

// Deliver queues a batch for dispatch. It is the table's BatchHandler.
func (t *Table) Deliver(batch Batch) {
	t.enqueue(event{kind: eventBatch, batch: batch})
}

// ToggleViewMode queues a view mode toggle. It implements Controller.
func (t *Table) ToggleViewMode() {
	t.enqueue(event{kind: eventToggle})
}

// SetViewMode queues an explicit view mode change.
func (t *Table) SetViewMode(mode ViewMode) {
	t.enqueue(event{kind: eventMode, mode: mode})
}

// Dismiss queues hiding the row with the given key. It implements Controller.
func (t *Table) Dismiss(key string) {
	t.enqueue(event{kind: eventDismiss, key: key})
}

// Stop stops handling events and closes the push channel.
func (t *Table) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}

	if t.channel != nil {
		if err := t.channel.Close(); err != nil {
			glog.Warningf("livetable: close push channel: %v", err)
		}
	}
	cancel()
	// Wait for run goroutine to finish
	<-done
}

// Close stops the table and closes all targets.
func (t *Table) Close() error {
	t.Stop()

	t.mu.Lock()
	targets := t.targets
	t.targets = nil
	t.mu.Unlock()

	var lastErr error
	for _, target := range targets {
		if err := target.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
