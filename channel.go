package livetable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Batch is an ordered set of snapshots delivered together.
type Batch []Snapshot

// BatchHandler receives one batch per delivery.
type BatchHandler func(batch Batch)

// PushChannel is the source of batches. The table registers its categories
// and callbacks once, then opens the channel; delivery may happen on any
// goroutine and may repeat or interleave batches.
type PushChannel interface {
	RegisterCategories(categories ...string)
	RegisterCallback(category string, handler BatchHandler)
	Open(ctx context.Context) error
	Close() error
}

// DecodeBatch parses a JSON array of snapshot objects. Numbers are kept as
// json.Number; nested objects and arrays are dropped from each snapshot.
// An element that is not an object becomes an empty snapshot, which the
// registry reports as malformed while the rest of the batch is merged.
func DecodeBatch(data []byte) (Batch, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	batch := make(Batch, 0, len(elements))
	for i, element := range elements {
		dec := json.NewDecoder(bytes.NewReader(element))
		dec.UseNumber()
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			glog.V(1).Infof("batch entry %d is not an object: %s", i, element)
		}
		snapshot := make(Snapshot, len(entry))
		for k, v := range entry {
			if isScalar(v) {
				snapshot[k] = v
			}
		}
		batch = append(batch, snapshot)
	}
	return batch, nil
}

// LocalChannel is an in-process PushChannel. Publish delivers a batch to the
// handlers of its category on the caller's goroutine.
type LocalChannel struct {
	mu         sync.RWMutex
	categories map[string]bool
	handlers   map[string][]BatchHandler
	open       bool
}

// NewLocalChannel creates a closed, empty channel.
func NewLocalChannel() *LocalChannel {
	return &LocalChannel{
		categories: make(map[string]bool),
		handlers:   make(map[string][]BatchHandler),
	}
}

// RegisterCategories implements PushChannel.
func (c *LocalChannel) RegisterCategories(categories ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, category := range categories {
		c.categories[category] = true
	}
}

// RegisterCallback implements PushChannel.
func (c *LocalChannel) RegisterCallback(category string, handler BatchHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[category] = append(c.handlers[category], handler)
}

// Open implements PushChannel.
func (c *LocalChannel) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	return nil
}

// Close implements PushChannel.
func (c *LocalChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// Publish delivers batch to the category's handlers.
// Batches for unregistered categories are dropped.
func (c *LocalChannel) Publish(category string, batch Batch) error {
	c.mu.RLock()
	open := c.open
	subscribed := c.categories[category]
	handlers := append([]BatchHandler(nil), c.handlers[category]...)
	c.mu.RUnlock()

	if !open {
		return ErrChannelClosed
	}
	if !subscribed {
		glog.V(2).Infof("local channel: no subscription for %s", category)
		return nil
	}
	for _, handler := range handlers {
		handler(batch)
	}
	return nil
}
