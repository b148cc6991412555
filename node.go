package livetable

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Placeholder is the content rendered for a column that has no cell yet.
const Placeholder = "n/a"

// Cell is the display tuple of one rendered column.
// HTML is a self-contained fragment; Tooltip may be empty.
type Cell struct {
	HTML    string
	Class   string
	Tooltip string
}

// Render resolves a possibly missing cell to the strings written to the table.
func (c *Cell) Render() (html, class, tooltip string) {
	if c == nil {
		return Placeholder, "", ""
	}
	return c.HTML, c.Class, c.Tooltip
}

// Attributes is the open attribute bag of a node.
// Values are scalars: string, bool, json.Number, a Go number, or nil for undefined.
type Attributes map[string]any

// Text returns the string value of key, or "" when absent or not a string.
func (a Attributes) Text(key string) string {
	s, _ := a[key].(string)
	return s
}

// Defined reports whether key holds a non-nil value.
func (a Attributes) Defined(key string) bool {
	return a[key] != nil
}

// Truthy reports whether key holds a value that a browser would treat as true.
func (a Attributes) Truthy(key string) bool {
	switch v := a[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	}
	return true
}

// Clone returns a shallow copy restricted to keys, or a full copy when keys is empty.
func (a Attributes) Clone(keys ...string) Attributes {
	out := make(Attributes, len(a))
	if len(keys) == 0 {
		for k, v := range a {
			out[k] = v
		}
		return out
	}
	for _, k := range keys {
		if v, ok := a[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Snapshot is one partial attribute set for a node, as delivered by the push channel.
type Snapshot map[string]any

// ID extracts the node identity carried by the snapshot.
func (s Snapshot) ID() (int, error) {
	raw, ok := s["id"]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: missing id", ErrMalformedSnapshot)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if id, ok := integral(v); ok {
			return id, nil
		}
	case json.Number:
		if id, err := strconv.Atoi(v.String()); err == nil {
			return id, nil
		}
		if f, err := v.Float64(); err == nil {
			if id, ok := integral(f); ok {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: id %v is not an integer", ErrMalformedSnapshot, raw)
}

// integral converts f to an int when it is a whole number in int range.
func integral(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Node holds the latest known attributes of one testbed node and the
// cells currently derived from them.
type Node struct {
	ID         int
	Attributes Attributes
	Cells      []*Cell

	// Revision is bumped every time Cells is recomputed.
	Revision uint64
	merged   bool
}

// NewNode creates a node with the given initial cells.
func NewNode(id int, cells []*Cell) *Node {
	return &Node{
		ID:         id,
		Attributes: make(Attributes),
		Cells:      cells,
	}
}

// Merged reports whether at least one snapshot has been merged into the node.
func (n *Node) Merged() bool {
	return n.merged
}
