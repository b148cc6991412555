package livetable

import (
	"fmt"

	"github.com/golang/glog"
)

// ViewMode selects which rows are displayed.
type ViewMode string

const (
	// ModeAll displays every row.
	ModeAll ViewMode = "all"
	// ModeWorth displays only noteworthy rows.
	ModeWorth ViewMode = "worth"
)

// Toggle returns the other mode.
func (m ViewMode) Toggle() ViewMode {
	if m == ModeAll {
		return ModeWorth
	}
	return ModeAll
}

// ParseViewMode parses "all" or "worth".
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ModeAll, ModeWorth:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Filter decides row visibility for a view in a given mode.
type Filter struct {
	view View
	mode ViewMode
}

// NewFilter returns a filter in ModeAll.
func NewFilter(view View) *Filter {
	return &Filter{view: view, mode: ModeAll}
}

// Mode returns the current mode.
func (f *Filter) Mode() ViewMode {
	return f.mode
}

// Set switches to mode and reports whether the mode changed.
// Modes other than ModeAll and ModeWorth leave the filter untouched.
func (f *Filter) Set(mode ViewMode) bool {
	if mode != ModeAll && mode != ModeWorth {
		return false
	}
	changed := f.mode != mode
	f.mode = mode
	return changed
}

// Visible reports whether node is displayed in the current mode.
// A predicate that panics counts as not noteworthy.
func (f *Filter) Visible(node *Node) (visible bool) {
	if f.mode == ModeAll {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("noteworthy check for node %d: panic: %v", node.ID, r)
			visible = false
		}
	}()
	return f.view.IsNoteworthy(node.Attributes)
}
