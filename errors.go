package livetable

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrUnknownNode       = errors.New("unknown node")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrAlreadyStarted    = errors.New("table already started")
	ErrChannelClosed     = errors.New("push channel closed")
	ErrInvalidConfig     = errors.New("invalid config")
)

// CellError reports a view that failed to compute the cells of one node.
// The node's row is rendered as placeholders and the batch carries on.
type CellError struct {
	ID    int
	Cause error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("compute cells for node %d: %v", e.ID, e.Cause)
}

func (e *CellError) Unwrap() error {
	return e.Cause
}
