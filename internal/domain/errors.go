package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownOrder means a Delete/Execute referenced an order_id that is
	// not resting on the book. Recoverable: the replay logs and continues,
	// since the stream may reference orders outside the replay window.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrDuplicateOrder means an Add reused an order_id that is still live
	// on the same side. Recoverable under the same policy as ErrUnknownOrder.
	ErrDuplicateOrder = errors.New("duplicate order")

	// ErrNoStrategy is returned by the engine when Run is called before a
	// strategy has been attached.
	ErrNoStrategy = errors.New("no strategy attached")

	// ErrNoData is returned by the engine when Run is called with an empty
	// snapshot sequence.
	ErrNoData = errors.New("no snapshot data")

	// ErrNotFound is returned by stores and caches for missing entities.
	ErrNotFound = errors.New("not found")
)

// SchemaError reports required snapshot columns missing from a data source.
// It is fatal: the simulation must not start on a malformed source.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}
