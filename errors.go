package staged

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-staged/path"
	"github.com/goliatone/go-staged/pkg/baseline"
)

var (
	// ErrNotLoaded is returned by every cursor operation until Load succeeds.
	ErrNotLoaded = errors.New("staged: session not loaded")
	// ErrReadOnly is returned when writing the committed or diff tree.
	ErrReadOnly = errors.New("staged: tree is read-only")
	// ErrSerialization marks durable content that could not be restored.
	ErrSerialization = errors.New("staged: unreadable staged state")
	// ErrType is returned by the typed helpers when a node holds another type.
	ErrType = errors.New("staged: unexpected value type")
	// ErrAlreadyLoaded is returned by a second Load on the same session.
	ErrAlreadyLoaded = errors.New("staged: session already loaded")
	// ErrUnknownStore is returned for a StoreID outside Stores.
	ErrUnknownStore = errors.New("staged: unknown store")
	// ErrUpdaterPanic wraps the value recovered from a panicking updater.
	ErrUpdaterPanic = errors.New("staged: updater panicked")

	ErrNotFound       = path.ErrNotFound
	ErrInvalidAddress = path.ErrInvalidAddress
	ErrFetch          = baseline.ErrFetch
)

// CursorError describes a failed cursor operation.
type CursorError struct {
	Op      string
	Store   StoreID
	Address path.Address
	Err     error
}

func (e *CursorError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("staged: %s %s at %s: %v", e.Op, e.Store, label(e.Address), e.Err)
}

func (e *CursorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// label renders the root address visibly.
func label(addr path.Address) string {
	if addr.IsRoot() {
		return "$"
	}
	return addr.String()
}
