package path

import "errors"

var (
	// ErrNotFound reports a read of an address that is absent from the tree.
	ErrNotFound = errors.New("path: not found")
	// ErrInvalidAddress reports a malformed address or a write whose target is
	// absent from the current shape of the tree.
	ErrInvalidAddress = errors.New("path: invalid address")
)
