package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("storage: store is closed")

// Store reads and writes one string value per key.
type Store interface {
	// Get returns the value stored under key. ok is false when nothing has
	// been written there yet; that is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
}

// Deleter is implemented by stores that can drop a key entirely.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Closer releases resources held by a store.
type Closer interface {
	Close() error
}

// Close closes s when it implements Closer.
func Close(s Store) error {
	if closer, ok := s.(Closer); ok {
		return closer.Close()
	}
	return nil
}
