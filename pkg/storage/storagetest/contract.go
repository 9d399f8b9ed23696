// Package storagetest holds the shared behaviour checks for storage backends.
package storagetest

import (
	"context"
	"testing"

	"github.com/goliatone/go-staged/pkg/storage"
)

// Run exercises the behaviour every Store backend must share. store must
// start empty.
func Run(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "appState"); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "appState", `{"count":1}`); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "appState", `{"count":2}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := store.Get(ctx, "appState")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != `{"count":2}` {
		t.Fatalf("expected last write, got %q", value)
	}
	if _, ok, _ := store.Get(ctx, "other"); ok {
		t.Fatalf("keys leaked into each other")
	}

	if deleter, ok := store.(storage.Deleter); ok {
		if err := deleter.Delete(ctx, "appState"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, ok, _ := store.Get(ctx, "appState"); ok {
			t.Fatalf("expected key to be gone after delete")
		}
		if err := deleter.Delete(ctx, "appState"); err != nil {
			t.Fatalf("delete of missing key should succeed: %v", err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Put(cancelled, "appState", "x"); err == nil {
		t.Fatalf("expected cancelled context to fail put")
	}
}
