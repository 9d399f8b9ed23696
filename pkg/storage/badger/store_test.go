package badger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-staged/pkg/storage"
	"github.com/goliatone/go-staged/pkg/storage/badger"
	"github.com/goliatone/go-staged/pkg/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	store, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	storagetest.Run(t, store)
}

func TestStorePersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := badger.Open(badger.DefaultConfig(dir))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Put(context.Background(), "appState", `{"count":9}`); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := badger.Open(badger.DefaultConfig(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	value, ok, err := reopened.Get(context.Background(), "appState")
	if err != nil || !ok || value != `{"count":9}` {
		t.Fatalf("unexpected read after reopen: %q ok=%v err=%v", value, ok, err)
	}
}

func TestClosedStore(t *testing.T) {
	store, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Put(context.Background(), "k", "v"); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := badger.Open(badger.Config{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
