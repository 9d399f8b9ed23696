package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-staged/pkg/storage"
	"github.com/goliatone/go-staged/pkg/storage/sqlite"
	"github.com/goliatone/go-staged/pkg/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	storagetest.Run(t, store)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Put(context.Background(), "appState", `{"count":3}`); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	value, ok, err := reopened.Get(context.Background(), "appState")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if value != `{"count":3}` {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlite.Open("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestClosedStore(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ctx := context.Background()
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("get: expected ErrClosed, got %v", err)
	}
	if err := store.Put(ctx, "k", "v"); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("put: expected ErrClosed, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("delete: expected ErrClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
