package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	staged "github.com/goliatone/go-staged"
	"github.com/goliatone/go-staged/internal/config"
	"github.com/goliatone/go-staged/pkg/activity"
	"github.com/goliatone/go-staged/pkg/storage"
)

// app is the state shared by every command for one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfg     config.Config
	logger  *slog.Logger
	store   storage.Store
	session *staged.Session
}

// open loads configuration, opens the durable store, and loads a session
// from the configured baseline.
func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	src, err := cfg.Source()
	if err != nil {
		return err
	}
	store, err := config.OpenStore(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}
	a.store = store

	a.session = staged.New(
		staged.WithStorage(store),
		staged.WithStorageKey(cfg.StorageKey),
		staged.WithLogger(a.logger),
		staged.WithActor(cfg.Actor),
		staged.WithActivityHooks(activity.DefaultChannel, activity.HookFunc(a.logActivity)),
	)
	if err := a.session.Load(ctx, src); err != nil {
		return err
	}
	if err := a.session.RestoreError(); err != nil {
		a.logger.Warn("staged state discarded", slog.String("error", err.Error()))
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := storage.Close(a.store)
	a.store = nil
	return err
}

func (a *app) logActivity(_ context.Context, event activity.Event) error {
	a.logger.Debug("activity",
		slog.String("verb", event.Verb),
		slog.String("object_type", event.ObjectType),
		slog.String("object_id", event.ObjectID),
		slog.String("actor", event.ActorID),
	)
	return nil
}

// persisted fails when the last staged write did not reach the durable store.
// The session keeps going without it, but a one-shot command would lose it.
func (a *app) persisted() error {
	if err := a.session.LastWriteError(); err != nil {
		return fmt.Errorf("staged change not saved: %w", err)
	}
	return nil
}

func (a *app) print(value any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
