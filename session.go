package staged

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-staged/diff"
	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
	"github.com/goliatone/go-staged/pkg/activity"
	"github.com/goliatone/go-staged/pkg/baseline"
)

// StoreID names one of the three trees a session holds.
type StoreID string

const (
	StoreCommitted StoreID = "committed"
	StoreStaged    StoreID = "staged"
	StoreDiff      StoreID = "diff"
)

// Stores lists every tree in a fixed order.
var Stores = []StoreID{StoreCommitted, StoreStaged, StoreDiff}

// ParseStoreID accepts the names in Stores.
func ParseStoreID(name string) (StoreID, error) {
	for _, id := range Stores {
		if string(id) == name {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStore, name)
}

// Stats counts session activity since New.
type Stats struct {
	Swaps         int
	WriteFailures int
	Notifications int
}

// Session holds the committed, staged and diff trees for one editor.
type Session struct {
	cfg     sessionConfig
	id      string
	emitter *activity.Emitter
	subs    registry

	mu         sync.Mutex
	loaded     bool
	committed  model.DataState
	staged     model.DataState
	diff       diff.Result
	stats      Stats
	lastWrite  error
	restoreErr error
}

func New(opts ...Option) *Session {
	cfg := applyOptions(opts)
	return &Session{
		cfg:     cfg,
		id:      uuid.NewString(),
		emitter: activity.NewEmitter(cfg.hooks, cfg.channel),
	}
}

// ID identifies the session in activity events.
func (s *Session) ID() string {
	return s.id
}

// Load seeds the committed tree from src, restores the staged tree from
// storage, computes the initial diff, and notifies every subscriber. The
// baseline fetch and the storage read run concurrently.
//
// A baseline failure is returned as a *baseline.FetchError and leaves the
// session unloaded. Unreadable or missing staged state is not an error: the
// staged tree falls back to a copy of committed and RestoreError reports why.
// A session loads once; later calls return ErrAlreadyLoaded.
func (s *Session) Load(ctx context.Context, src baseline.Source) error {
	if s.Loaded() {
		return ErrAlreadyLoaded
	}
	if src == nil {
		return &baseline.FetchError{Source: "<nil>", Err: errors.New("no baseline source")}
	}

	var (
		doc   model.Document
		raw   string
		found bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := src.Fetch(gctx)
		if err != nil {
			if !errors.Is(err, baseline.ErrFetch) {
				err = &baseline.FetchError{Source: src.Name(), Err: err}
			}
			return err
		}
		doc = fetched
		return nil
	})
	g.Go(func() error {
		value, ok, err := s.cfg.storage.Get(gctx, s.cfg.key)
		if err != nil {
			s.cfg.logger.Warn("staged state unavailable",
				slog.String("key", s.cfg.key),
				slog.String("error", err.Error()),
			)
			return nil
		}
		raw, found = value, ok
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	committed := doc.State()
	staged, restoreErr := s.restore(committed, raw, found)
	result := diff.Compute(committed, staged)

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return ErrAlreadyLoaded
	}
	s.committed = committed
	s.staged = staged
	s.diff = result
	s.restoreErr = restoreErr
	s.loaded = true
	s.mu.Unlock()

	s.cfg.logger.Info("session loaded",
		slog.String("session_id", s.id),
		slog.String("baseline", src.Name()),
		slog.Int("features", len(committed.Features)),
		slog.Bool("restored", found && restoreErr == nil),
		slog.Int("changed_paths", len(result.ChangedPaths)),
	)

	for _, store := range Stores {
		s.notify(store, path.Root)
	}
	s.emit(ctx, activity.BuildSessionLoadedEvent(s.editInput(path.Root, result)))
	return nil
}

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Discard resets the staged tree to a copy of committed. The reset is
// persisted and diffed like any other write.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	committed := model.Clone(s.committed)
	s.mu.Unlock()
	return s.Cursor(StoreStaged, path.Root).Reset(ctx, committed)
}

// Committed returns a copy of the committed tree, or model.Empty before Load.
func (s *Session) Committed() model.DataState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Empty()
	}
	return model.Clone(s.committed)
}

// Staged returns a copy of the staged tree, or model.Empty before Load.
func (s *Session) Staged() model.DataState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Empty()
	}
	return model.Clone(s.staged)
}

// Diff returns a copy of the current diff, or diff.Empty before Load.
func (s *Session) Diff() diff.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return diff.Empty()
	}
	return model.Clone(s.diff)
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastWriteError returns the most recent durable write failure, or nil when
// the latest write succeeded.
func (s *Session) LastWriteError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWrite
}

// RestoreError reports why stored staged state was ignored during Load. It
// wraps ErrSerialization.
func (s *Session) RestoreError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreErr
}

// tree returns the live tree for store. Callers hold s.mu.
func (s *Session) tree(store StoreID) (any, error) {
	switch store {
	case StoreCommitted:
		return s.committed, nil
	case StoreStaged:
		return s.staged, nil
	case StoreDiff:
		return s.diff, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStore, store)
	}
}

func (s *Session) editInput(addr path.Address, result diff.Result) activity.EditInput {
	return activity.EditInput{
		ActorID:   s.cfg.actor,
		SessionID: s.id,
		Store:     string(StoreStaged),
		Path:      addr.String(),
		Summary: activity.Summary{
			Added:    result.Summary.AddedCount,
			Modified: result.Summary.ModifiedCount,
			Deleted:  result.Summary.DeletedCount,
		},
		Changed:    len(result.ChangedPaths),
		OccurredAt: s.cfg.clock(),
	}
}

func (s *Session) emit(ctx context.Context, event activity.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.cfg.logger.Warn("activity hook failed",
			slog.String("verb", event.Verb),
			slog.String("error", err.Error()),
		)
	}
}
