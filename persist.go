package staged

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-staged/internal/hydrate"
	"github.com/goliatone/go-staged/model"
)

var stagedDecoder = hydrate.NewDecoder(
	hydrate.WithDisallowUnknownFields[model.DataState](),
	hydrate.WithPostHook[model.DataState](checkIdentities),
)

// checkIdentities rejects snapshots whose features cannot be addressed.
func checkIdentities(_ hydrate.Context, state *model.DataState) error {
	if state.Features == nil {
		state.Features = []model.Feature{}
	}
	seen := make(map[string]struct{}, len(state.Features))
	for i, feature := range state.Features {
		if feature.ID == "" {
			return fmt.Errorf("feature at position %d has no id", i)
		}
		if _, dup := seen[feature.ID]; dup {
			return fmt.Errorf("duplicate feature id %q", feature.ID)
		}
		seen[feature.ID] = struct{}{}
	}
	return nil
}

// restore picks the initial staged tree. Anything short of a readable
// snapshot falls back to a copy of committed.
func (s *Session) restore(committed model.DataState, raw string, found bool) (model.DataState, error) {
	if !found {
		s.cfg.logger.Debug("no staged state stored", slog.String("key", s.cfg.key))
		return model.Clone(committed), nil
	}

	state, err := stagedDecoder.DecodeBytes(hydrate.Context{Source: "storage", Key: s.cfg.key}, []byte(raw))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSerialization, err)
		s.cfg.logger.Warn("discarding staged state",
			slog.String("key", s.cfg.key),
			slog.String("error", err.Error()),
		)
		return model.Clone(committed), err
	}
	return state, nil
}

// persist writes the staged tree. Failures are recorded, never returned.
// Callers hold s.mu.
func (s *Session) persist(ctx context.Context) {
	raw, err := json.Marshal(s.staged)
	if err == nil {
		err = s.cfg.storage.Put(ctx, s.cfg.key, string(raw))
	}
	s.lastWrite = err
	if err == nil {
		return
	}
	s.stats.WriteFailures++
	s.cfg.logger.Warn("staged write failed",
		slog.String("key", s.cfg.key),
		slog.String("error", err.Error()),
	)
}
