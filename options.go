package staged

import (
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-staged/pkg/activity"
	"github.com/goliatone/go-staged/pkg/storage"
)

// DefaultStorageKey is the key the staged tree is stored under.
const DefaultStorageKey = "appState"

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	storage storage.Store
	key     string
	logger  *slog.Logger
	hooks   activity.Hooks
	channel string
	actor   string
	clock   func() time.Time
}

func applyOptions(opts []Option) sessionConfig {
	cfg := sessionConfig{
		key:   DefaultStorageKey,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.storage == nil {
		cfg.storage = storage.NewMemoryStore()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// WithStorage sets the durable store. The default keeps state in memory only.
func WithStorage(store storage.Store) Option {
	return func(cfg *sessionConfig) {
		cfg.storage = store
	}
}

// WithStorageKey overrides DefaultStorageKey. Blank keys are ignored.
func WithStorageKey(key string) Option {
	return func(cfg *sessionConfig) {
		if key = strings.TrimSpace(key); key != "" {
			cfg.key = key
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *sessionConfig) {
		cfg.logger = logger
	}
}

// WithActivityHooks attaches hooks notified after loads and staged writes.
// channel may be empty.
func WithActivityHooks(channel string, hooks ...activity.ActivityHook) Option {
	return func(cfg *sessionConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
		cfg.channel = channel
	}
}

// WithActor names who is editing, for activity events.
func WithActor(actor string) Option {
	return func(cfg *sessionConfig) {
		cfg.actor = strings.TrimSpace(actor)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(cfg *sessionConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}
