package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events that do not name one.
const DefaultChannel = "staged"

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter drops nil hooks. An empty channel selects DefaultChannel.
func NewEmitter(hooks Hooks, channel string) *Emitter {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:   compactHooks(hooks),
		channel: channel,
	}
}

func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

func compactHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	out := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
