package skibbadb

import (
	"context"
	"log/slog"
	"time"
)

// Event names a lifecycle point a hook can observe.
type Event string

const (
	BeforeInsert Event = "before_insert"
	AfterInsert  Event = "after_insert"
	BeforeUpdate Event = "before_update"
	AfterUpdate  Event = "after_update"
	BeforeDelete Event = "before_delete"
	AfterDelete  Event = "after_delete"
	BeforeQuery  Event = "before_query"
	AfterQuery   Event = "after_query"
	OnError      Event = "on_error"
	OnOpen       Event = "on_open"
	OnClose      Event = "on_close"
	OnTxBegin    Event = "on_tx_begin"
	OnTxEnd      Event = "on_tx_end"
)

// defaultHookTimeout is the per-hook deadline.
const defaultHookTimeout = 5 * time.Second

// HookFunc observes (and may mutate) data carried by event for collection.
// before* hooks' returned data replaces the carried value for subsequent
// hooks and the operation itself.
type HookFunc func(ctx context.Context, collection string, data any) (any, error)

// Hooks is a registry of lifecycle hooks, keyed by event, run in
// registration order.
type Hooks struct {
	byEvent map[Event][]HookFunc
	strict  bool
	timeout time.Duration
}

// NewHooks returns an empty Hooks registry. strict controls whether a
// hook's error propagates to the caller (true) or is logged and
// swallowed (false).
func NewHooks(strict bool) *Hooks {
	return &Hooks{byEvent: make(map[Event][]HookFunc), strict: strict, timeout: defaultHookTimeout}
}

// On registers fn to run on event.
func (h *Hooks) On(event Event, fn HookFunc) {
	h.byEvent[event] = append(h.byEvent[event], fn)
}

// Run invokes every hook registered for event in order, feeding each hook's
// returned data into the next. OnError hooks are always run in lenient
// mode (errors from them never propagate) since they run during failure
// handling.
func (h *Hooks) Run(ctx context.Context, event Event, collection string, data any) (any, error) {
	for _, fn := range h.byEvent[event] {
		hctx, cancel := context.WithTimeout(ctx, h.timeout)
		result, err := fn(hctx, collection, data)
		cancel()

		if hctx.Err() == context.DeadlineExceeded {
			terr := NewHookTimeoutError(string(event))
			if h.strict && event != OnError {
				return data, terr
			}
			slog.Warn("hook timed out", "event", event, "collection", collection)
			continue
		}

		if err != nil {
			herr := NewHookError(string(event), err)
			if h.strict && event != OnError {
				return data, herr
			}
			slog.Warn("hook failed", "event", event, "collection", collection, "error", err)
			continue
		}

		if result != nil {
			data = result
		}
	}
	return data, nil
}
