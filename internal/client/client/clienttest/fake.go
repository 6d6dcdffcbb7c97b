// Package clienttest provides an in-memory client.Transport for tests.
package clienttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// Handler answers one operation. vars is the request variables round-tripped
// through JSON into a generic value, the way the server sees them.
type Handler func(ctx context.Context, vars json.RawMessage) (any, error)

// Call is one recorded request.
type Call struct {
	Operation string
	Variables json.RawMessage
}

// Transport dispatches operations to handlers registered with Handle.
type Transport struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
	offline  bool
	failures map[string][]error
	pending  []pendingCall
}

type pendingCall struct {
	key string
	Call
}

var _ client.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{handlers: map[string]Handler{}, failures: map[string][]error{}}
}

func (t *Transport) Handle(operation string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[operation] = h
}

// Reply registers a handler that always returns data.
func (t *Transport) Reply(operation string, data any) {
	t.Handle(operation, func(context.Context, json.RawMessage) (any, error) { return data, nil })
}

// FailNext makes the next len(errs) calls of operation fail with errs in order.
func (t *Transport) FailNext(operation string, errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[operation] = append(t.failures[operation], errs...)
}

func (t *Transport) SetOffline(offline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offline = offline
}

func (t *Transport) Calls(operation string) []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Call
	for _, c := range t.calls {
		if operation == "" || c.Operation == operation {
			out = append(out, c)
		}
	}
	return out
}

func (t *Transport) Online(context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.offline
}

func (t *Transport) Query(ctx context.Context, operation string, variables any, out any) error {
	return t.do(ctx, operation, variables, out)
}

func (t *Transport) Mutate(ctx context.Context, operation string, variables any, out any, opts ...client.MutateOption) error {
	var o client.MutateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !t.Online(ctx) {
		if o.Offline == nil {
			return client.ErrUnavailable
		}
		if o.Tracked {
			if err := t.track(o.SerializationKey, operation, variables); err != nil {
				return err
			}
		}
		resp, err := o.Offline.Synthesize(ctx, client.OfflineContext{
			Operation:        operation,
			Variables:        variables,
			SerializationKey: o.SerializationKey,
			Tracked:          o.Tracked,
		})
		if err != nil {
			return err
		}
		return convert(resp, out)
	}
	if err := t.do(ctx, operation, variables, out); err != nil {
		return err
	}
	if o.Tracked {
		t.untrack(o.SerializationKey)
	}
	return nil
}

func (t *Transport) track(key, operation string, variables any) error {
	raw, err := models.Encode(variables)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pending {
		if p.key == key {
			t.pending[i].Call = Call{Operation: operation, Variables: raw}
			return nil
		}
	}
	t.pending = append(t.pending, pendingCall{key: key, Call: Call{Operation: operation, Variables: raw}})
	return nil
}

func (t *Transport) untrack(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pending {
		if p.key == key {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// Pending lists the serialization keys of the mutations waiting for replay.
func (t *Transport) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.pending))
	for _, p := range t.pending {
		keys = append(keys, p.key)
	}
	return keys
}

// ReplayPending sends the tracked mutations through the registered handlers
// in the order they were recorded. Failed ones stay pending.
func (t *Transport) ReplayPending(ctx context.Context, onReplayed client.ReplayHandler) (int, error) {
	t.mu.Lock()
	list := append([]pendingCall(nil), t.pending...)
	t.mu.Unlock()

	applied := 0
	var errs []error
	for _, p := range list {
		var resp any
		err := t.do(ctx, p.Operation, p.Variables, &resp)
		if errors.Is(err, client.ErrUnavailable) {
			return applied, err
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.key, err))
			continue
		}
		t.untrack(p.key)
		applied++
		if onReplayed != nil {
			data, err := models.Encode(resp)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			onReplayed(ctx, client.Replayed{Operation: p.Operation, SerializationKey: p.key, Data: data})
		}
	}
	return applied, errors.Join(errs...)
}

func (t *Transport) Close() error { return nil }

func (t *Transport) do(ctx context.Context, operation string, variables any, out any) error {
	raw, err := models.Encode(variables)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.calls = append(t.calls, Call{Operation: operation, Variables: raw})
	offline := t.offline
	var injected error
	if errs := t.failures[operation]; len(errs) > 0 {
		injected, t.failures[operation] = errs[0], errs[1:]
	}
	h, ok := t.handlers[operation]
	t.mu.Unlock()

	if offline {
		return client.ErrUnavailable
	}
	if injected != nil {
		return injected
	}
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrUnknownOperation, operation)
	}

	resp, err := h(ctx, raw)
	if err != nil {
		return err
	}
	return convert(resp, out)
}

func convert(resp any, out any) error {
	if out == nil || resp == nil {
		return nil
	}
	b, err := models.Encode(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
