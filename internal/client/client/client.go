package client

import (
	"context"
)

// Transport executes remote operations.
type Transport interface {
	// Mutate runs a named mutation and decodes the response into out.
	Mutate(ctx context.Context, operation string, variables any, out any, opts ...MutateOption) error
	// Query runs a named query and decodes the response into out.
	Query(ctx context.Context, operation string, variables any, out any) error
	// Online reports whether the server is reachable right now.
	Online(ctx context.Context) bool
	// ReplayPending sends the mutations recorded while offline and returns how
	// many were applied. onReplayed, when set, receives each server response.
	ReplayPending(ctx context.Context, onReplayed ReplayHandler) (int, error)
	Close() error
}

// Replayed is a recorded mutation the server accepted on replay.
type Replayed struct {
	Operation        string
	SerializationKey string
	// Data is the JSON response of the server.
	Data []byte
}

type ReplayHandler func(ctx context.Context, r Replayed)

// OfflineContext describes the mutation a strategy has to answer for.
type OfflineContext struct {
	Operation        string
	Variables        any
	SerializationKey string
	Tracked          bool
}

// OfflineResponseStrategy builds a stand-in response when the server cannot
// be reached.
type OfflineResponseStrategy interface {
	Synthesize(ctx context.Context, oc OfflineContext) (any, error)
}

// OfflineResponseFunc adapts a function to OfflineResponseStrategy.
type OfflineResponseFunc func(ctx context.Context, oc OfflineContext) (any, error)

func (f OfflineResponseFunc) Synthesize(ctx context.Context, oc OfflineContext) (any, error) {
	return f(ctx, oc)
}

// MutateOptions collects the MutateOption values of one call. Transport
// implementations apply the options to a zero value.
type MutateOptions struct {
	Offline          OfflineResponseStrategy
	SerializationKey string
	Tracked          bool
}

type MutateOption func(*MutateOptions)

// WithOfflineResponse answers the mutation locally when offline.
func WithOfflineResponse(s OfflineResponseStrategy) MutateOption {
	return func(o *MutateOptions) { o.Offline = s }
}

// WithTracking records the mutation for replay under key when it had to be
// answered offline. A later tracked mutation with the same key replaces it.
func WithTracking(key string) MutateOption {
	return func(o *MutateOptions) {
		o.SerializationKey = key
		o.Tracked = key != ""
	}
}
