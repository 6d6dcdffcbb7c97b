package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/mutations"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

type fakeServer struct {
	mu        sync.Mutex
	mutateErr error
	calls     []string
	tokens    []string
}

func (f *fakeServer) record(ctx context.Context, in *structpb.Struct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rpc.Operation(in))
	md, _ := metadata.FromIncomingContext(ctx)
	f.tokens = append(f.tokens, md.Get(common.AccessTokenHeaderName)...)
}

func (f *fakeServer) Mutate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f.record(ctx, in)
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	var vars struct {
		Calendar *models.Calendar `json:"calendar"`
	}
	if _, err := rpc.DecodeRequest(in, &vars); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if vars.Calendar == nil {
		return rpc.EncodeResponse(nil)
	}
	vars.Calendar.ID = 881
	return rpc.EncodeResponse(vars.Calendar)
}

func (f *fakeServer) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f.record(ctx, in)
	switch rpc.Operation(in) {
	case rpc.OpLoadPrograms:
		return rpc.EncodeResponse([]*models.Program{{Entity: models.Entity{ID: 3}, Label: "SIH-ACTIFLOT"}})
	case rpc.OpLoadCalendar:
		return nil, status.Error(codes.NotFound, "calendar 1")
	default:
		return nil, status.Error(codes.Unimplemented, rpc.Operation(in))
	}
}

type memPending struct {
	mu    sync.Mutex
	items []mutations.Pending
}

func (m *memPending) Save(_ context.Context, p mutations.Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.SerializationKey == p.SerializationKey {
			m.items[i] = p
			return nil
		}
	}
	m.items = append(m.items, p)
	return nil
}

func (m *memPending) List(context.Context) ([]mutations.Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mutations.Pending(nil), m.items...), nil
}

func (m *memPending) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.SerializationKey == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

type harness struct {
	client  *GRPCClient
	server  *fakeServer
	health  *health.Server
	pending *memPending
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer()
	fs := &fakeServer{}
	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	rpc.RegisterDataServiceServer(srv, fs)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	pending := &memPending{}
	c, err := NewGRPCClient("passthrough:///bufnet",
		WithAccessToken("tkn"),
		WithPendingStore(pending),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return &harness{client: c, server: fs, health: hs, pending: pending}
}

func TestQuery_DecodesResponseAndSendsToken(t *testing.T) {
	h := newHarness(t)

	var programs []*models.Program
	require.NoError(t, h.client.Query(context.Background(), rpc.OpLoadPrograms, nil, &programs))

	require.Len(t, programs, 1)
	assert.Equal(t, "SIH-ACTIFLOT", programs[0].Label)
	assert.Equal(t, []string{"tkn"}, h.server.tokens)
}

func TestQuery_MapsErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.client.Query(ctx, rpc.OpLoadCalendar, map[string]any{"id": 1}, &models.Calendar{})
	require.ErrorIs(t, err, common.ErrorNotFound)

	err = h.client.Query(ctx, "dropTables", nil, nil)
	require.ErrorIs(t, err, common.ErrUnknownOperation)
}

func TestOnline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.True(t, h.client.Online(ctx))

	h.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.False(t, h.client.Online(ctx))
}

func TestMutate_Online(t *testing.T) {
	h := newHarness(t)
	called := false
	strategy := OfflineResponseFunc(func(context.Context, OfflineContext) (any, error) {
		called = true
		return nil, nil
	})

	var out models.Calendar
	err := h.client.Mutate(context.Background(), rpc.OpSaveCalendar,
		map[string]any{"calendar": &models.Calendar{Year: 2024}}, &out, WithOfflineResponse(strategy))
	require.NoError(t, err)

	assert.Equal(t, int64(881), out.ID)
	assert.False(t, called)
	assert.Empty(t, h.pending.items)
}

func TestMutate_OfflineUsesStrategyAndTracks(t *testing.T) {
	h := newHarness(t)
	h.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	var got OfflineContext
	strategy := OfflineResponseFunc(func(_ context.Context, oc OfflineContext) (any, error) {
		got = oc
		return &models.Calendar{Entity: models.Entity{ID: -1}, Year: 2024}, nil
	})

	var out models.Calendar
	err := h.client.Mutate(context.Background(), rpc.OpSaveCalendar,
		map[string]any{"calendar": &models.Calendar{Entity: models.Entity{ID: 40}, Year: 2024}}, &out,
		WithOfflineResponse(strategy), WithTracking("ActivityCalendar:40"))
	require.NoError(t, err)

	assert.Equal(t, int64(-1), out.ID)
	assert.Equal(t, rpc.OpSaveCalendar, got.Operation)
	assert.True(t, got.Tracked)
	assert.Equal(t, "ActivityCalendar:40", got.SerializationKey)
	assert.Empty(t, h.server.calls, "nothing reaches the server")

	require.Len(t, h.pending.items, 1)
	assert.Equal(t, "ActivityCalendar:40", h.pending.items[0].SerializationKey)
	assert.Contains(t, string(h.pending.items[0].Variables), `"id":40`)
}

func TestMutate_UnavailableFallsBackToStrategy(t *testing.T) {
	h := newHarness(t)
	h.server.mutateErr = status.Error(codes.Unavailable, "db down")

	strategy := OfflineResponseFunc(func(context.Context, OfflineContext) (any, error) {
		return map[string]any{"id": -3}, nil
	})

	var out models.Calendar
	err := h.client.Mutate(context.Background(), rpc.OpSaveCalendar, nil, &out, WithOfflineResponse(strategy))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), out.ID)
	assert.Empty(t, h.pending.items, "untracked mutations are not recorded")
}

func TestMutate_ErrorsWithoutStrategy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.server.mutateErr = status.Error(codes.Unavailable, "down")
	require.ErrorIs(t, h.client.Mutate(ctx, rpc.OpSaveCalendar, nil, nil), ErrUnavailable)

	h.server.mutateErr = status.Error(codes.Aborted, "stale update date")
	require.ErrorIs(t, h.client.Mutate(ctx, rpc.OpSaveCalendar, nil, nil), common.ErrVersionConflict)

	h.server.mutateErr = status.Error(codes.Unauthenticated, "no token")
	require.ErrorIs(t, h.client.Mutate(ctx, rpc.OpSaveCalendar, nil, nil), ErrUnauthorized)
}

func TestMutate_StrategyError(t *testing.T) {
	h := newHarness(t)
	h.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	boom := errors.New("no ids left")

	err := h.client.Mutate(context.Background(), rpc.OpSaveCalendar, nil, nil,
		WithOfflineResponse(OfflineResponseFunc(func(context.Context, OfflineContext) (any, error) { return nil, boom })))
	require.ErrorIs(t, err, boom)
}

func TestReplayPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.pending.Save(ctx, mutations.Pending{
		SerializationKey: "ActivityCalendar:40",
		Operation:        rpc.OpSaveCalendar,
		Variables:        []byte(`{"calendar":{"id":40,"year":2024}}`),
	}))

	var replayed []Replayed
	n, err := h.client.ReplayPending(ctx, func(_ context.Context, r Replayed) { replayed = append(replayed, r) })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, h.pending.items)
	assert.Equal(t, []string{rpc.OpSaveCalendar}, h.server.calls)

	require.Len(t, replayed, 1)
	assert.Equal(t, "ActivityCalendar:40", replayed[0].SerializationKey)
	saved, err := models.Decode[models.Calendar](replayed[0].Data)
	require.NoError(t, err)
	assert.Equal(t, int64(881), saved.ID)
	assert.Equal(t, 2024, saved.Year)
}

func TestMutate_OnlineDropsSupersededPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.pending.Save(ctx, mutations.Pending{
		SerializationKey: "ActivityCalendar:40",
		Operation:        rpc.OpSaveCalendar,
		Variables:        []byte(`{"calendar":{"id":40,"year":2023}}`),
	}))

	var out models.Calendar
	err := h.client.Mutate(ctx, rpc.OpSaveCalendar, &rpc.SaveCalendarVars{Calendar: &models.Calendar{Entity: models.Entity{ID: 40}, Year: 2024}}, &out,
		WithTracking("ActivityCalendar:40"))
	require.NoError(t, err)
	assert.Equal(t, int64(881), out.ID)
	assert.Empty(t, h.pending.items)

	// untracked keys are left alone
	require.NoError(t, h.pending.Save(ctx, mutations.Pending{SerializationKey: "other", Operation: rpc.OpSaveCalendar, Variables: []byte(`{}`)}))
	require.NoError(t, h.client.Mutate(ctx, rpc.OpSaveCalendar, nil, nil, WithTracking("ActivityCalendar:41")))
	assert.Len(t, h.pending.items, 1)
}

func TestReplayPending_StopsWhenUnavailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.server.mutateErr = status.Error(codes.Unavailable, "down")

	require.NoError(t, h.pending.Save(ctx, mutations.Pending{SerializationKey: "a", Operation: rpc.OpSaveCalendar, Variables: []byte(`{}`)}))
	require.NoError(t, h.pending.Save(ctx, mutations.Pending{SerializationKey: "b", Operation: rpc.OpSaveCalendar, Variables: []byte(`{}`)}))

	n, err := h.client.ReplayPending(ctx, nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, n)
	assert.Len(t, h.pending.items, 2)
	assert.Len(t, h.server.calls, 1)
}

func TestMapError(t *testing.T) {
	c := &GRPCClient{}
	require.NoError(t, c.mapError(nil))
	require.ErrorIs(t, c.mapError(status.Error(codes.DeadlineExceeded, "")), ErrUnavailable)
	require.ErrorIs(t, c.mapError(status.Error(codes.PermissionDenied, "")), ErrUnauthorized)
	require.ErrorIs(t, c.mapError(status.Error(codes.InvalidArgument, "local ids")), common.ErrValidation)

	plain := errors.New("plain")
	require.ErrorIs(t, c.mapError(plain), plain)

	err := c.mapError(status.Error(codes.Internal, "boom"))
	require.ErrorContains(t, err, "rpc error")
}
