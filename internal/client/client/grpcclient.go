package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/mutations"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

const (
	defaultCallTimeout   = 30 * time.Second
	defaultHealthTimeout = 2 * time.Second
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *rpc.DataServiceClient
	health      healthpb.HealthClient

	accessToken   string
	pending       mutations.Repository
	log           logging.Logger
	callTimeout   time.Duration
	healthTimeout time.Duration
	dialOptions   []grpc.DialOption
}

type Option func(*GRPCClient)

func WithAccessToken(token string) Option {
	return func(c *GRPCClient) { c.accessToken = token }
}

// WithPendingStore enables recording of tracked offline mutations.
func WithPendingStore(repo mutations.Repository) Option {
	return func(c *GRPCClient) { c.pending = repo }
}

func WithLogger(l logging.Logger) Option {
	return func(c *GRPCClient) { c.log = l }
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *GRPCClient) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithDialOptions appends dial options (e.g. a bufconn dialer in tests).
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOptions = append(c.dialOptions, opts...) }
}

func NewGRPCClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL:   endpointURL,
		callTimeout:   defaultCallTimeout,
		healthTimeout: defaultHealthTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logging.OrNop(c.log).With("module", "transport")

	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, c.dialOptions...)

	conn, err := grpc.NewClient(c.endpointURL, opts...)
	if err != nil {
		return err
	}
	c.conn = conn
	c.client = rpc.NewDataServiceClient(conn)
	c.health = healthpb.NewHealthClient(conn)
	return nil
}

func withHeaders(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	if len(md.Get(common.RequestIDHeaderName)) == 0 {
		md.Set(common.RequestIDHeaderName, uuid.NewString())
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withHeaders(ctx, c.accessToken), method, req, reply, cc, opts...)
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		c.log.Debug(ctx, "health check failed", "error", err)
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

func (c *GRPCClient) Query(ctx context.Context, operation string, variables any, out any) error {
	in, err := rpc.EncodeRequest(operation, variables)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.client.Query(ctx, in)
	if err != nil {
		return c.mapError(err)
	}
	return rpc.DecodeResponse(resp, out)
}

func (c *GRPCClient) Mutate(ctx context.Context, operation string, variables any, out any, opts ...MutateOption) error {
	var o MutateOptions
	for _, opt := range opts {
		opt(&o)
	}

	in, err := rpc.EncodeRequest(operation, variables)
	if err != nil {
		return err
	}

	if o.Offline != nil && !c.Online(ctx) {
		return c.mutateOffline(ctx, in, operation, variables, out, o)
	}

	err = c.send(ctx, in, out)
	if errors.Is(err, ErrUnavailable) && o.Offline != nil {
		c.log.Warn(ctx, "server unreachable, answering offline", "operation", operation)
		return c.mutateOffline(ctx, in, operation, variables, out, o)
	}
	if err == nil && o.Tracked && c.pending != nil {
		// the server has a newer version than the recorded one
		if derr := c.pending.Delete(ctx, o.SerializationKey); derr != nil && !errors.Is(derr, common.ErrorNotFound) {
			c.log.Warn(ctx, "superseded offline mutation not dropped", "key", o.SerializationKey, "error", derr)
		}
	}
	return err
}

func (c *GRPCClient) send(ctx context.Context, in *structpb.Struct, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.client.Mutate(ctx, in)
	if err != nil {
		return c.mapError(err)
	}
	return rpc.DecodeResponse(resp, out)
}

func (c *GRPCClient) mutateOffline(ctx context.Context, in *structpb.Struct, operation string, variables any, out any, o MutateOptions) error {
	oc := OfflineContext{
		Operation:        operation,
		Variables:        variables,
		SerializationKey: o.SerializationKey,
		Tracked:          o.Tracked,
	}

	if o.Tracked && c.pending != nil {
		raw, err := rpc.RawVariables(in)
		if err != nil {
			return err
		}
		p := mutations.Pending{SerializationKey: o.SerializationKey, Operation: operation, Variables: raw}
		if err := c.pending.Save(ctx, p); err != nil {
			return fmt.Errorf("record offline mutation: %w", err)
		}
	}

	resp, err := o.Offline.Synthesize(ctx, oc)
	if err != nil {
		return fmt.Errorf("offline response for %s: %w", operation, err)
	}
	if out == nil || resp == nil {
		return nil
	}
	b, err := models.Encode(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (c *GRPCClient) ReplayPending(ctx context.Context, onReplayed ReplayHandler) (int, error) {
	if c.pending == nil {
		return 0, nil
	}
	list, err := c.pending.List(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	var errs []error
	for _, p := range list {
		var vars any
		if err := json.Unmarshal(p.Variables, &vars); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.SerializationKey, err))
			continue
		}
		in, err := rpc.EncodeRequest(p.Operation, vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.SerializationKey, err))
			continue
		}
		var resp any
		if err := c.send(ctx, in, &resp); err != nil {
			if errors.Is(err, ErrUnavailable) {
				return applied, err
			}
			c.log.Error(ctx, "replay failed", "key", p.SerializationKey, "operation", p.Operation, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.SerializationKey, err))
			continue
		}
		if err := c.pending.Delete(ctx, p.SerializationKey); err != nil {
			errs = append(errs, err)
			continue
		}
		applied++
		c.log.Info(ctx, "replayed offline mutation", "key", p.SerializationKey, "operation", p.Operation)
		if onReplayed != nil {
			data, err := models.Encode(resp)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.SerializationKey, err))
				continue
			}
			onReplayed(ctx, Replayed{Operation: p.Operation, SerializationKey: p.SerializationKey, Data: data})
		}
	}
	return applied, errors.Join(errs...)
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, st.Message())
	case codes.Aborted:
		return fmt.Errorf("%w: %s", common.ErrVersionConflict, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", common.ErrUnknownOperation, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
