// Package rpc describes the fieldsync.v1.DataService gRPC service shared by
// the client transport and the server.
//
// The service carries generic envelopes as google.protobuf.Struct so that
// new operations do not need new messages:
//
//	request:  {"operation": "saveCalendar", "variables": {...}}
//	response: {"data": ...}
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName  = "fieldsync.v1.DataService"
	MutateMethod = "/" + ServiceName + "/Mutate"
	QueryMethod  = "/" + ServiceName + "/Query"
)

// Operation names served by DataService.
const (
	OpSaveCalendar     = "saveCalendar"
	OpDeleteCalendars  = "deleteCalendars"
	OpLoadCalendar     = "loadCalendar"
	OpLoadCalendars    = "loadCalendars"
	OpLoadPrograms     = "loadPrograms"
	OpLoadProgram      = "loadProgram"
	OpLoadReferentials = "loadReferentials"
	OpLoadVessels      = "loadVessels"
)

// DataServiceServer is implemented by the server.
type DataServiceServer interface {
	Mutate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDataServiceServer(s grpc.ServiceRegistrar, srv DataServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func mutateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DataServiceServer).Mutate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MutateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DataServiceServer).Mutate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func queryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DataServiceServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: QueryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DataServiceServer).Query(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DataServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Mutate", Handler: mutateHandler},
		{MethodName: "Query", Handler: queryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fieldsync/v1/data.proto",
}

// DataServiceClient calls DataService over a client connection.
type DataServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDataServiceClient(cc grpc.ClientConnInterface) *DataServiceClient {
	return &DataServiceClient{cc: cc}
}

func (c *DataServiceClient) Mutate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MutateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DataServiceClient) Query(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, QueryMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
