// Package client is the Remote Transport of the sync engine.
//
// # Overview
//
// Transport executes named mutations and queries against the server and
// reports network reachability. GRPCClient implements it on top of the
// fieldsync.v1.DataService gRPC service (see internal/rpc): every call sends
// a {"operation", "variables"} envelope and decodes the "data" field of the
// reply. A unary interceptor injects the access token and a request id.
// Reachability is probed with the standard gRPC health service.
//
// # Offline responses
//
// A mutation may carry an OfflineResponseStrategy (WithOfflineResponse). When
// the server cannot be reached, the strategy synthesizes the response instead
// of failing. If the mutation is tracked (WithTracking) it is also recorded in
// the pending store and sent again by ReplayPending once the server is back.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, common.ErrorNotFound,
// common.ErrVersionConflict, common.ErrUnknownOperation.
package client
