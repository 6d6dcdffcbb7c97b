// Package common contains shared constants and sentinel errors used across
// fieldsync components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName carries a client generated request id, used by the
// server to correlate log lines of a replayed mutation.
const RequestIDHeaderName = "x-request-id"
