package rpc

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// toGeneric turns any JSON-serializable value into the map/slice/float form
// accepted by structpb.
func toGeneric(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := models.Encode(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromGeneric decodes a structpb-derived value into out.
func fromGeneric(v any, out any) error {
	b, err := models.Encode(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// EncodeRequest builds a request envelope.
func EncodeRequest(operation string, variables any) (*structpb.Struct, error) {
	vars, err := toGeneric(variables)
	if err != nil {
		return nil, fmt.Errorf("encode variables of %s: %w", operation, err)
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"operation": operation,
		"variables": vars,
	})
}

// DecodeRequest returns the operation name and decodes the variables into
// vars (if non-nil).
func DecodeRequest(in *structpb.Struct, vars any) (string, error) {
	m := in.AsMap()
	op, _ := m["operation"].(string)
	if op == "" {
		return "", fmt.Errorf("%w: missing operation", ErrMalformedEnvelope)
	}
	if vars != nil {
		if err := fromGeneric(m["variables"], vars); err != nil {
			return op, fmt.Errorf("%w: variables of %s: %v", ErrMalformedEnvelope, op, err)
		}
	}
	return op, nil
}

// Operation reads the operation name only.
func Operation(in *structpb.Struct) string {
	if in == nil {
		return ""
	}
	if v, ok := in.GetFields()["operation"]; ok {
		return v.GetStringValue()
	}
	return ""
}

// RawVariables returns the variables as JSON.
func RawVariables(in *structpb.Struct) ([]byte, error) {
	return json.Marshal(in.AsMap()["variables"])
}

// EncodeResponse wraps data in a response envelope.
func EncodeResponse(data any) (*structpb.Struct, error) {
	d, err := toGeneric(data)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(map[string]any{"data": d})
}

// DecodeResponse decodes the "data" field of a response into out. A nil out
// discards the payload.
func DecodeResponse(in *structpb.Struct, out any) error {
	if out == nil {
		return nil
	}
	if in == nil {
		return fmt.Errorf("%w: empty response", ErrMalformedEnvelope)
	}
	if err := fromGeneric(in.AsMap()["data"], out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return nil
}
