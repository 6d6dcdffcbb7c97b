package models

import (
	"reflect"

	"github.com/goccy/go-json"
)

// Encode serializes an entity the way it is stored locally and sent remotely.
// Struct values are encoded through a pointer to a copy: go-json does not
// handle a struct value whose only field is a pointer.
func Encode(v any) ([]byte, error) {
	return json.Marshal(addressable(v))
}

func addressable(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return v
	}
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	return p.Interface()
}

// Decode deserializes data into a new T.
func Decode[T any](data []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Convert re-decodes v (typically a map coming off the wire) into a new T.
func Convert[T any](v any) (*T, error) {
	b, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Decode[T](b)
}

// ToMap turns an entity into its generic JSON object form.
func ToMap(v any) (map[string]any, error) {
	b, err := Encode(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
