package property

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Serializer converts property values to and from their storage form.
// Errors are wrapped into serialization errors by the property.
type Serializer interface {
	Serialize(v any, nullable bool) (any, error)
	Deserialize(v any, nullable bool) (any, error)
}

// JSONSerializer stores maps and slices as JSON text. Strings are assumed
// to be encoded already.
type JSONSerializer struct {
	// ListOnly rejects maps and decodes empty values as empty slices.
	ListOnly bool
}

// Serialize implements Serializer.
func (s JSONSerializer) Serialize(v any, nullable bool) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		if nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("null value for a non-nullable %s", s.kind())
	}
	if !s.accepts(v) {
		return nil, fmt.Errorf("expected %s, got %T", s.kind(), v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Deserialize implements Serializer.
func (s JSONSerializer) Deserialize(v any, nullable bool) (any, error) {
	var data []byte
	switch v := v.(type) {
	case nil:
		return s.empty(nullable), nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		if s.accepts(v) {
			return v, nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	if len(data) == 0 {
		return s.empty(nullable), nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if !s.accepts(out) {
		return nil, fmt.Errorf("expected %s, got %T", s.kind(), out)
	}
	return out, nil
}

func (s JSONSerializer) kind() string {
	if s.ListOnly {
		return "list"
	}
	return "collection"
}

func (s JSONSerializer) accepts(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	case reflect.Map:
		return !s.ListOnly
	}
	return false
}

func (s JSONSerializer) empty(nullable bool) any {
	switch {
	case nullable:
		return nil
	case s.ListOnly:
		return []any{}
	default:
		return map[string]any{}
	}
}

// MsgpackSerializer stores arbitrary values in the MessagePack format.
type MsgpackSerializer struct{}

// Serialize implements Serializer.
func (MsgpackSerializer) Serialize(v any, nullable bool) (any, error) {
	if v == nil {
		if nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("null value for a non-nullable object")
	}
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return msgpack.Marshal(v)
}

// Deserialize implements Serializer.
func (MsgpackSerializer) Deserialize(v any, nullable bool) (any, error) {
	var data []byte
	switch v := v.(type) {
	case nil:
		if nullable {
			return nil, nil
		}
		return map[string]any{}, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, fmt.Errorf("expected bytes, got %T", v)
	}
	if len(data) == 0 {
		if nullable {
			return nil, nil
		}
		return map[string]any{}, nil
	}
	var out any
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UUIDSerializer validates UUID values. Binary storage keeps the 16 raw
// bytes, text storage the canonical string.
type UUIDSerializer struct {
	Binary bool
}

// Serialize implements Serializer.
func (s UUIDSerializer) Serialize(v any, nullable bool) (any, error) {
	if v == nil {
		if nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("null value for a non-nullable uuid")
	}
	id, err := toUUID(v)
	if err != nil {
		return nil, err
	}
	if s.Binary {
		return id[:], nil
	}
	return id.String(), nil
}

// Deserialize implements Serializer.
func (UUIDSerializer) Deserialize(v any, nullable bool) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toUUID(v)
}

func toUUID(v any) (uuid.UUID, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.Nil, fmt.Errorf("expected uuid, got %T", v)
}

// ULIDSerializer validates ULID values. Binary storage keeps the 16 raw
// bytes, text storage the canonical string.
type ULIDSerializer struct {
	Binary bool
}

// Serialize implements Serializer.
func (s ULIDSerializer) Serialize(v any, nullable bool) (any, error) {
	if v == nil {
		if nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("null value for a non-nullable ulid")
	}
	id, err := toULID(v)
	if err != nil {
		return nil, err
	}
	if s.Binary {
		return id.Bytes(), nil
	}
	return id.String(), nil
}

// Deserialize implements Serializer.
func (ULIDSerializer) Deserialize(v any, nullable bool) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toULID(v)
}

func toULID(v any) (ulid.ULID, error) {
	switch v := v.(type) {
	case ulid.ULID:
		return v, nil
	case []byte:
		var id ulid.ULID
		if len(v) == len(id) {
			err := id.UnmarshalBinary(v)
			return id, err
		}
		return ulid.ParseStrict(string(v))
	case string:
		return ulid.ParseStrict(v)
	}
	return ulid.ULID{}, fmt.Errorf("expected ulid, got %T", v)
}
