package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

const maxJSONDepth = 64

// jsonObject is a decoded JSON object that remembers key order, so
// "first field" means the first field the backend wrote.
type jsonObject struct {
	keys   []string
	values map[string]any
}

func (o *jsonObject) lookup(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *jsonObject) orderedKeys() []string { return o.keys }

// plainObject adapts an unordered map; keys are visited in sorted order.
type plainObject map[string]any

func (m plainObject) lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m plainObject) orderedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type object interface {
	lookup(key string) (any, bool)
	orderedKeys() []string
}

func asObject(v any) (object, bool) {
	switch t := v.(type) {
	case *jsonObject:
		if t == nil {
			return nil, false
		}
		return t, true
	case map[string]any:
		if t == nil {
			return nil, false
		}
		return plainObject(t), true
	case plainObject:
		return t, t != nil
	case map[string]string:
		if t == nil {
			return nil, false
		}
		m := make(plainObject, len(t))
		for k, v := range t {
			m[k] = v
		}
		return m, true
	case map[string][]string:
		if t == nil {
			return nil, false
		}
		m := make(plainObject, len(t))
		for k, v := range t {
			list := make([]any, len(v))
			for i := range v {
				list[i] = v[i]
			}
			m[k] = list
		}
		return m, true
	}
	return nil, false
}

var errTrailingData = errors.New("trailing data after JSON value")

// decodeOrdered parses raw JSON, producing *jsonObject for objects, []any for
// arrays and json.Number for numbers.
func decodeOrdered(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	if depth > maxJSONDepth {
		return nil, fmt.Errorf("json nesting exceeds %d levels", maxJSONDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &jsonObject{values: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", kt)
			}
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.values[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// plain converts ordered objects back into ordinary maps for Details.
func plain(v any) any {
	switch t := v.(type) {
	case *jsonObject:
		if t == nil {
			return nil
		}
		out := make(map[string]any, len(t.values))
		for k, val := range t.values {
			out[k] = plain(val)
		}
		return out
	case plainObject:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	default:
		return v
	}
}

// coerce maps arbitrary inputs onto the JSON value space the normalizer walks.
func coerce(v any) any {
	switch t := v.(type) {
	case nil, string, bool, json.Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		[]any, *jsonObject, plainObject, map[string]any, map[string]string, map[string][]string:
		return v
	case json.RawMessage:
		return coerceRaw(t)
	case []byte:
		return coerceRaw(t)
	case error:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		decoded, err := decodeOrdered(b)
		if err != nil {
			return nil
		}
		return decoded
	}
}

func coerceRaw(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	decoded, err := decodeOrdered(trimmed)
	if err != nil {
		return string(trimmed)
	}
	return decoded
}
