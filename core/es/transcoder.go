package es

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Migorithm/IAM/internal/reflector"
)

// Tag keys of a transcoded node in the encoded form.
const (
	typeTagKey = "__type__"
	dataTagKey = "__data__"
)

// Transcoding is a registered encode/decode pair for a value type that has
// no native representation in the storage encoding. Encode converts the
// value to an encodable form (usually a string); Decode reverses it.
type Transcoding struct {
	Name   string
	Type   reflect.Type
	Encode func(v any) (any, error)
	Decode func(d any) (any, error)
}

// NewTranscoding builds a Transcoding for the concrete type T.
func NewTranscoding[T any](name string, encode func(T) (any, error), decode func(d any) (T, error)) Transcoding {
	return Transcoding{
		Name: name,
		Type: reflect.TypeOf((*T)(nil)).Elem(),
		Encode: func(v any) (any, error) {
			t, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("transcoding %s: got %T", name, v)
			}
			return encode(t)
		},
		Decode: func(d any) (any, error) {
			return decode(d)
		},
	}
}

// Transcoder serializes event payloads to a self-describing JSON byte form.
// Values whose type has a registered transcoding are replaced by a tagged
// {__type__, __data__} node; values with neither a native representation nor
// a transcoding fail with [ErrUnserializableType].
//
// A Transcoder is process-wide shared state: register everything during
// startup, read-only afterwards.
type Transcoder struct {
	mu    sync.RWMutex
	types map[reflect.Type]Transcoding
	names map[string]Transcoding
}

// NewTranscoder returns a transcoder pre-loaded with the builtin
// transcodings every event needs (uuid ids, timestamps).
func NewTranscoder() *Transcoder {
	t := &Transcoder{
		types: map[reflect.Type]Transcoding{},
		names: map[string]Transcoding{},
	}
	for _, tc := range builtinTranscodings() {
		t.MustRegister(tc)
	}
	return t
}

// Register is an idempotent upsert keyed by value type on the encode side
// and by name on the decode side. Binding an already-used name to a
// different type is a programming error and fails.
func (t *Transcoder) Register(tc Transcoding) error {
	if tc.Name == "" {
		return fmt.Errorf("transcoding name is empty")
	}
	if tc.Type == nil {
		return fmt.Errorf("transcoding %s: type is nil", tc.Name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.names[tc.Name]; ok && prev.Type != tc.Type {
		return fmt.Errorf("transcoding name %q already registered for %s", tc.Name, prev.Type)
	}
	t.types[tc.Type] = tc
	t.names[tc.Name] = tc
	return nil
}

// MustRegister is Register, panicking on error. Intended for startup wiring.
func (t *Transcoder) MustRegister(tc Transcoding) {
	if err := t.Register(tc); err != nil {
		panic(err)
	}
}

func (t *Transcoder) lookupByType(rt reflect.Type) (Transcoding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tc, ok := t.types[rt]
	return tc, ok
}

func (t *Transcoder) lookupByName(name string) (Transcoding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tc, ok := t.names[name]
	return tc, ok
}

// Encode serializes v to the tagged JSON byte form.
func (t *Transcoder) Encode(v any) ([]byte, error) {
	tree, err := t.encodeValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// Decode parses data back into a field map, resolving every tagged node via
// the name registry.
func (t *Transcoder) Decode(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedLog, err)
	}
	decoded, err := t.decodeValue(raw)
	if err != nil {
		return nil, err
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: encoded state is not an object", ErrCorruptedLog)
	}
	return fields, nil
}

func (t *Transcoder) encodeValue(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	if tc, ok := t.lookupByType(rv.Type()); ok {
		data, err := tc.Encode(rv.Interface())
		if err != nil {
			return nil, fmt.Errorf("transcoding %s: %w", tc.Name, err)
		}
		encoded, err := t.encodeValue(reflect.ValueOf(data))
		if err != nil {
			return nil, err
		}
		return map[string]any{typeTagKey: tc.Name, dataTagKey: encoded}, nil
	}

	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return rv.Interface(), nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// raw bytes keep encoding/json's base64 representation
			return rv.Interface(), nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			enc, err := t.encodeValue(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrUnserializableType, rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			enc, err := t.encodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = enc
		}
		return out, nil

	case reflect.Struct:
		return t.encodeStruct(rv)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnserializableType, reflector.TypeInfoForType(rv.Type()).Short)
	}
}

func (t *Transcoder) encodeStruct(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	out := make(map[string]any)
	exported := 0

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		exported++

		name, skip := fieldName(f)
		if skip {
			continue
		}

		// embedded structs without an explicit tag are flattened, like encoding/json
		if f.Anonymous && f.Tag.Get("json") == "" {
			fv := rv.Field(i)
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					break
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				inner, err := t.encodeStruct(fv)
				if err != nil {
					return nil, err
				}
				for k, v := range inner {
					out[k] = v
				}
				continue
			}
		}

		enc, err := t.encodeValue(rv.Field(i))
		if err != nil {
			return nil, err
		}
		out[name] = enc
	}

	// a struct exposing no fields has no native representation
	if exported == 0 && rt.NumField() > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnserializableType, reflector.TypeInfoForType(rt).Short)
	}
	return out, nil
}

func (t *Transcoder) decodeValue(v any) (any, error) {
	switch node := v.(type) {
	case map[string]any:
		if tag, data, ok := taggedNode(node); ok {
			tc, found := t.lookupByName(tag)
			if !found {
				return nil, fmt.Errorf("%w: %s", ErrUnknownTranscoding, tag)
			}
			inner, err := t.decodeValue(data)
			if err != nil {
				return nil, err
			}
			decoded, err := tc.Decode(inner)
			if err != nil {
				return nil, fmt.Errorf("transcoding %s: %w", tc.Name, err)
			}
			return decoded, nil
		}
		out := make(map[string]any, len(node))
		for k, val := range node {
			dec, err := t.decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil

	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			dec, err := t.decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil

	default:
		return v, nil
	}
}

func taggedNode(m map[string]any) (tag string, data any, ok bool) {
	if len(m) != 2 {
		return "", nil, false
	}
	rawTag, hasTag := m[typeTagKey]
	data, hasData := m[dataTagKey]
	if !hasTag || !hasData {
		return "", nil, false
	}
	tag, ok = rawTag.(string)
	if !ok {
		return "", nil, false
	}
	return tag, data, true
}

func fieldName(f reflect.StructField) (name string, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name = strings.Split(tag, ",")[0]
	if name == "" {
		name = f.Name
	}
	return name, false
}

// assignFields populates dst (a pointer to a struct) from decoded fields,
// bypassing constructors: the stored form already encodes a valid,
// previously-committed state.
func assignFields(dst any, fields map[string]any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("cannot assign into %T", dst)
	}
	return assignStruct(rv.Elem(), fields)
}

func assignStruct(rv reflect.Value, fields map[string]any) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := fieldName(f)
		if skip {
			continue
		}
		if f.Anonymous && f.Tag.Get("json") == "" && f.Type.Kind() == reflect.Struct {
			if err := assignStruct(rv.Field(i), fields); err != nil {
				return err
			}
			continue
		}
		v, ok := fields[name]
		if !ok {
			continue
		}
		if err := assignValue(rv.Field(i), v); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return nil
}

func assignValue(fv reflect.Value, v any) error {
	if v == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return nil
	}

	switch fv.Kind() {
	case reflect.Pointer:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return assignValue(fv.Elem(), v)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if isNumeric(rv.Kind()) {
			fv.Set(rv.Convert(fv.Type()))
			return nil
		}

	case reflect.String:
		if rv.Kind() == reflect.String {
			fv.Set(rv.Convert(fv.Type()))
			return nil
		}

	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			if s, ok := v.(string); ok {
				raw, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return err
				}
				fv.SetBytes(raw)
				return nil
			}
		}
		if items, ok := v.([]any); ok {
			out := reflect.MakeSlice(fv.Type(), len(items), len(items))
			for i, item := range items {
				if err := assignValue(out.Index(i), item); err != nil {
					return err
				}
			}
			fv.Set(out)
			return nil
		}

	case reflect.Map:
		if m, ok := v.(map[string]any); ok && fv.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(fv.Type(), len(m))
			for k, item := range m {
				ev := reflect.New(fv.Type().Elem()).Elem()
				if err := assignValue(ev, item); err != nil {
					return err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(fv.Type().Key()), ev)
			}
			fv.Set(out)
			return nil
		}

	case reflect.Struct:
		if m, ok := v.(map[string]any); ok {
			return assignStruct(fv, m)
		}
	}

	return fmt.Errorf("cannot assign %T to %s", v, fv.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
