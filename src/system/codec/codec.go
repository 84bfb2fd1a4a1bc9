// Package codec turns values into stored byte payloads and back. The
// default codec wraps encoding/gob; per-type overrides can be
// registered for anything gob cannot carry.
package codec

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"sync"

	"github.com/voodooEntity/pathspace/src/system/core"
)

// Codec encodes and decodes one concrete type.
type Codec struct {
	Encode func(value any) ([]byte, error)
	Decode func(payload []byte, out any) error
}

// Registry maps concrete types to their codec. Lookups for unregistered
// types fall through to gob. A Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Codec
}

// NewRegistry returns an empty registry backed by the gob fallback.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]Codec)}
}

// Register installs a codec for the concrete type of sample, replacing
// any previous registration.
func (r *Registry) Register(sample any, c Codec) {
	r.mu.Lock()
	r.byType[reflect.TypeOf(sample)] = c
	r.mu.Unlock()
}

// TypeName returns the stored type identity for value.
func TypeName(value any) string {
	t := reflect.TypeOf(value)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Encode serializes value and returns the payload together with the
// type name the payload must be read back as.
func (r *Registry) Encode(value any) (typeName string, payload []byte, err error) {
	t := reflect.TypeOf(value)
	if t == nil {
		return "", nil, core.NewError(core.UnserializableType, "cannot store untyped nil")
	}
	typeName = TypeName(value)

	r.mu.RLock()
	c, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		if c.Encode == nil {
			return "", nil, core.NewError(core.SerializationFunctionMissing, "no encode function registered for "+typeName)
		}
		payload, err = c.Encode(value)
		if err != nil {
			return "", nil, core.NewError(core.UnserializableType, "encoding "+typeName+": "+err.Error())
		}
		return typeName, payload, nil
	}

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "", nil, core.NewError(core.UnserializableType, "type "+typeName+" cannot be serialized")
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return "", nil, core.NewError(core.UnserializableType, "encoding "+typeName+": "+err.Error())
	}
	return typeName, buf.Bytes(), nil
}

// Decode writes the payload into out, which must be a non-nil pointer
// whose element type matches typeName.
func (r *Registry) Decode(typeName string, payload []byte, out any) error {
	ov := reflect.ValueOf(out)
	if ov.Kind() != reflect.Ptr || ov.IsNil() {
		return core.NewError(core.MalformedInput, "decode target must be a non-nil pointer")
	}
	want := ov.Type().Elem().String()
	if want != typeName {
		return core.NewError(core.InvalidType, "stored value is "+typeName+", requested "+want)
	}

	r.mu.RLock()
	c, ok := r.byType[ov.Type().Elem()]
	r.mu.RUnlock()
	if ok {
		if c.Decode == nil {
			return core.NewError(core.SerializationFunctionMissing, "no decode function registered for "+typeName)
		}
		if err := c.Decode(payload, out); err != nil {
			return core.NewError(core.MalformedInput, "decoding "+typeName+": "+err.Error())
		}
		return nil
	}

	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(out); err != nil {
		return core.NewError(core.MalformedInput, "decoding "+typeName+": "+err.Error())
	}
	return nil
}
