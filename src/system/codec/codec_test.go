package codec

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voodooEntity/pathspace/src/system/core"
)

type reading struct {
	Sensor string
	Value  float64
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()

	typeName, payload, err := r.Encode(reading{Sensor: "t1", Value: 21.5})
	require.NoError(t, err)
	assert.Equal(t, "codec.reading", typeName)

	var out reading
	require.NoError(t, r.Decode(typeName, payload, &out))
	assert.Equal(t, reading{Sensor: "t1", Value: 21.5}, out)
}

func TestRegistryTypeIdentity(t *testing.T) {
	r := NewRegistry()

	typeName, payload, err := r.Encode(42)
	require.NoError(t, err)
	assert.Equal(t, "int", typeName)

	var s string
	err = r.Decode(typeName, payload, &s)
	assert.True(t, core.IsCode(err, core.InvalidType))

	// int32 and int are distinct identities
	var i32 int32
	err = r.Decode(typeName, payload, &i32)
	assert.True(t, core.IsCode(err, core.InvalidType))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "int", TypeName(42))
	assert.Equal(t, "codec.reading", TypeName(reading{}))
	assert.Equal(t, "*codec.reading", TypeName(&reading{}))
	assert.Equal(t, "<nil>", TypeName(nil))
}

func TestRegistryUnserializable(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Encode(func() {})
	assert.True(t, core.IsCode(err, core.UnserializableType))

	_, _, err = r.Encode(make(chan int))
	assert.True(t, core.IsCode(err, core.UnserializableType))

	_, _, err = r.Encode(nil)
	assert.True(t, core.IsCode(err, core.UnserializableType))
}

func TestRegistryCustomCodec(t *testing.T) {
	r := NewRegistry()
	r.Register(0, Codec{
		Encode: func(value any) ([]byte, error) {
			return []byte(strconv.Itoa(value.(int))), nil
		},
		Decode: func(payload []byte, out any) error {
			n, err := strconv.Atoi(string(payload))
			if err != nil {
				return err
			}
			*out.(*int) = n
			return nil
		},
	})

	typeName, payload, err := r.Encode(7)
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), payload)

	var n int
	require.NoError(t, r.Decode(typeName, payload, &n))
	assert.Equal(t, 7, n)
}

func TestRegistryHalfCodec(t *testing.T) {
	r := NewRegistry()
	r.Register(reading{}, Codec{})

	_, _, err := r.Encode(reading{})
	assert.True(t, core.IsCode(err, core.SerializationFunctionMissing))

	err = r.Decode("codec.reading", nil, &reading{})
	assert.True(t, core.IsCode(err, core.SerializationFunctionMissing))
}

func TestDecodeTarget(t *testing.T) {
	r := NewRegistry()
	err := r.Decode("int", []byte{}, 5)
	assert.True(t, core.IsCode(err, core.MalformedInput))

	err = r.Decode("int", []byte{}, (*int)(nil))
	assert.True(t, core.IsCode(err, core.MalformedInput))
}
