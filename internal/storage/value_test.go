package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStringValueDetectsInt(t *testing.T) {
	v := NewStringValue([]byte("12345"))
	assert.Equal(t, EncInt, v.Encoding)
	iv, ok := v.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(12345), iv)
}

func TestNewStringValueRejectsNonCanonicalInt(t *testing.T) {
	v := NewStringValue([]byte("007"))
	assert.Equal(t, EncRaw, v.Encoding)
	assert.Equal(t, "007", string(v.Bytes()))
}

func TestValueSharedCloneOnMutate(t *testing.T) {
	v := NewStringValue([]byte("hello"))
	v.Retain()
	assert.True(t, v.Shared())

	priv := EnsurePrivate(v)
	assert.NotSame(t, v, priv)
	assert.False(t, priv.Shared())
}

func TestValueCloneDeepCopiesPayload(t *testing.T) {
	v := NewEmptyList()
	zl := v.Payload.(*Ziplist)
	zl.PushTail([]byte("a"))

	clone := v.Clone()
	cloneZl := clone.Payload.(*Ziplist)
	cloneZl.PushTail([]byte("b"))

	assert.Equal(t, 1, zl.Len())
	assert.Equal(t, 2, cloneZl.Len())
}

func TestValueSetBytesReencodesInt(t *testing.T) {
	v := NewStringValue([]byte("hello"))
	assert.Equal(t, EncRaw, v.Encoding)
	v.SetBytes([]byte("42"))
	assert.Equal(t, EncInt, v.Encoding)
	iv, ok := v.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(42), iv)
}
