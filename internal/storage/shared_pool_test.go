package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedIntReturnsSameObject(t *testing.T) {
	a, ok := SharedInt(42)
	require.True(t, ok)
	b, ok := SharedInt(42)
	require.True(t, ok)
	assert.Same(t, a, b)
	assert.True(t, a.Shared())
}

func TestSharedIntOutOfRange(t *testing.T) {
	_, ok := SharedInt(-1)
	assert.False(t, ok)
	_, ok = SharedInt(sharedIntPoolSize)
	assert.False(t, ok)

	v, ok := SharedInt(sharedIntPoolSize - 1)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestNewStringValueUsesSharedPoolForSmallInts(t *testing.T) {
	a := NewStringValue([]byte("7"))
	b := NewStringValue([]byte("7"))
	assert.Same(t, a, b)
	assert.True(t, a.Shared())
}

func TestNewStringValueRejectsNonCanonicalFormsForSharing(t *testing.T) {
	v := NewStringValue([]byte("007"))
	assert.False(t, v.Shared())

	v = NewStringValue([]byte("+7"))
	assert.False(t, v.Shared())
}

func TestNewStringValuePrivateOutsideSharedRange(t *testing.T) {
	a := NewStringValue([]byte("99999"))
	b := NewStringValue([]byte("99999"))
	assert.NotSame(t, a, b)
	assert.False(t, a.Shared())
}

func TestStampAccessSkipsSharedObjects(t *testing.T) {
	v := NewStringValue([]byte("3"))
	require.True(t, v.Shared())
	v.LRUTick = 1
	v.StampAccess()
	assert.Equal(t, uint32(1), v.LRUTick)
}

func TestEnsurePrivateClonesSharedInt(t *testing.T) {
	v := NewStringValue([]byte("3"))
	require.True(t, v.Shared())

	priv := EnsurePrivate(v)
	assert.NotSame(t, v, priv)
	assert.False(t, priv.Shared())
	iv, ok := priv.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(3), iv)
}
