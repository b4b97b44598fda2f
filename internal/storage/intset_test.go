package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntSetAddAscending(t *testing.T) {
	is := NewIntSet()
	assert.True(t, is.Add(5))
	assert.True(t, is.Add(1))
	assert.True(t, is.Add(3))
	assert.False(t, is.Add(3)) // duplicate

	assert.Equal(t, []int64{1, 3, 5}, is.ToSlice())
}

func TestIntSetWidthUpgrade(t *testing.T) {
	is := NewIntSet()
	is.Add(1)
	is.Add(2)
	require.True(t, is.Contains(1))

	// Forces a 16->32 bit upgrade.
	is.Add(100000)
	assert.True(t, is.Contains(100000))
	assert.True(t, is.Contains(1))
	assert.True(t, is.Contains(2))

	// Forces a 32->64 bit upgrade.
	is.Add(10000000000)
	assert.True(t, is.Contains(10000000000))
	assert.Equal(t, []int64{1, 2, 100000, 10000000000}, is.ToSlice())
}

func TestIntSetNegativeValuesPrepend(t *testing.T) {
	is := NewIntSet()
	is.Add(10)
	is.Add(-5)
	is.Add(-100000)

	assert.Equal(t, []int64{-100000, -5, 10}, is.ToSlice())
}

func TestIntSetRemove(t *testing.T) {
	is := NewIntSet()
	is.Add(1)
	is.Add(2)
	is.Add(3)

	assert.True(t, is.Remove(2))
	assert.False(t, is.Remove(2))
	assert.Equal(t, []int64{1, 3}, is.ToSlice())
}

func TestIntSetClone(t *testing.T) {
	is := NewIntSet()
	is.Add(1)
	is.Add(2)

	clone := is.Clone()
	clone.Add(3)

	assert.Equal(t, 2, is.Len())
	assert.Equal(t, 3, clone.Len())
}
