package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictSetGetDelete(t *testing.T) {
	d := NewDict[int]()
	d.Set("a", 1)
	d.Set("b", 2)

	v, ok := d.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, d.Delete("a"))
	_, ok = d.Get("a")
	assert.False(t, ok)
}

func TestDictTriggersIncrementalRehash(t *testing.T) {
	d := NewDict[int]()
	for i := 0; i < 50; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	// Drive the rehash to completion via repeated Get/Set calls, each of
	// which performs one rehash step.
	for i := 0; i < 200; i++ {
		d.Get("key-0")
	}
	assert.Equal(t, 50, d.Len())
	for i := 0; i < 50; i++ {
		v, ok := d.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestDictSafeIterationSuppressesRehash(t *testing.T) {
	d := NewDict[int]()
	for i := 0; i < 50; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	seen := 0
	d.Each(func(k string, v int) {
		seen++
	})
	assert.Equal(t, 50, seen)
}

func TestDictRandomKeyAndSample(t *testing.T) {
	d := NewDict[int]()
	for i := 0; i < 20; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	k, ok := d.RandomKey()
	require.True(t, ok)
	assert.Contains(t, d.Keys(), k)

	sample := d.RandomSample(10)
	assert.Len(t, sample, 10)
}

func TestDictShrinkIfSparse(t *testing.T) {
	d := NewDict[int]()
	for i := 0; i < 100; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	for i := 0; i < 95; i++ {
		d.Delete(fmt.Sprintf("key-%d", i))
	}
	d.ShrinkIfSparse()
	assert.Equal(t, 5, d.Len())
}
