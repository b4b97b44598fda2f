package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPushPop(t *testing.T) {
	l := NewList()
	l.PushTail([]byte("a"))
	l.PushTail([]byte("b"))
	l.PushHead([]byte("z"))

	assert.Equal(t, 3, l.Length)
	v, ok := l.PopHead()
	require.True(t, ok)
	assert.Equal(t, "z", string(v))

	v, ok = l.PopTail()
	require.True(t, ok)
	assert.Equal(t, "b", string(v))
}

func TestListRangeNegativeIndices(t *testing.T) {
	l := NewList()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.PushTail([]byte(s))
	}
	out := l.Range(-3, -1)
	require.Len(t, out, 3)
	assert.Equal(t, "c", string(out[0]))
	assert.Equal(t, "e", string(out[2]))
}

func TestListTrim(t *testing.T) {
	l := NewList()
	for _, s := range []string{"a", "b", "c", "d"} {
		l.PushTail([]byte(s))
	}
	l.Trim(1, 2)
	assert.Equal(t, 2, l.Length)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, l.ToSlice())
}

func TestListRemoveMatchingHeadToTail(t *testing.T) {
	l := NewList()
	for _, s := range []string{"x", "y", "x", "x", "y"} {
		l.PushTail([]byte(s))
	}
	removed := l.RemoveMatching([]byte("x"), 2)
	assert.Equal(t, 2, removed)
	assert.Equal(t, [][]byte{[]byte("y"), []byte("x"), []byte("y")}, l.ToSlice())
}

func TestListRemoveMatchingTailToHead(t *testing.T) {
	l := NewList()
	for _, s := range []string{"x", "y", "x", "x", "y"} {
		l.PushTail([]byte(s))
	}
	removed := l.RemoveMatching([]byte("x"), -2)
	assert.Equal(t, 2, removed)
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y"), []byte("y")}, l.ToSlice())
}

func TestListInsertBeforeAfter(t *testing.T) {
	l := NewList()
	l.PushTail([]byte("a"))
	l.PushTail([]byte("c"))
	n := l.FindNode([]byte("c"), true)
	require.NotNil(t, n)
	l.InsertBefore(n, []byte("b"))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, l.ToSlice())
}
