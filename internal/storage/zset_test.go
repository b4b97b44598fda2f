package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZSetAddAndScore(t *testing.T) {
	z := NewZSet()
	assert.True(t, z.Add("alice", 10))
	assert.True(t, z.Add("bob", 5))
	assert.False(t, z.Add("alice", 20)) // existing member, score update

	score, ok := z.Score("alice")
	require.True(t, ok)
	assert.Equal(t, 20.0, score)
}

func TestZSetRankOrdering(t *testing.T) {
	z := NewZSet()
	z.Add("low", 1)
	z.Add("mid", 5)
	z.Add("high", 10)

	assert.Equal(t, 0, z.Rank("low"))
	assert.Equal(t, 1, z.Rank("mid"))
	assert.Equal(t, 2, z.Rank("high"))
}

func TestZSetIncrBy(t *testing.T) {
	z := NewZSet()
	next := z.IncrBy("counter", 5)
	assert.Equal(t, 5.0, next)
	next = z.IncrBy("counter", -2)
	assert.Equal(t, 3.0, next)
}

func TestZSetRangeByRank(t *testing.T) {
	z := NewZSet()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)

	all := z.RangeByRank(0, -1, false)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Member)
	assert.Equal(t, "c", all[2].Member)

	rev := z.RangeByRank(0, -1, true)
	assert.Equal(t, "c", rev[0].Member)
}

func TestZSetRemove(t *testing.T) {
	z := NewZSet()
	z.Add("a", 1)
	assert.True(t, z.Remove("a"))
	assert.False(t, z.Remove("a"))
	assert.Equal(t, 0, z.Len())
}

func TestZSetClone(t *testing.T) {
	z := NewZSet()
	z.Add("a", 1)

	clone := z.clone()
	clone.Add("b", 2)

	assert.Equal(t, 1, z.Len())
	assert.Equal(t, 2, clone.Len())
}
