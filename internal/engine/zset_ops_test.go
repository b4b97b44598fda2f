package engine

import (
	"testing"

	"redis/internal/db"
	"redis/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZAddAndZScore(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	added, err := ZAdd(d, limits, "key", []storage.ZSetMember{{Member: "a", Score: 1}, {Member: "b", Score: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	score, ok, err := ZScore(d, "key", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, score)
}

func TestZSetPromotesOnEntryCount(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.Limits{ZSetMaxEntries: 2, ZSetMaxValue: 64}

	ZAdd(d, limits, "key", []storage.ZSetMember{{Member: "a", Score: 1}, {Member: "b", Score: 2}})
	v, err := lookupZSet(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncZiplist, v.Encoding)

	ZAdd(d, limits, "key", []storage.ZSetMember{{Member: "c", Score: 3}})
	v, err = lookupZSet(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncSkiplist, v.Encoding)
}

func TestZRangeOrdering(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	ZAdd(d, limits, "key", []storage.ZSetMember{
		{Member: "low", Score: 1},
		{Member: "mid", Score: 5},
		{Member: "high", Score: 10},
	})

	out, err := ZRange(d, "key", 0, -1, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "low", out[0].Member)
	assert.Equal(t, "high", out[2].Member)
}

func TestZRankAfterPromotion(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.Limits{ZSetMaxEntries: 1, ZSetMaxValue: 64}
	ZAdd(d, limits, "key", []storage.ZSetMember{{Member: "a", Score: 1}})
	ZAdd(d, limits, "key", []storage.ZSetMember{{Member: "b", Score: 2}})

	rank, err := ZRank(d, "key", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
}

func TestZIncrBy(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	next, err := ZIncrBy(d, limits, "key", "member", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, next)

	next, err = ZIncrBy(d, limits, "key", "member", -2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, next)
}

func TestZRem(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	ZAdd(d, limits, "key", []storage.ZSetMember{{Member: "a", Score: 1}})

	removed, err := ZRem(d, "key", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, _ := ZCard(d, "key")
	assert.Equal(t, 0, n)
}

func TestZRangeByScore(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	ZAdd(d, limits, "key", []storage.ZSetMember{
		{Member: "a", Score: 1},
		{Member: "b", Score: 5},
		{Member: "c", Score: 10},
	})

	out, err := ZRangeByScore(d, "key", 2, 10, 0, -1, false, false, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Member)
	assert.Equal(t, "c", out[1].Member)
}

func TestZRangeByScoreExclusive(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	ZAdd(d, limits, "key", []storage.ZSetMember{
		{Member: "a", Score: 1},
		{Member: "b", Score: 2},
		{Member: "c", Score: 3},
	})

	out, err := ZRangeByScore(d, "key", 1, 3, 0, -1, false, true, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Member)
	assert.Equal(t, "c", out[1].Member)
}
