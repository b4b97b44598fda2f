package engine

import (
	"testing"

	"redis/internal/db"
	"redis/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLPushRPushAndRange(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	n, err := RPush(d, limits, "key", []byte("a"), []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = LPush(d, limits, "key", []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out, err := LRange(d, "key", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("z"), []byte("a"), []byte("b")}, out)
}

func TestLPopRPop(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	RPush(d, limits, "key", []byte("a"), []byte("b"), []byte("c"))

	popped, err := LPop(d, "key", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, popped)

	popped, err = RPop(d, "key", 1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("c")}, popped)

	n, _ := LLen(d, "key")
	assert.Equal(t, 0, n)
}

func TestListPromotesToLinkedListOnLargeEntries(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.Limits{ListMaxEntries: 128, ListMaxValue: 8}

	RPush(d, limits, "key", []byte("short"))
	v, err := lookupList(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncZiplist, v.Encoding)

	RPush(d, limits, "key", []byte("this-value-is-long"))
	v, err = lookupList(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncLinkedList, v.Encoding)
}

func TestListPromotesOnEntryCount(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.Limits{ListMaxEntries: 2, ListMaxValue: 64}

	RPush(d, limits, "key", []byte("a"), []byte("b"))
	v, _ := lookupList(d, "key")
	assert.Equal(t, storage.EncZiplist, v.Encoding)

	RPush(d, limits, "key", []byte("c"))
	v, _ = lookupList(d, "key")
	assert.Equal(t, storage.EncLinkedList, v.Encoding)
}

func TestLSetAndLIndex(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	RPush(d, limits, "key", []byte("a"), []byte("b"), []byte("c"))

	err := LSet(d, limits, "key", 1, []byte("B"))
	require.NoError(t, err)

	v, err := LIndex(d, "key", 1)
	require.NoError(t, err)
	assert.Equal(t, "B", string(v))

	v, err = LIndex(d, "key", -1)
	require.NoError(t, err)
	assert.Equal(t, "c", string(v))
}

func TestLTrim(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	RPush(d, limits, "key", []byte("a"), []byte("b"), []byte("c"), []byte("d"))

	err := LTrim(d, "key", 1, 2)
	require.NoError(t, err)

	out, _ := LRange(d, "key", 0, -1)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, out)
}

func TestLRem(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	RPush(d, limits, "key", []byte("x"), []byte("y"), []byte("x"))

	removed, err := LRem(d, "key", 1, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	out, _ := LRange(d, "key", 0, -1)
	assert.Equal(t, [][]byte{[]byte("y"), []byte("x")}, out)
}

func TestLInsert(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	RPush(d, limits, "key", []byte("a"), []byte("c"))

	n, err := LInsert(d, limits, "key", true, []byte("c"), []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out, _ := LRange(d, "key", 0, -1)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, out)
}

func TestRPopLPush(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	RPush(d, limits, "src", []byte("a"), []byte("b"))

	moved, err := RPopLPush(d, limits, "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, "b", string(moved))

	out, _ := LRange(d, "dst", 0, -1)
	assert.Equal(t, [][]byte{[]byte("b")}, out)
}
