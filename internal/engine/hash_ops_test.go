package engine

import (
	"testing"

	"redis/internal/db"
	"redis/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSetAndHGet(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	added, err := HSet(d, limits, "key", []byte("field"), []byte("value"))
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	v, err := HGet(d, "key", []byte("field"))
	require.NoError(t, err)
	assert.Equal(t, "value", string(v))
}

func TestHSetOverwriteDoesNotCountAsNew(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	HSet(d, limits, "key", []byte("field"), []byte("v1"))
	added, err := HSet(d, limits, "key", []byte("field"), []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	v, _ := HGet(d, "key", []byte("field"))
	assert.Equal(t, "v2", string(v))
}

func TestHDel(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	HSet(d, limits, "key", []byte("a"), []byte("1"), []byte("b"), []byte("2"))

	removed, err := HDel(d, "key", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, _ := HLen(d, "key")
	assert.Equal(t, 1, n)
}

func TestHashPromotesToHashTableOnLargeValue(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.Limits{HashMaxEntries: 128, HashMaxValue: 8}

	HSet(d, limits, "key", []byte("field"), []byte("short"))
	v, err := lookupHash(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncZiplist, v.Encoding)

	HSet(d, limits, "key", []byte("field2"), []byte("this-value-is-long"))
	v, err = lookupHash(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncHashTable, v.Encoding)
}

func TestHGetAllAndKeysVals(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	HSet(d, limits, "key", []byte("a"), []byte("1"), []byte("b"), []byte("2"))

	keys, err := HKeys(d, "key")
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("a"), []byte("b")}, keys)

	vals, err := HVals(d, "key")
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("1"), []byte("2")}, vals)
}

func TestHIncrBy(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	n, err := HIncrBy(d, limits, "key", []byte("counter"), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = HIncrBy(d, limits, "key", []byte("counter"), -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestHIncrByNonIntegerFails(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	HSet(d, limits, "key", []byte("field"), []byte("notanumber"))

	_, err := HIncrBy(d, limits, "key", []byte("field"), 1)
	assert.ErrorIs(t, err, ErrHashValueNotInteger)
}

func TestHExists(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	HSet(d, limits, "key", []byte("field"), []byte("value"))

	ok, err := HExists(d, "key", []byte("field"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HExists(d, "key", []byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}
