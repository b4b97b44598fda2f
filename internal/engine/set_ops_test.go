package engine

import (
	"testing"

	"redis/internal/db"
	"redis/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAddAndSIsMember(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	added, err := SAdd(d, limits, "key", []byte("1"), []byte("2"), []byte("2"))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	ok, err := SIsMember(d, "key", []byte("1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = SIsMember(d, "key", []byte("3"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetPromotesOnNonIntegerMember(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()

	SAdd(d, limits, "key", []byte("1"), []byte("2"))
	v, err := lookupSet(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncIntset, v.Encoding)

	SAdd(d, limits, "key", []byte("not-an-int"))
	v, err = lookupSet(d, "key")
	require.NoError(t, err)
	assert.Equal(t, storage.EncHashTable, v.Encoding)
}

func TestSetPromotesOnIntsetCapExceeded(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.Limits{SetMaxIntset: 2}

	SAdd(d, limits, "key", []byte("1"), []byte("2"))
	v, _ := lookupSet(d, "key")
	assert.Equal(t, storage.EncIntset, v.Encoding)

	SAdd(d, limits, "key", []byte("3"))
	v, _ = lookupSet(d, "key")
	assert.Equal(t, storage.EncHashTable, v.Encoding)
}

func TestSRem(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	SAdd(d, limits, "key", []byte("1"), []byte("2"))

	removed, err := SRem(d, "key", []byte("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, _ := SCard(d, "key")
	assert.Equal(t, 1, n)
}

func TestSMove(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	SAdd(d, limits, "src", []byte("1"))

	moved, err := SMove(d, limits, "src", "dst", []byte("1"))
	require.NoError(t, err)
	assert.True(t, moved)

	ok, _ := SIsMember(d, "dst", []byte("1"))
	assert.True(t, ok)
	ok, _ = SIsMember(d, "src", []byte("1"))
	assert.False(t, ok)
}

func TestSInterUnionDiff(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	SAdd(d, limits, "a", []byte("1"), []byte("2"), []byte("3"))
	SAdd(d, limits, "b", []byte("2"), []byte("3"), []byte("4"))

	inter, err := SInter(d, []string{"a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("2"), []byte("3")}, inter)

	union, err := SUnion(d, []string{"a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("1"), []byte("2"), []byte("3"), []byte("4")}, union)

	diff, err := SDiff(d, []string{"a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("1")}, diff)
}

func TestSInterStore(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	SAdd(d, limits, "a", []byte("1"), []byte("2"))
	SAdd(d, limits, "b", []byte("2"), []byte("3"))

	n, err := SInterStore(d, limits, "dest", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, _ := SIsMember(d, "dest", []byte("2"))
	assert.True(t, ok)
}

func TestSPopRemovesMembers(t *testing.T) {
	d := db.NewDatabase(0)
	limits := storage.DefaultLimits()
	SAdd(d, limits, "key", []byte("1"), []byte("2"), []byte("3"))

	popped, err := SPop(d, "key", 2)
	require.NoError(t, err)
	assert.Len(t, popped, 2)

	n, _ := SCard(d, "key")
	assert.Equal(t, 1, n)
}
