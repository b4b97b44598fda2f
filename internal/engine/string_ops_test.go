package engine

import (
	"math"
	"strconv"
	"testing"

	"redis/internal/db"
	"redis/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "key", []byte("hello"))

	v, err := Get(d, "key")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(v))
}

func TestGetWrongType(t *testing.T) {
	d := db.NewDatabase(0)
	if _, err := LPush(d, storage.DefaultLimits(), "key", []byte("a")); err != nil {
		t.Fatal(err)
	}
	_, err := Get(d, "key")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestAppendCreatesAndExtends(t *testing.T) {
	d := db.NewDatabase(0)
	n, err := Append(d, "key", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = Append(d, "key", []byte(" world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	v, _ := Get(d, "key")
	assert.Equal(t, "hello world", string(v))
}

func TestIncrByOnAbsentKey(t *testing.T) {
	d := db.NewDatabase(0)
	n, err := IncrBy(d, "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = IncrBy(d, "counter", -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestIncrByNonIntegerFails(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "key", []byte("notanumber"))
	_, err := IncrBy(d, "key", 1)
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestIncrByOverflowLeavesValueUnchanged(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "counter", []byte(strconv.FormatInt(math.MaxInt64, 10)))

	_, err := IncrBy(d, "counter", 1)
	assert.ErrorIs(t, err, ErrIncrOverflow)

	v, _ := Get(d, "counter")
	assert.Equal(t, strconv.FormatInt(math.MaxInt64, 10), string(v))
}

func TestIncrByUnderflowLeavesValueUnchanged(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "counter", []byte(strconv.FormatInt(math.MinInt64, 10)))

	_, err := IncrBy(d, "counter", -1)
	assert.ErrorIs(t, err, ErrIncrOverflow)
}

func TestIncrByFloatRejectsInfinity(t *testing.T) {
	d := db.NewDatabase(0)
	_, err := IncrByFloat(d, "key", math.Inf(1))
	assert.ErrorIs(t, err, ErrNaNOrInfinity)

	_, ok := d.Lookup("key")
	assert.False(t, ok)
}

func TestIncrByFloat(t *testing.T) {
	d := db.NewDatabase(0)
	n, err := IncrByFloat(d, "key", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, n)

	n, err = IncrByFloat(d, "key", 2.25)
	require.NoError(t, err)
	assert.Equal(t, 3.75, n)
}

func TestGetRangeNegativeIndices(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "key", []byte("Hello World"))
	v, err := GetRange(d, "key", -5, -1)
	require.NoError(t, err)
	assert.Equal(t, "World", string(v))
}

func TestSetRangePadsWithZeros(t *testing.T) {
	d := db.NewDatabase(0)
	n, err := SetRange(d, "key", 5, []byte("World"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	v, _ := Get(d, "key")
	assert.Equal(t, "\x00\x00\x00\x00\x00World", string(v))
}

func TestSetBitAndGetBit(t *testing.T) {
	d := db.NewDatabase(0)
	old, err := SetBit(d, "key", 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, old)

	bit, err := GetBit(d, "key", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, bit)

	v, _ := Get(d, "key")
	assert.Equal(t, byte(0x01), v[0])
}

func TestBitCount(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "key", []byte("foobar"))
	count, err := BitCount(d, "key", false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 26, count)
}

func TestBitOpAnd(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "a", []byte{0b1100})
	Set(d, "b", []byte{0b1010})

	n, err := BitOp(d, BitOpAnd, "dest", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, _ := Get(d, "dest")
	assert.Equal(t, byte(0b1000), v[0])
}

func TestStrLen(t *testing.T) {
	d := db.NewDatabase(0)
	Set(d, "key", []byte("hello"))
	n, err := StrLen(d, "key")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
