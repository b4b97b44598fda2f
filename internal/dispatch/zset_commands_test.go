package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedZSet(t *testing.T, disp *Dispatcher, key string, members ...string) {
	t.Helper()
	args := append([]string{"ZADD", key}, members...)
	_, err := disp.Execute(1, args)
	require.NoError(t, err)
}

func TestZRangeByScoreExclusiveEndpoint(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "s", "1", "a", "2", "b", "3", "c")

	reply, err := disp.Execute(1, []string{"ZRANGEBYSCORE", "s", "(1", "3"})
	require.NoError(t, err)
	out, ok := reply.([]interface{})
	require.True(t, ok)
	require.Len(t, out, 2)
	assert.Equal(t, []byte("b"), out[0])
	assert.Equal(t, []byte("c"), out[1])
}

func TestZCountExclusiveEndpoint(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "s", "1", "a", "2", "b", "3", "c")

	reply, err := disp.Execute(1, []string{"ZCOUNT", "s", "(1", "(3"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply)
}

func TestZRemRangeByScoreExclusiveEndpoint(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "s", "1", "a", "2", "b", "3", "c")

	reply, err := disp.Execute(1, []string{"ZREMRANGEBYSCORE", "s", "(1", "3"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), reply)

	reply, err = disp.Execute(1, []string{"ZRANGE", "s", "0", "-1"})
	require.NoError(t, err)
	out, ok := reply.([]interface{})
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("a"), out[0])
}

func TestZUnionStoreDefaultSumWeightOne(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "a", "1", "x", "2", "y")
	seedZSet(t, disp, "b", "3", "y", "4", "z")

	reply, err := disp.Execute(1, []string{"ZUNIONSTORE", "dest", "2", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), reply)

	score, err := disp.Execute(1, []string{"ZSCORE", "dest", "y"})
	require.NoError(t, err)
	assert.Equal(t, []byte("5"), score)
}

func TestZUnionStoreWeightsAndAggregate(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "a", "1", "x")
	seedZSet(t, disp, "b", "5", "x")

	reply, err := disp.Execute(1, []string{"ZUNIONSTORE", "dest", "2", "a", "b", "WEIGHTS", "2", "1", "AGGREGATE", "MAX"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply)

	score, err := disp.Execute(1, []string{"ZSCORE", "dest", "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte("5"), score)
}

func TestZUnionStoreSumOfInfinitiesCoercesToZero(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "a", "+inf", "x")
	seedZSet(t, disp, "b", "-inf", "x")

	reply, err := disp.Execute(1, []string{"ZUNIONSTORE", "dest", "2", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply)

	score, err := disp.Execute(1, []string{"ZSCORE", "dest", "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), score)
}

func TestZInterStoreIntersectsMembership(t *testing.T) {
	disp := newTestDispatcher()
	seedZSet(t, disp, "a", "1", "x", "2", "y")
	seedZSet(t, disp, "b", "10", "y")

	reply, err := disp.Execute(1, []string{"ZINTERSTORE", "dest", "2", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply)

	score, err := disp.Execute(1, []string{"ZSCORE", "dest", "y"})
	require.NoError(t, err)
	assert.Equal(t, []byte("12"), score)
}
