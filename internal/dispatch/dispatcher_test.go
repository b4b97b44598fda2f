package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redis/internal/db"
	"redis/internal/storage"
)

func newTestDispatcher() *Dispatcher {
	ks := db.NewKeyspace(4, 0, db.PolicyNoEviction, 5)
	return NewDispatcher(ks, nil, storage.DefaultLimits(), "")
}

func TestExecuteSetGet(t *testing.T) {
	disp := newTestDispatcher()

	reply, err := disp.Execute(1, []string{"SET", "foo", "bar"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = disp.Execute(1, []string{"GET", "foo"})
	require.NoError(t, err)
	assert.Equal(t, []byte("bar"), reply)
}

func TestExecuteUnknownCommand(t *testing.T) {
	disp := newTestDispatcher()
	_, err := disp.Execute(1, []string{"NOTACOMMAND"})
	assert.Error(t, err)
}

func TestExecuteWrongArity(t *testing.T) {
	disp := newTestDispatcher()
	_, err := disp.Execute(1, []string{"SET", "onlykey"})
	assert.Error(t, err)
}

func TestExecuteSelectIsPerClient(t *testing.T) {
	disp := newTestDispatcher()

	_, err := disp.Execute(1, []string{"SELECT", "2"})
	require.NoError(t, err)
	_, err = disp.Execute(1, []string{"SET", "k", "v"})
	require.NoError(t, err)

	// client 2 never selected, stays on db 0 and shouldn't see client 1's key.
	reply, err := disp.Execute(2, []string{"GET", "k"})
	require.NoError(t, err)
	assert.Nil(t, reply)

	reply, err = disp.Execute(1, []string{"GET", "k"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), reply)
}

func TestMultiExecQueuesAndRuns(t *testing.T) {
	disp := newTestDispatcher()

	reply, err := disp.Execute(1, []string{"MULTI"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = disp.Execute(1, []string{"SET", "a", "1"})
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", reply)

	reply, err = disp.Execute(1, []string{"INCR", "a"})
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", reply)

	reply, err = disp.Execute(1, []string{"EXEC"})
	require.NoError(t, err)
	results, ok := reply.([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "OK", results[0])
	assert.Equal(t, int64(2), results[1])
}

func TestExecWithoutMultiErrors(t *testing.T) {
	disp := newTestDispatcher()
	_, err := disp.Execute(1, []string{"EXEC"})
	assert.Error(t, err)
}

func TestWatchAbortsExecOnConcurrentModification(t *testing.T) {
	disp := newTestDispatcher()

	_, err := disp.Execute(1, []string{"SET", "watched", "1"})
	require.NoError(t, err)

	_, err = disp.Execute(1, []string{"WATCH", "watched"})
	require.NoError(t, err)

	_, err = disp.Execute(1, []string{"MULTI"})
	require.NoError(t, err)
	_, err = disp.Execute(1, []string{"GET", "watched"})
	require.NoError(t, err)

	// a different client modifies the watched key before EXEC.
	_, err = disp.Execute(2, []string{"SET", "watched", "2"})
	require.NoError(t, err)

	reply, err := disp.Execute(1, []string{"EXEC"})
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestRemoveClientClearsTransactionState(t *testing.T) {
	disp := newTestDispatcher()

	_, err := disp.Execute(1, []string{"MULTI"})
	require.NoError(t, err)
	disp.RemoveClient(1)

	// a fresh MULTI should work cleanly, proving the old transaction state
	// was torn down rather than leaking TxStarted across "reconnects".
	reply, err := disp.Execute(1, []string{"MULTI"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)
}
