package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redis/internal/db"
	"redis/internal/storage"
)

func TestCronTickReapsExpiredKeys(t *testing.T) {
	disp := newTestDispatcher()
	d := disp.Keyspace.DB(0)
	d.Set("gone", storage.NewStringValue([]byte("bye")))
	require.True(t, d.SetExpireAt("gone", time.Now().Add(-time.Second).UnixMilli()))

	disp.cronTick(DefaultCronConfig())

	assert.False(t, d.Exists("gone"))
}

func TestCronTickIsSafeWithoutAOF(t *testing.T) {
	disp := newTestDispatcher()
	assert.NotPanics(t, func() {
		disp.cronTick(DefaultCronConfig())
	})
}

func TestCronTickUpdatesKeyspaceUsedMemoryTracking(t *testing.T) {
	ks := db.NewKeyspace(1, 0, db.PolicyNoEviction, 5)
	disp := NewDispatcher(ks, nil, storage.DefaultLimits(), "")
	d := disp.Keyspace.DB(0)
	d.Set("k", storage.NewStringValue([]byte("v")))

	before := disp.Keyspace.UsedBytes()
	disp.cronTick(DefaultCronConfig())
	after := disp.Keyspace.UsedBytes()

	assert.GreaterOrEqual(t, after, before)
}
