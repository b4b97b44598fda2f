package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDBIndexLabel(t *testing.T) {
	assert.Equal(t, "0", dbIndexLabel(0))
	assert.Equal(t, "9", dbIndexLabel(9))
	assert.Equal(t, "n", dbIndexLabel(10))
	assert.Equal(t, "n", dbIndexLabel(16))
}

func TestSetKeyCountUpdatesGauge(t *testing.T) {
	SetKeyCount(0, 42)
	assert.Equal(t, float64(42), testutil.ToFloat64(keysTotal.WithLabelValues("0")))
}

func TestSetRehashInProgressTogglesGauge(t *testing.T) {
	SetRehashInProgress(1, true)
	assert.Equal(t, float64(1), testutil.ToFloat64(rehashInProgress.WithLabelValues("1")))
	SetRehashInProgress(1, false)
	assert.Equal(t, float64(0), testutil.ToFloat64(rehashInProgress.WithLabelValues("1")))
}

func TestIncrExpiredAndEvicted(t *testing.T) {
	before := testutil.ToFloat64(expiredKeysTotal)
	IncrExpired()
	assert.Equal(t, before+1, testutil.ToFloat64(expiredKeysTotal))

	before = testutil.ToFloat64(evictedKeysTotal)
	IncrEvicted()
	assert.Equal(t, before+1, testutil.ToFloat64(evictedKeysTotal))
}

func TestObserveCommandRecordsOutcome(t *testing.T) {
	before := testutil.ToFloat64(commandsTotal.WithLabelValues("GET", "ok"))
	ObserveCommand("GET", "ok", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(commandsTotal.WithLabelValues("GET", "ok")))
}
