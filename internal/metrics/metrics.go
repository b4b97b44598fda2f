// Package metrics exposes the store's runtime counters as Prometheus
// metrics (C12): command throughput, keyspace size, memory usage, and
// AOF/rewrite activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_commands_total",
		Help: "Total commands processed, labeled by command name and outcome.",
	}, []string{"command", "outcome"})

	commandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_command_duration_seconds",
		Help:    "Command execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	keysTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "store_keys_total",
		Help: "Number of live keys per database.",
	}, []string{"db"})

	expiredKeysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_expired_keys_total",
		Help: "Total keys removed by active expiration.",
	})

	evictedKeysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_evicted_keys_total",
		Help: "Total keys removed by the maxmemory eviction policy.",
	})

	memoryUsedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "store_memory_used_bytes",
		Help: "Approximate memory used by stored values.",
	})

	processRSSBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "store_process_rss_bytes",
		Help: "Resident set size of the server process.",
	})

	aofRewritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_aof_rewrites_total",
		Help: "Total completed AOF background rewrites.",
	})

	aofBufferedCommands = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "store_aof_rewrite_buffer_commands",
		Help: "Commands currently queued in the AOF rewrite buffer.",
	})

	rehashInProgress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "store_rehash_in_progress",
		Help: "1 while a database's dict is mid incremental rehash, 0 otherwise.",
	}, []string{"db"})

	connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "store_connected_clients",
		Help: "Number of currently connected clients.",
	})
)

func init() {
	prometheus.MustRegister(
		commandsTotal, commandDuration, keysTotal, expiredKeysTotal,
		evictedKeysTotal, memoryUsedBytes, processRSSBytes,
		aofRewritesTotal, aofBufferedCommands, rehashInProgress, connectedClients,
	)
}

// ObserveCommand records one dispatched command's outcome and latency.
func ObserveCommand(name string, outcome string, elapsed time.Duration) {
	commandsTotal.WithLabelValues(name, outcome).Inc()
	commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// SetKeyCount updates the live-key gauge for a database index.
func SetKeyCount(dbIndex int, n int) {
	keysTotal.WithLabelValues(dbIndexLabel(dbIndex)).Set(float64(n))
}

func dbIndexLabel(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	// Falls back to a generic label for unusually large db indexes.
	return "n"
}

// IncrExpired counts one actively expired key (the cron is its only
// caller; lazy expiration on lookup is not counted).
func IncrExpired() { expiredKeysTotal.Inc() }

// IncrEvicted counts one key removed by the eviction policy.
func IncrEvicted() { evictedKeysTotal.Inc() }

// SetMemoryUsed updates the approximate-memory gauge.
func SetMemoryUsed(bytes int64) { memoryUsedBytes.Set(float64(bytes)) }

// SetProcessRSS updates the process RSS gauge (fed by gopsutil sampling).
func SetProcessRSS(bytes uint64) { processRSSBytes.Set(float64(bytes)) }

// IncrAOFRewrite counts one completed background rewrite.
func IncrAOFRewrite() { aofRewritesTotal.Inc() }

// SetAOFBufferedCommands updates the rewrite-buffer depth gauge.
func SetAOFBufferedCommands(n int) { aofBufferedCommands.Set(float64(n)) }

// SetRehashInProgress flags whether dbIndex's dict is mid rehash.
func SetRehashInProgress(dbIndex int, inProgress bool) {
	v := 0.0
	if inProgress {
		v = 1.0
	}
	rehashInProgress.WithLabelValues(dbIndexLabel(dbIndex)).Set(v)
}

// SetConnectedClients updates the connected-clients gauge.
func SetConnectedClients(n int) { connectedClients.Set(float64(n)) }

// ServeHTTP exposes /metrics on addr in a background goroutine, mirroring
// the pack's standalone-endpoint pattern for opt-in telemetry.
func ServeHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
