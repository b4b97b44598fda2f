package dispatch

import (
	"context"
	"time"

	"redis/internal/logging"
	"redis/internal/metrics"
)

// CronConfig carries the periodic-loop tunables (§4.9) that aren't fixed
// constants: the tick rate itself and the AOF auto-rewrite growth trigger.
type CronConfig struct {
	TickRate              time.Duration // default 10 Hz, i.e. 100ms
	RehashStepsPerTick    int
	ActiveExpireSamples   int
	ActiveExpireBudget    time.Duration
	AutoRewritePercentage int   // 0 disables the growth trigger
	AutoRewriteMinSize    int64
}

// DefaultCronConfig returns a 10Hz tick, one incremental-rehash step per
// DB per tick (a fixed step count, not a time budget), and active
// expiration sampling up to 20 keys per round bounded by a quarter of the
// tick.
func DefaultCronConfig() CronConfig {
	return CronConfig{
		TickRate:              100 * time.Millisecond,
		RehashStepsPerTick:    1,
		ActiveExpireSamples:   20,
		ActiveExpireBudget:    25 * time.Millisecond,
		AutoRewritePercentage: 100,
		AutoRewriteMinSize:    64 * 1024,
	}
}

// RunCron drives the periodic maintenance loop (§4.9) on its own
// goroutine until ctx is cancelled: incremental rehashing and opportunistic
// shrinking, active expiration, eviction once over the memory cap, ready-key
// delivery to blocked waiters, the AOF growth-triggered rewrite, and the
// gauges that mirror all of it.
func (disp *Dispatcher) RunCron(ctx context.Context, cfg CronConfig) {
	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			disp.cronTick(cfg)
		}
	}
}

func (disp *Dispatcher) cronTick(cfg CronConfig) {
	for i := 0; i < disp.Keyspace.Len(); i++ {
		d := disp.Keyspace.DB(i)

		d.RehashStep(cfg.RehashStepsPerTick)
		d.ShrinkIfSparse()
		metrics.SetRehashInProgress(i, d.IsRehashing())

		for _, key := range d.ActiveExpireCycle(cfg.ActiveExpireSamples, cfg.ActiveExpireBudget) {
			metrics.IncrExpired()
			logging.KeyExpired(key, i)
			disp.propagateExpire(i, key)
		}

		// Blocking list commands (BLPOP/BRPOP/BRPOPLPUSH) poll the key
		// directly rather than waiting on a cron-delivered wakeup, so
		// ready-key state only needs to be drained here to keep the
		// per-tick bookkeeping in db.Database from growing unbounded.
		d.DrainReady()

		metrics.SetKeyCount(i, d.Len())
	}

	if disp.Keyspace.OverCap() {
		for _, ev := range disp.Keyspace.EvictUntilUnderCap() {
			metrics.IncrEvicted()
			logging.KeyEvicted(ev.Key, ev.DBIndex, disp.Keyspace.Policy.String())
			disp.propagateExpire(ev.DBIndex, ev.Key)
		}
	}
	metrics.SetMemoryUsed(disp.Keyspace.UsedBytes())

	disp.mu.Lock()
	clients := len(disp.clientDB)
	disp.mu.Unlock()
	metrics.SetConnectedClients(clients)

	disp.maybeAutoRewrite(cfg)
}

// propagateExpire mirrors an actively-expired or evicted key to the AOF as
// a synthetic DEL. Keys removed by lazy expiration on lookup do not pass
// through here and are not mirrored.
func (disp *Dispatcher) propagateExpire(dbIndex int, key string) {
	if disp.AOF == nil {
		return
	}
	if err := disp.AOF.WriteCommand(dbIndex, []string{"DEL", key}); err != nil {
		logging.Warn("aof expire propagate failed", err)
	}
}

// maybeAutoRewrite starts a background rewrite once the AOF has grown by
// AutoRewritePercentage over its size at the last rewrite and has crossed
// AutoRewriteMinSize, matching spec.md §4.9's growth trigger.
func (disp *Dispatcher) maybeAutoRewrite(cfg CronConfig) {
	if disp.AOF == nil || cfg.AutoRewritePercentage <= 0 {
		return
	}
	stats := disp.AOF.GetStats()
	if stats.TotalBytes < cfg.AutoRewriteMinSize {
		return
	}

	disp.mu.Lock()
	base := disp.lastRewriteSize
	rewriting := disp.rewriting
	disp.mu.Unlock()

	if rewriting {
		return
	}
	threshold := base + (base*int64(cfg.AutoRewritePercentage))/100
	if base > 0 && stats.TotalBytes < threshold {
		return
	}

	disp.mu.Lock()
	disp.rewriting = true
	disp.mu.Unlock()

	go func() {
		defer func() {
			disp.mu.Lock()
			disp.rewriting = false
			disp.mu.Unlock()
		}()
		if err := disp.rewriteAOF(); err != nil {
			logging.Warn("auto aof rewrite failed", err)
			return
		}
		after := disp.AOF.GetStats()
		disp.mu.Lock()
		disp.lastRewriteSize = after.TotalBytes
		disp.lastSave = time.Now()
		disp.mu.Unlock()
	}()
}
