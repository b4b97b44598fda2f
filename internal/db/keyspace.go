package db

import "redis/internal/storage"

// EvictionPolicy selects which keys the keyspace sacrifices once used
// memory exceeds its cap (§4.6).
type EvictionPolicy int

const (
	PolicyNoEviction EvictionPolicy = iota
	PolicyAllKeysLRU
	PolicyVolatileLRU
	PolicyAllKeysRandom
	PolicyVolatileRandom
	PolicyVolatileTTL
)

// ParseEvictionPolicy maps a maxmemory-policy config string to its enum,
// matching spec.md §6.4's enumerated values.
func ParseEvictionPolicy(s string) (EvictionPolicy, bool) {
	switch s {
	case "noeviction":
		return PolicyNoEviction, true
	case "allkeys-lru":
		return PolicyAllKeysLRU, true
	case "volatile-lru":
		return PolicyVolatileLRU, true
	case "allkeys-random":
		return PolicyAllKeysRandom, true
	case "volatile-random":
		return PolicyVolatileRandom, true
	case "volatile-ttl":
		return PolicyVolatileTTL, true
	default:
		return 0, false
	}
}

// String renders the policy as its maxmemory-policy config string.
func (p EvictionPolicy) String() string {
	switch p {
	case PolicyNoEviction:
		return "noeviction"
	case PolicyAllKeysLRU:
		return "allkeys-lru"
	case PolicyVolatileLRU:
		return "volatile-lru"
	case PolicyAllKeysRandom:
		return "allkeys-random"
	case PolicyVolatileRandom:
		return "volatile-random"
	case PolicyVolatileTTL:
		return "volatile-ttl"
	default:
		return "unknown"
	}
}

// Evicted records one key removed by the eviction policy, for mirroring a
// synthetic DEL to the AOF.
type Evicted struct {
	DBIndex int
	Key     string
}

// Keyspace owns every numbered database partition and the cross-database
// memory cap that gates admission of denies-OOM commands.
type Keyspace struct {
	dbs            []*Database
	MaxMemoryBytes int64 // 0 disables the cap
	Policy         EvictionPolicy
	Samples        int // candidates considered per eviction step, like maxmemory-samples
}

// NewKeyspace creates numDBs empty partitions sharing one memory cap and
// eviction policy.
func NewKeyspace(numDBs int, maxMemoryBytes int64, policy EvictionPolicy, samples int) *Keyspace {
	dbs := make([]*Database, numDBs)
	for i := range dbs {
		dbs[i] = NewDatabase(i)
	}
	if samples <= 0 {
		samples = 5
	}
	return &Keyspace{dbs: dbs, MaxMemoryBytes: maxMemoryBytes, Policy: policy, Samples: samples}
}

// DB returns the numbered partition (caller is responsible for bounds).
func (k *Keyspace) DB(index int) *Database { return k.dbs[index] }

// Len returns the number of configured databases.
func (k *Keyspace) Len() int { return len(k.dbs) }

// SetNotifier wires the same dirty-CAS notifier into every partition.
func (k *Keyspace) SetNotifier(n DirtyCASNotifier) {
	for _, d := range k.dbs {
		d.SetNotifier(n)
	}
}

// UsedBytes sums the approximate footprint of every live value across
// every database — the figure the eviction bound is checked against,
// independent of the informational process-RSS gauge (C11). It is
// recomputed by walking every key on each call; no running counter is kept.
func (k *Keyspace) UsedBytes() int64 {
	var total int64
	for _, d := range k.dbs {
		d.Each(func(_ string, v *storage.Value) {
			total += int64(v.ApproxBytes())
		})
	}
	return total
}

// OverCap reports whether the keyspace currently exceeds its configured
// memory cap (always false if no cap is configured).
func (k *Keyspace) OverCap() bool {
	return k.MaxMemoryBytes > 0 && k.UsedBytes() > k.MaxMemoryBytes
}

// EvictUntilUnderCap evicts keys by policy until used memory is at or
// under the cap, or until eviction can no longer make progress (e.g. a
// volatile policy finds no keys with a TTL). Returns every key evicted,
// in eviction order, for AOF/metrics propagation. A PolicyNoEviction
// keyspace never evicts; callers must refuse the triggering command with
// an OOM error instead.
func (k *Keyspace) EvictUntilUnderCap() []Evicted {
	if k.Policy == PolicyNoEviction {
		return nil
	}

	var evicted []Evicted
	for k.OverCap() {
		dbIndex, key, ok := k.pickVictim()
		if !ok {
			break
		}
		k.dbs[dbIndex].ForceDelete(key)
		evicted = append(evicted, Evicted{DBIndex: dbIndex, Key: key})
	}
	return evicted
}

func (k *Keyspace) pickVictim() (int, string, bool) {
	bestDB := -1
	var bestKey string
	var bestScore int64 = -1
	found := false

	for i, d := range k.dbs {
		candidates := k.candidateKeys(d)
		for _, key := range candidates {
			score := k.evictionScore(d, key)
			if !found || score > bestScore {
				bestDB, bestKey, bestScore, found = i, key, score, true
			}
		}
	}
	return bestDB, bestKey, found
}

func (k *Keyspace) candidateKeys(d *Database) []string {
	switch k.Policy {
	case PolicyAllKeysLRU, PolicyAllKeysRandom:
		return d.SampleAllKeys(k.Samples)
	case PolicyVolatileLRU, PolicyVolatileRandom, PolicyVolatileTTL:
		return d.SampleVolatileKeys(k.Samples)
	default:
		return nil
	}
}

// evictionScore ranks candidates highest-first for removal: oldest LRU
// tick (wrap-aware distance from "now"), or soonest TTL deadline, or (for
// the random policies) an arbitrary but stable tiebreaker since any
// sampled candidate is an equally valid pick.
func (k *Keyspace) evictionScore(d *Database, key string) int64 {
	switch k.Policy {
	case PolicyAllKeysLRU, PolicyVolatileLRU:
		return int64(lruAge(d.LRUTickOf(key)))
	case PolicyVolatileTTL:
		deadline, ok := d.ExpireDeadline(key)
		if !ok {
			return -1
		}
		return -deadline // soonest deadline -> highest score
	default:
		return 0
	}
}

// lruAge turns a wrap-around LRU tick into a monotonic "how long ago"
// score relative to the current tick, per the wraparound handling noted
// in DESIGN.md: comparisons must use circular distance, not raw value
// comparison, since the tick is a uint32 that wraps.
func lruAge(tick uint32) uint32 {
	now := storage.CurrentLRUTick()
	return now - tick
}
