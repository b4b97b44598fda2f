// Package db implements the keyspace and expiration subsystem (C7): the
// per-database key→value and key→expiry mappings, lazy and active
// expiration, blocking-key bookkeeping, and watch/dirty-CAS tracking for
// optimistic-concurrency transactions.
package db

import (
	"time"

	"redis/internal/storage"
)

// DirtyCASNotifier is implemented by whatever tracks per-client
// watch state (the dispatch layer's transaction manager). A mutation that
// touches a watched key must flag every watching client dirty-on-cas.
type DirtyCASNotifier interface {
	MarkDirty(clientID int64)
}

// Database is one numbered partition of the keyspace (§3.2).
type Database struct {
	Index int

	keys    *storage.Dict[*storage.Value]
	expires *storage.Dict[int64] // key -> absolute deadline, ms since epoch

	blockedOn   map[string][]int64          // key -> FIFO of waiting client ids
	readyKeys   map[string]struct{}         // keys newly readable this tick
	watchedKeys map[string]map[int64]struct{} // key -> watching client ids

	notifier DirtyCASNotifier
}

// NewDatabase creates an empty database partition.
func NewDatabase(index int) *Database {
	return &Database{
		Index:       index,
		keys:        storage.NewDict[*storage.Value](),
		expires:     storage.NewDict[int64](),
		blockedOn:   make(map[string][]int64),
		readyKeys:   make(map[string]struct{}),
		watchedKeys: make(map[string]map[int64]struct{}),
	}
}

// SetNotifier wires the transaction manager so Touch() can flag watchers.
func (d *Database) SetNotifier(n DirtyCASNotifier) { d.notifier = n }

func nowMs() int64 { return time.Now().UnixMilli() }

// Lookup resolves key with lazy expiration (§4.6): if key carries a
// deadline that has passed, it is deleted (the caller is responsible for
// mirroring that deletion to the AOF as a synthetic DEL) and "not found"
// is reported.
func (d *Database) Lookup(key string) (*storage.Value, bool) {
	v, ok := d.keys.Get(key)
	if !ok {
		return nil, false
	}
	if d.expiredNow(key) {
		d.deleteKey(key)
		return nil, false
	}
	v.StampAccess()
	return v, true
}

func (d *Database) expiredNow(key string) bool {
	deadline, ok := d.expires.Get(key)
	if !ok {
		return false
	}
	return nowMs() > deadline
}

// ExpireIfNeeded runs the lazy-expiration check without requiring the
// caller to have already fetched the value. Returns true if the key was
// deleted as a result (the caller should append a synthetic DEL to AOF).
func (d *Database) ExpireIfNeeded(key string) bool {
	if _, ok := d.keys.Get(key); !ok {
		return false
	}
	if d.expiredNow(key) {
		d.deleteKey(key)
		return true
	}
	return false
}

func (d *Database) deleteKey(key string) {
	d.notifyWatchers(key)
	d.keys.Delete(key)
	d.expires.Delete(key)
	delete(d.blockedOn, key)
	delete(d.readyKeys, key)
	delete(d.watchedKeys, key)
}

// Set installs value at key, clearing any prior expiry (callers that want
// to preserve a TTL across overwrite must re-apply it explicitly, matching
// SET's semantics of dropping TTL unless KEEPTTL is requested upstream).
func (d *Database) Set(key string, value *storage.Value) {
	d.keys.Set(key, value)
	d.expires.Delete(key)
	d.Touch(key)
}

// Get is an alias of Lookup, lazy deletion of an expired key included; it
// does not report whether a deletion happened — callers needing to know
// should call ExpireIfNeeded first.
func (d *Database) Get(key string) (*storage.Value, bool) { return d.Lookup(key) }

// Delete removes key outright. Returns true if it existed.
func (d *Database) Delete(key string) bool {
	if _, ok := d.Lookup(key); !ok {
		return false
	}
	d.deleteKey(key)
	d.Touch(key)
	return true
}

// Exists reports whether key is present and unexpired.
func (d *Database) Exists(key string) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Rename moves the value (and TTL) from src to dst, overwriting dst.
func (d *Database) Rename(src, dst string) bool {
	v, ok := d.Lookup(src)
	if !ok {
		return false
	}
	d.keys.Set(dst, v)
	if deadline, has := d.expires.Get(src); has {
		d.expires.Set(dst, deadline)
	} else {
		d.expires.Delete(dst)
	}
	d.deleteKey(src)
	d.Touch(dst)
	return true
}

// Len returns the number of live keys (DBSIZE); does not force expiration.
func (d *Database) Len() int { return d.keys.Len() }

// Keys returns every unexpired key.
func (d *Database) Keys() []string {
	all := d.keys.Keys()
	out := make([]string, 0, len(all))
	for _, k := range all {
		if !d.expiredNow(k) {
			out = append(out, k)
		}
	}
	return out
}

// RandomKey returns a uniformly random unexpired key.
func (d *Database) RandomKey() (string, bool) {
	for attempts := 0; attempts < 10; attempts++ {
		k, ok := d.keys.RandomKey()
		if !ok {
			return "", false
		}
		if !d.expiredNow(k) {
			return k, true
		}
		d.deleteKey(k)
	}
	return "", false
}

// Flush empties the database outright (FLUSHDB). Also flags every watched
// key dirty, per §4.7: "Watch flagging also occurs on database flush
// operations."
func (d *Database) Flush() {
	for key := range d.watchedKeys {
		d.notifyWatchers(key)
	}
	d.keys = storage.NewDict[*storage.Value]()
	d.expires = storage.NewDict[int64]()
	d.blockedOn = make(map[string][]int64)
	d.readyKeys = make(map[string]struct{})
	d.watchedKeys = make(map[string]map[int64]struct{})
}

// --- Expiration ---

// SetExpireAt installs an absolute millisecond deadline on an existing key.
// Returns false if the key doesn't exist.
func (d *Database) SetExpireAt(key string, deadlineMs int64) bool {
	if _, ok := d.Lookup(key); !ok {
		return false
	}
	d.expires.Set(key, deadlineMs)
	d.Touch(key)
	return true
}

// Persist removes any TTL from key. Returns true if a TTL was removed.
func (d *Database) Persist(key string) bool {
	if _, ok := d.Lookup(key); !ok {
		return false
	}
	if _, has := d.expires.Get(key); !has {
		return false
	}
	d.expires.Delete(key)
	d.Touch(key)
	return true
}

// TTLMillis returns the remaining TTL in ms, -1 if key has no expiry, or
// -2 if key doesn't exist (or just expired).
func (d *Database) TTLMillis(key string) int64 {
	if _, ok := d.Lookup(key); !ok {
		return -2
	}
	deadline, has := d.expires.Get(key)
	if !has {
		return -1
	}
	remaining := deadline - nowMs()
	if remaining < 0 {
		return -2
	}
	return remaining
}

// ExpireAt returns the absolute deadline for key, if any.
func (d *Database) ExpireAt(key string) (int64, bool) {
	if _, ok := d.Lookup(key); !ok {
		return 0, false
	}
	return d.expires.Get(key)
}

// ActiveExpireCycle samples up to maxSamples random entries with a TTL per
// round and deletes expired ones, repeating while >25% of the sample was
// expired, bounded by budget (§4.6). Returns the deleted keys so the
// caller can mirror synthetic DELs to the AOF.
func (d *Database) ActiveExpireCycle(maxSamples int, budget time.Duration) []string {
	start := time.Now()
	var expired []string
	for time.Since(start) < budget {
		sample := d.expires.RandomSample(maxSamples)
		if len(sample) == 0 {
			return expired
		}
		hit := 0
		for _, key := range sample {
			if d.expiredNow(key) {
				d.deleteKey(key)
				expired = append(expired, key)
				hit++
			}
		}
		if len(sample) < maxSamples {
			return expired
		}
		if hit*4 <= len(sample) {
			return expired
		}
	}
	return expired
}

// --- Blocking keys (§4.5.2) ---

// AddBlockedClient registers clientID as waiting on key.
func (d *Database) AddBlockedClient(key string, clientID int64) {
	d.blockedOn[key] = append(d.blockedOn[key], clientID)
}

// RemoveBlockedClient drops clientID from key's waiter list (on timeout or
// successful delivery).
func (d *Database) RemoveBlockedClient(key string, clientID int64) {
	waiters := d.blockedOn[key]
	for i, id := range waiters {
		if id == clientID {
			d.blockedOn[key] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(d.blockedOn[key]) == 0 {
		delete(d.blockedOn, key)
	}
}

// NextWaiter returns the first-registered client still waiting on key.
func (d *Database) NextWaiter(key string) (int64, bool) {
	waiters := d.blockedOn[key]
	if len(waiters) == 0 {
		return 0, false
	}
	return waiters[0], true
}

// MarkReady flags key as newly readable; the periodic loop drains
// ready-keys and delivers one waiter per event, FIFO.
func (d *Database) MarkReady(key string) {
	if len(d.blockedOn[key]) > 0 {
		d.readyKeys[key] = struct{}{}
	}
}

// DrainReady returns and clears the set of ready keys.
func (d *Database) DrainReady() []string {
	if len(d.readyKeys) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.readyKeys))
	for k := range d.readyKeys {
		out = append(out, k)
	}
	d.readyKeys = make(map[string]struct{})
	return out
}

// --- Watch / dirty-on-cas (§4.7) ---

// Watch records clientID as watching key for optimistic concurrency.
func (d *Database) Watch(key string, clientID int64) {
	set, ok := d.watchedKeys[key]
	if !ok {
		set = make(map[int64]struct{})
		d.watchedKeys[key] = set
	}
	set[clientID] = struct{}{}
}

// UnwatchAll removes clientID from every key it was watching in this DB.
func (d *Database) UnwatchAll(clientID int64) {
	for key, set := range d.watchedKeys {
		delete(set, clientID)
		if len(set) == 0 {
			delete(d.watchedKeys, key)
		}
	}
}

func (d *Database) notifyWatchers(key string) {
	if d.notifier == nil {
		return
	}
	for clientID := range d.watchedKeys[key] {
		d.notifier.MarkDirty(clientID)
	}
}

// Touch marks key as mutated: flags watchers dirty-on-cas and, if clients
// are blocked on it, marks it ready for delivery. Every mutator must call
// this after a successful write.
func (d *Database) Touch(key string) {
	d.notifyWatchers(key)
	d.MarkReady(key)
}

// --- Sampling helpers for eviction (§4.6) ---

// SampleAllKeys returns n random candidate keys from the full keyspace.
func (d *Database) SampleAllKeys(n int) []string { return d.keys.RandomSample(n) }

// SampleVolatileKeys returns n random candidate keys among those with a TTL.
func (d *Database) SampleVolatileKeys(n int) []string { return d.expires.RandomSample(n) }

// LRUTickOf returns the value's last-access tick, or 0 if absent.
func (d *Database) LRUTickOf(key string) uint32 {
	v, ok := d.keys.Get(key)
	if !ok {
		return 0
	}
	return v.LRUTick
}

// ExpireDeadline returns key's absolute deadline and whether it has one.
func (d *Database) ExpireDeadline(key string) (int64, bool) { return d.expires.Get(key) }

// ForceDelete deletes key without lazy-expiration bookkeeping (used by
// eviction and AOF replay of synthetic DELs).
func (d *Database) ForceDelete(key string) bool {
	if _, ok := d.keys.Get(key); !ok {
		return false
	}
	d.deleteKey(key)
	return true
}

// Each iterates every live (unexpired) key/value pair — used by the AOF
// rewrite snapshot and RANDOMKEY fallback.
func (d *Database) Each(fn func(key string, value *storage.Value)) {
	d.keys.Each(func(key string, v *storage.Value) {
		if d.expiredNow(key) {
			return
		}
		fn(key, v)
	})
}

// RehashStep runs one bounded step of incremental rehashing on this DB's
// key and expiry dictionaries (the cron calls this per tick, §4.9).
func (d *Database) RehashStep(steps int) {
	d.keys.RehashSteps(steps)
	d.expires.RehashSteps(steps)
}

// ShrinkIfSparse opportunistically shrinks oversized tables (§4.9).
func (d *Database) ShrinkIfSparse() {
	d.keys.ShrinkIfSparse()
	d.expires.ShrinkIfSparse()
}

// IsRehashing reports whether this database's key dict is mid rehash.
func (d *Database) IsRehashing() bool { return d.keys.Rehashing() }
