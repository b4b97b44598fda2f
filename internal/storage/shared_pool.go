package storage

import "strconv"

// sharedIntPoolSize bounds the small-integer cache (C10) to the same
// range Redis itself caches by default: 0..9999.
const sharedIntPoolSize = 10000

// sharedInts is process-lifetime, write-once at init and read-only
// thereafter (§5 "Shared resources"): every *Value in it starts with
// refcount 2 so Shared() is true the moment it leaves the pool, and every
// caller that hands one out must Retain() it first, matching the "never
// mutate a shared object, clone on write" rule enforced by EnsurePrivate.
var sharedInts [sharedIntPoolSize]*Value

func init() {
	for i := range sharedInts {
		sharedInts[i] = &Value{
			Kind:     KindString,
			Encoding: EncInt,
			Payload:  int64(i),
			refcount: 2,
		}
	}
}

// SharedInt returns the pool's object for n, already Retain()'d for the
// caller, if n is small enough to be cached. Ok is false outside the
// cached range, in which case the caller should build a private value.
func SharedInt(n int64) (v *Value, ok bool) {
	if n < 0 || n >= sharedIntPoolSize {
		return nil, false
	}
	return sharedInts[n].Retain(), true
}

// sharedIntFromBytes is NewStringValue's hook into the pool: b must be the
// canonical decimal rendering of a small non-negative integer (no leading
// zeros, no sign) for the shared object to be indistinguishable from a
// private one to every string command.
func sharedIntFromBytes(b []byte) (*Value, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return nil, false
	}
	if strconv.FormatInt(n, 10) != string(b) {
		return nil, false
	}
	return SharedInt(n)
}
