package engine

import (
	"math"
	"strconv"

	"redis/internal/db"
	"redis/internal/storage"
)

// zsetZiplistFind locates member's ziplist index (members interleaved with
// scores as decimal strings, member first).
func zsetZiplistFind(zl *storage.Ziplist, member []byte) (index int, score float64, ok bool) {
	items := zl.ToSlice()
	for i := 0; i+1 < len(items); i += 2 {
		if bytesEqual(items[i], member) {
			f, _ := strconv.ParseFloat(string(items[i+1]), 64)
			return i, f, true
		}
	}
	return 0, 0, false
}

func zsetZiplistAll(zl *storage.Ziplist) []storage.ZSetMember {
	items := zl.ToSlice()
	out := make([]storage.ZSetMember, 0, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		f, _ := strconv.ParseFloat(string(items[i+1]), 64)
		out = append(out, storage.ZSetMember{Member: string(items[i]), Score: f})
	}
	return out
}

// promoteZSetIfNeeded converts v's ziplist payload to the skiplist-backed
// expanded encoding once a threshold is crossed.
func promoteZSetIfNeeded(v *storage.Value, limits storage.Limits, incomingLen int) {
	if v.Encoding != storage.EncZiplist {
		return
	}
	zl := v.Payload.(*storage.Ziplist)
	if zl.Len()/2+1 <= limits.ZSetMaxEntries && incomingLen <= limits.ZSetMaxValue {
		return
	}
	z := storage.NewZSet()
	for _, m := range zsetZiplistAll(zl) {
		z.Add(m.Member, m.Score)
	}
	v.Payload = z
	v.Encoding = storage.EncSkiplist
}

func lookupZSet(d *db.Database, key string) (*storage.Value, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != storage.KindZSet {
		return nil, ErrWrongType
	}
	return v, nil
}

func zsetLen(v *storage.Value) int {
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		return p.Len() / 2
	case *storage.ZSet:
		return p.Len()
	}
	return 0
}

// ZAdd adds or updates member scores, returning the number of new members.
func ZAdd(d *db.Database, limits storage.Limits, key string, members []storage.ZSetMember) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptyZSet()
	} else {
		v = storage.EnsurePrivate(v)
	}
	added := 0
	for _, m := range members {
		promoteZSetIfNeeded(v, limits, len(m.Member))
		switch p := v.Payload.(type) {
		case *storage.Ziplist:
			idx, _, ok := zsetZiplistFind(p, []byte(m.Member))
			scoreBytes := []byte(strconv.FormatFloat(m.Score, 'f', -1, 64))
			if ok {
				p.Set(idx+1, scoreBytes)
			} else {
				p.PushTail([]byte(m.Member))
				p.PushTail(scoreBytes)
				added++
			}
		case *storage.ZSet:
			if p.Add(m.Member, m.Score) {
				added++
			}
		}
	}
	d.Set(key, v)
	return added, nil
}

// ZScore returns member's score, if present.
func ZScore(d *db.Database, key string, member string) (float64, bool, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return 0, false, err
	}
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		_, score, ok := zsetZiplistFind(p, []byte(member))
		return score, ok, nil
	case *storage.ZSet:
		return p.Score(member)
	}
	return 0, false, nil
}

// ZRem removes members, returning the number actually removed.
func ZRem(d *db.Database, key string, members []string) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	v = storage.EnsurePrivate(v)
	removed := 0
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		for _, m := range members {
			idx, _, ok := zsetZiplistFind(p, []byte(m))
			if ok {
				p.DeleteAt(idx + 1)
				p.DeleteAt(idx)
				removed++
			}
		}
	case *storage.ZSet:
		for _, m := range members {
			if p.Remove(m) {
				removed++
			}
		}
	}
	if zsetLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return removed, nil
}

// ZCard returns the cardinality, 0 if absent.
func ZCard(d *db.Database, key string) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	return zsetLen(v), nil
}

// ZIncrBy adds delta to member's score (treating an absent member as 0)
// and returns the resulting score.
func ZIncrBy(d *db.Database, limits storage.Limits, key string, member string, delta float64) (float64, error) {
	v, err := lookupZSet(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptyZSet()
	} else {
		v = storage.EnsurePrivate(v)
	}
	promoteZSetIfNeeded(v, limits, len(member))
	var next float64
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		idx, score, ok := zsetZiplistFind(p, []byte(member))
		next = score + delta
		scoreBytes := []byte(strconv.FormatFloat(next, 'f', -1, 64))
		if ok {
			p.Set(idx+1, scoreBytes)
		} else {
			p.PushTail([]byte(member))
			p.PushTail(scoreBytes)
		}
	case *storage.ZSet:
		next = p.IncrBy(member, delta)
	}
	d.Set(key, v)
	return next, nil
}

// ZRank returns member's 0-based rank by ascending score, or -1 if absent.
func ZRank(d *db.Database, key string, member string) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return -1, err
	}
	all := zsetSorted(v)
	for i, m := range all {
		if m.Member == member {
			return i, nil
		}
	}
	return -1, nil
}

func zsetSorted(v *storage.Value) []storage.ZSetMember {
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		all := zsetZiplistAll(p)
		sortZSetMembers(all)
		return all
	case *storage.ZSet:
		return p.GetAll()
	}
	return nil
}

func sortZSetMembers(members []storage.ZSetMember) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0; j-- {
			a, b := members[j-1], members[j]
			if a.Score > b.Score || (a.Score == b.Score && a.Member > b.Member) {
				members[j-1], members[j] = members[j], members[j-1]
			} else {
				break
			}
		}
	}
}

// ZRange returns members by rank range [start, stop] inclusive.
func ZRange(d *db.Database, key string, start, stop int, reverse bool) ([]storage.ZSetMember, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	switch p := v.Payload.(type) {
	case *storage.ZSet:
		return p.RangeByRank(start, stop, reverse), nil
	default:
		all := zsetSorted(v)
		n := len(all)
		if reverse {
			reverseMembers(all)
		}
		if start < 0 {
			start = n + start
		}
		if stop < 0 {
			stop = n + stop
		}
		if start < 0 {
			start = 0
		}
		if stop >= n {
			stop = n - 1
		}
		if start > stop || start >= n {
			return nil, nil
		}
		return append([]storage.ZSetMember{}, all[start:stop+1]...), nil
	}
}

func reverseMembers(m []storage.ZSetMember) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}

// ZRevRank returns member's 0-based rank by descending score, or -1 if absent.
func ZRevRank(d *db.Database, key string, member string) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return -1, err
	}
	all := zsetSorted(v)
	n := len(all)
	for i, m := range all {
		if m.Member == member {
			return n - 1 - i, nil
		}
	}
	return -1, nil
}

// ZCount counts members with score in [min, max], where minExclusive/
// maxExclusive turn the corresponding bound into an open one.
func ZCount(d *db.Database, key string, min, max float64, minExclusive, maxExclusive bool) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	count := 0
	for _, m := range zsetSorted(v) {
		if scoreInRange(m.Score, min, max, minExclusive, maxExclusive) {
			count++
		}
	}
	return count, nil
}

// scoreInRange reports whether score falls within [min, max], with either
// side made exclusive by the corresponding bool.
func scoreInRange(score, min, max float64, minExclusive, maxExclusive bool) bool {
	if minExclusive {
		if score <= min {
			return false
		}
	} else if score < min {
		return false
	}
	if maxExclusive {
		if score >= max {
			return false
		}
	} else if score > max {
		return false
	}
	return true
}

// ZRemRangeByScore removes every member with score in [min, max].
func ZRemRangeByScore(d *db.Database, key string, min, max float64, minExclusive, maxExclusive bool) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	var victims []string
	for _, m := range zsetSorted(v) {
		if scoreInRange(m.Score, min, max, minExclusive, maxExclusive) {
			victims = append(victims, m.Member)
		}
	}
	return ZRem(d, key, victims)
}

// ZRemRangeByRank removes members in the rank range [start, stop] inclusive.
func ZRemRangeByRank(d *db.Database, key string, start, stop int) (int, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	all := zsetSorted(v)
	n := len(all)
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, nil
	}
	var victims []string
	for _, m := range all[start : stop+1] {
		victims = append(victims, m.Member)
	}
	return ZRem(d, key, victims)
}

// ZAggregate names a ZUNIONSTORE/ZINTERSTORE AGGREGATE mode.
type ZAggregate int

const (
	AggregateSum ZAggregate = iota
	AggregateMin
	AggregateMax
)

// ZUnionStore computes the union of the source sorted sets, combining each
// member's weighted scores per agg, and stores the result at destKey.
func ZUnionStore(d *db.Database, limits storage.Limits, destKey string, keys []string, weights []float64, agg ZAggregate) (int, error) {
	return zsetStore(d, limits, destKey, keys, weights, agg, false)
}

// ZInterStore computes the intersection of the source sorted sets, combining
// each member's weighted scores per agg, and stores the result at destKey.
func ZInterStore(d *db.Database, limits storage.Limits, destKey string, keys []string, weights []float64, agg ZAggregate) (int, error) {
	return zsetStore(d, limits, destKey, keys, weights, agg, true)
}

func combineScore(agg ZAggregate, acc float64, present bool, weighted float64) float64 {
	if !present {
		return weighted
	}
	switch agg {
	case AggregateMin:
		if weighted < acc {
			return weighted
		}
		return acc
	case AggregateMax:
		if weighted > acc {
			return weighted
		}
		return acc
	default:
		sum := acc + weighted
		if math.IsNaN(sum) {
			return 0
		}
		return sum
	}
}

func zsetStore(d *db.Database, limits storage.Limits, destKey string, keys []string, weights []float64, agg ZAggregate, intersect bool) (int, error) {
	scores := make(map[string]float64)
	present := make(map[string]bool)
	counts := make(map[string]int)
	for i, key := range keys {
		v, err := lookupZSet(d, key)
		if err != nil {
			return 0, err
		}
		if v == nil {
			continue
		}
		weight := 1.0
		if i < len(weights) {
			weight = weights[i]
		}
		for _, m := range zsetSorted(v) {
			weighted := m.Score * weight
			scores[m.Member] = combineScore(agg, scores[m.Member], present[m.Member], weighted)
			present[m.Member] = true
			counts[m.Member]++
		}
	}
	d.Delete(destKey)
	members := make([]storage.ZSetMember, 0, len(scores))
	for member, score := range scores {
		if intersect && counts[member] != len(keys) {
			continue
		}
		members = append(members, storage.ZSetMember{Member: member, Score: score})
	}
	if len(members) == 0 {
		return 0, nil
	}
	return ZAdd(d, limits, destKey, members)
}

// ZRangeByScore returns members with score in [min, max], offset/limited.
// minExclusive/maxExclusive turn the corresponding bound into an open one.
func ZRangeByScore(d *db.Database, key string, min, max float64, offset, count int, reverse, minExclusive, maxExclusive bool) ([]storage.ZSetMember, error) {
	v, err := lookupZSet(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	all := zsetSorted(v)
	var filtered []storage.ZSetMember
	for _, m := range all {
		if scoreInRange(m.Score, min, max, minExclusive, maxExclusive) {
			filtered = append(filtered, m)
		}
	}
	if reverse {
		reverseMembers(filtered)
	}
	if offset > len(filtered) {
		offset = len(filtered)
	}
	filtered = filtered[offset:]
	if count >= 0 && count < len(filtered) {
		filtered = filtered[:count]
	}
	return filtered, nil
}
