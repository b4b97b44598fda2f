package storage

// ZSetMember pairs a sorted-set member with its score.
type ZSetMember struct {
	Member string
	Score  float64
}

// zsetExpanded is the SortedSet expanded encoding: a hash-map from member
// to score (O(1) ZSCORE) alongside a skiplist ordered by (score, member)
// (O(log n) range and rank queries). §3.1's invariant requires these two
// structures to always agree on membership and score.
type zsetExpanded struct {
	dict     *Dict[float64]
	skiplist *skipList
}

// ZSet is the exported name for the sorted-set expanded encoding, used by
// callers outside this package once a ziplist-encoded zset promotes.
type ZSet = zsetExpanded

func newZSetExpanded() *zsetExpanded {
	return &zsetExpanded{dict: NewDict[float64](), skiplist: newSkipList()}
}

// NewZSet creates an empty expanded sorted-set.
func NewZSet() *ZSet { return newZSetExpanded() }

func (z *zsetExpanded) clone() *zsetExpanded {
	out := newZSetExpanded()
	z.dict.Each(func(member string, score float64) {
		out.dict.Set(member, score)
	})
	out.skiplist = z.skiplist.Clone()
	return out
}

// Add inserts or updates member's score. Returns true if member is new.
func (z *zsetExpanded) Add(member string, score float64) bool {
	old, exists := z.dict.Get(member)
	if exists {
		if old == score {
			return false
		}
		z.skiplist.delete(member, old)
	}
	z.dict.Set(member, score)
	z.skiplist.insert(member, score)
	return !exists
}

func (z *zsetExpanded) Remove(member string) bool {
	score, exists := z.dict.Get(member)
	if !exists {
		return false
	}
	z.dict.Delete(member)
	z.skiplist.delete(member, score)
	return true
}

func (z *zsetExpanded) Score(member string) (float64, bool) {
	return z.dict.Get(member)
}

func (z *zsetExpanded) Len() int { return z.dict.Len() }

func (z *zsetExpanded) Rank(member string) int {
	score, exists := z.dict.Get(member)
	if !exists {
		return -1
	}
	return z.skiplist.getRank(member, score)
}

func (z *zsetExpanded) IncrBy(member string, delta float64) float64 {
	old, exists := z.dict.Get(member)
	newScore := delta
	if exists {
		newScore = old + delta
		z.skiplist.delete(member, old)
	}
	z.dict.Set(member, newScore)
	z.skiplist.insert(member, newScore)
	return newScore
}

func (z *zsetExpanded) Range(min, max float64, offset, count int, reverse bool) []ZSetMember {
	return z.skiplist.getRange(min, max, offset, count, reverse)
}

func (z *zsetExpanded) RangeByRank(start, stop int, reverse bool) []ZSetMember {
	n := z.Len()
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	return z.skiplist.getRangeByRank(start, stop, reverse)
}

func (z *zsetExpanded) GetAll() []ZSetMember {
	if z.Len() == 0 {
		return nil
	}
	return z.skiplist.getRangeByRank(0, z.Len()-1, false)
}
