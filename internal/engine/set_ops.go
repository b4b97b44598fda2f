package engine

import (
	"math/rand"
	"strconv"

	"redis/internal/db"
	"redis/internal/storage"
)

func lookupSet(d *db.Database, key string) (*storage.Value, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != storage.KindSet {
		return nil, ErrWrongType
	}
	return v, nil
}

// promoteSetIfNeeded converts v's intset payload to a hash-table set once
// a member that isn't representable as an integer arrives, or the intset
// grows past its configured cap.
func promoteSetIfNeeded(v *storage.Value, limits storage.Limits, member []byte) {
	if v.Encoding != storage.EncIntset {
		return
	}
	is := v.Payload.(*storage.IntSet)
	_, isInt := tryParseSetInt(member)
	if isInt && is.Len()+1 <= limits.SetMaxIntset {
		return
	}
	ht := storage.NewDict[struct{}]()
	for _, iv := range is.ToSlice() {
		ht.Set(strconv.FormatInt(iv, 10), struct{}{})
	}
	v.Payload = ht
	v.Encoding = storage.EncHashTable
}

func tryParseSetInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != string(b) {
		return 0, false
	}
	return n, true
}

func setMembers(v *storage.Value) [][]byte {
	switch p := v.Payload.(type) {
	case *storage.IntSet:
		ivs := p.ToSlice()
		out := make([][]byte, len(ivs))
		for i, iv := range ivs {
			out[i] = []byte(strconv.FormatInt(iv, 10))
		}
		return out
	case *storage.Dict[struct{}]:
		keys := p.Keys()
		out := make([][]byte, len(keys))
		for i, k := range keys {
			out[i] = []byte(k)
		}
		return out
	}
	return nil
}

func setLen(v *storage.Value) int {
	switch p := v.Payload.(type) {
	case *storage.IntSet:
		return p.Len()
	case *storage.Dict[struct{}]:
		return p.Len()
	}
	return 0
}

func setContains(v *storage.Value, member []byte) bool {
	switch p := v.Payload.(type) {
	case *storage.IntSet:
		iv, ok := tryParseSetInt(member)
		if !ok {
			return false
		}
		return p.Contains(iv)
	case *storage.Dict[struct{}]:
		_, ok := p.Get(string(member))
		return ok
	}
	return false
}

func setAddOne(v *storage.Value, member []byte) bool {
	switch p := v.Payload.(type) {
	case *storage.IntSet:
		iv, ok := tryParseSetInt(member)
		if !ok {
			return false
		}
		return p.Add(iv)
	case *storage.Dict[struct{}]:
		return p.Set(string(member), struct{}{})
	}
	return false
}

func setRemoveOne(v *storage.Value, member []byte) bool {
	switch p := v.Payload.(type) {
	case *storage.IntSet:
		iv, ok := tryParseSetInt(member)
		if !ok {
			return false
		}
		return p.Remove(iv)
	case *storage.Dict[struct{}]:
		return p.Delete(string(member))
	}
	return false
}

// SAdd adds members, returning the number newly added.
func SAdd(d *db.Database, limits storage.Limits, key string, members ...[]byte) (int, error) {
	v, err := lookupSet(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptySet()
	} else {
		v = storage.EnsurePrivate(v)
	}
	added := 0
	for _, m := range members {
		promoteSetIfNeeded(v, limits, m)
		if setAddOne(v, m) {
			added++
		}
	}
	d.Set(key, v)
	return added, nil
}

// SRem removes members, returning the number actually removed.
func SRem(d *db.Database, key string, members ...[]byte) (int, error) {
	v, err := lookupSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	v = storage.EnsurePrivate(v)
	removed := 0
	for _, m := range members {
		if setRemoveOne(v, m) {
			removed++
		}
	}
	if setLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return removed, nil
}

// SIsMember reports whether member is in the set.
func SIsMember(d *db.Database, key string, member []byte) (bool, error) {
	v, err := lookupSet(d, key)
	if err != nil || v == nil {
		return false, err
	}
	return setContains(v, member), nil
}

// SCard returns the set's cardinality, 0 if absent.
func SCard(d *db.Database, key string) (int, error) {
	v, err := lookupSet(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	return setLen(v), nil
}

// SMembers returns every member.
func SMembers(d *db.Database, key string) ([][]byte, error) {
	v, err := lookupSet(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	return setMembers(v), nil
}

// SMove atomically moves member from src to dst. Returns false if member
// wasn't in src.
func SMove(d *db.Database, limits storage.Limits, src, dst string, member []byte) (bool, error) {
	vsrc, err := lookupSet(d, src)
	if err != nil || vsrc == nil || !setContains(vsrc, member) {
		return false, err
	}
	if _, err := SRem(d, src, member); err != nil {
		return false, err
	}
	if _, err := SAdd(d, limits, dst, member); err != nil {
		return false, err
	}
	return true, nil
}

// SPop removes and returns up to count random members.
func SPop(d *db.Database, key string, count int) ([][]byte, error) {
	v, err := lookupSet(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	v = storage.EnsurePrivate(v)
	members := setMembers(v)
	rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if count > len(members) {
		count = len(members)
	}
	picked := members[:count]
	for _, m := range picked {
		setRemoveOne(v, m)
	}
	if setLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return picked, nil
}

// SRandMember returns count random members without removing them.
// count < 0 allows duplicates (up to -count draws); count >= 0 returns
// distinct members (at most the set's size).
func SRandMember(d *db.Database, key string, count int) ([][]byte, error) {
	v, err := lookupSet(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	members := setMembers(v)
	if len(members) == 0 {
		return nil, nil
	}
	if count < 0 {
		n := -count
		out := make([][]byte, n)
		for i := 0; i < n; i++ {
			out[i] = members[rand.Intn(len(members))]
		}
		return out, nil
	}
	rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if count > len(members) {
		count = len(members)
	}
	return members[:count], nil
}

func memberSet(members [][]byte) map[string]struct{} {
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[string(m)] = struct{}{}
	}
	return out
}

// SInter/SUnion/SDiff combine the member sets of the given keys (missing
// keys behave as empty sets).
func SInter(d *db.Database, keys []string) ([][]byte, error) {
	sets, err := loadMemberSets(d, keys)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, nil
	}
	result := sets[0]
	for _, s := range sets[1:] {
		for k := range result {
			if _, ok := s[k]; !ok {
				delete(result, k)
			}
		}
	}
	return setToBytes(result), nil
}

func SUnion(d *db.Database, keys []string) ([][]byte, error) {
	sets, err := loadMemberSets(d, keys)
	if err != nil {
		return nil, err
	}
	result := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			result[k] = struct{}{}
		}
	}
	return setToBytes(result), nil
}

func SDiff(d *db.Database, keys []string) ([][]byte, error) {
	sets, err := loadMemberSets(d, keys)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, nil
	}
	result := sets[0]
	for _, s := range sets[1:] {
		for k := range s {
			delete(result, k)
		}
	}
	return setToBytes(result), nil
}

func loadMemberSets(d *db.Database, keys []string) ([]map[string]struct{}, error) {
	out := make([]map[string]struct{}, len(keys))
	for i, k := range keys {
		v, err := lookupSet(d, k)
		if err != nil {
			return nil, err
		}
		if v == nil {
			out[i] = map[string]struct{}{}
			continue
		}
		out[i] = memberSet(setMembers(v))
	}
	return out, nil
}

func setToBytes(s map[string]struct{}) [][]byte {
	out := make([][]byte, 0, len(s))
	for k := range s {
		out = append(out, []byte(k))
	}
	return out
}

// SInterStore/SUnionStore/SDiffStore write the combined result to destKey,
// returning its cardinality.
func SInterStore(d *db.Database, limits storage.Limits, destKey string, keys []string) (int, error) {
	return setStore(d, limits, destKey, SInter, keys)
}

func SUnionStore(d *db.Database, limits storage.Limits, destKey string, keys []string) (int, error) {
	return setStore(d, limits, destKey, SUnion, keys)
}

func SDiffStore(d *db.Database, limits storage.Limits, destKey string, keys []string) (int, error) {
	return setStore(d, limits, destKey, SDiff, keys)
}

func setStore(d *db.Database, limits storage.Limits, destKey string, combine func(*db.Database, []string) ([][]byte, error), keys []string) (int, error) {
	members, err := combine(d, keys)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		d.Delete(destKey)
		return 0, nil
	}
	v := storage.NewEmptySet()
	for _, m := range members {
		promoteSetIfNeeded(v, limits, m)
		setAddOne(v, m)
	}
	d.Set(destKey, v)
	return setLen(v), nil
}
