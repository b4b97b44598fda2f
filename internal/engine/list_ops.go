package engine

import (
	"redis/internal/db"
	"redis/internal/storage"
)

// promoteListIfNeeded converts v's ziplist payload to the linked-list
// encoding once either threshold in limits is crossed (§3.1's one-way
// promotion: lists never demote back to ziplist).
func promoteListIfNeeded(v *storage.Value, limits storage.Limits, incomingLen int) {
	if v.Encoding != storage.EncZiplist {
		return
	}
	zl := v.Payload.(*storage.Ziplist)
	if zl.Len()+1 <= limits.ListMaxEntries && incomingLen <= limits.ListMaxValue {
		return
	}
	l := storage.NewList()
	for _, item := range zl.ToSlice() {
		l.PushTail(item)
	}
	v.Payload = l
	v.Encoding = storage.EncLinkedList
}

func listPayload(v *storage.Value) (ziplist *storage.Ziplist, list *storage.List) {
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		return p, nil
	case *storage.List:
		return nil, p
	default:
		return nil, nil
	}
}

func listLen(v *storage.Value) int {
	zl, l := listPayload(v)
	if zl != nil {
		return zl.Len()
	}
	return l.Length
}

func lookupList(d *db.Database, key string) (*storage.Value, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != storage.KindList {
		return nil, ErrWrongType
	}
	return v, nil
}

// LPush/RPush prepend/append values, creating the list if absent, and
// return the resulting length.
func LPush(d *db.Database, limits storage.Limits, key string, values ...[]byte) (int, error) {
	return listPush(d, limits, key, values, true)
}

func RPush(d *db.Database, limits storage.Limits, key string, values ...[]byte) (int, error) {
	return listPush(d, limits, key, values, false)
}

func listPush(d *db.Database, limits storage.Limits, key string, values [][]byte, head bool) (int, error) {
	v, err := lookupList(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptyList()
	} else {
		v = storage.EnsurePrivate(v)
	}
	for _, val := range values {
		promoteListIfNeeded(v, limits, len(val))
		zl, l := listPayload(v)
		if zl != nil {
			if head {
				zl.PushHead(val)
			} else {
				zl.PushTail(val)
			}
		} else {
			if head {
				l.PushHead(val)
			} else {
				l.PushTail(val)
			}
		}
	}
	d.Set(key, v)
	return listLen(v), nil
}

// LPop/RPop remove and return up to count elements from the given end,
// deleting the key once the list is empty. A count of 0 or less pops
// nothing; choosing between a bare-value and an array reply is left to the
// caller.
func LPop(d *db.Database, key string, count int) ([][]byte, error) {
	return listPop(d, key, count, true)
}

func RPop(d *db.Database, key string, count int) ([][]byte, error) {
	return listPop(d, key, count, false)
}

func listPop(d *db.Database, key string, count int, head bool) ([][]byte, error) {
	v, err := lookupList(d, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	v = storage.EnsurePrivate(v)
	zl, l := listPayload(v)
	var out [][]byte
	for i := 0; i < count; i++ {
		var val []byte
		var ok bool
		if zl != nil {
			if head {
				val, ok = zl.PopHead()
			} else {
				val, ok = zl.PopTail()
			}
		} else {
			if head {
				val, ok = l.PopHead()
			} else {
				val, ok = l.PopTail()
			}
		}
		if !ok {
			break
		}
		out = append(out, val)
	}
	if listLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return out, nil
}

// LLen returns the list's length, 0 if absent.
func LLen(d *db.Database, key string) (int, error) {
	v, err := lookupList(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	return listLen(v), nil
}

// LIndex returns the element at index (negative counts from the tail).
func LIndex(d *db.Database, key string, index int) ([]byte, error) {
	v, err := lookupList(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	zl, l := listPayload(v)
	if zl != nil {
		idx := index
		if idx < 0 {
			idx = zl.Len() + idx
		}
		val, ok := zl.Get(idx)
		if !ok {
			return nil, nil
		}
		return val, nil
	}
	val, ok := l.Get(index)
	if !ok {
		return nil, nil
	}
	return val, nil
}

// LSet overwrites the element at index.
func LSet(d *db.Database, limits storage.Limits, key string, index int, value []byte) error {
	v, err := lookupList(d, key)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrNoSuchKey
	}
	v = storage.EnsurePrivate(v)
	promoteListIfNeeded(v, limits, len(value))
	zl, l := listPayload(v)
	var ok bool
	if zl != nil {
		idx := index
		if idx < 0 {
			idx = zl.Len() + idx
		}
		ok = zl.Set(idx, value)
	} else {
		ok = l.Set(index, value)
	}
	if !ok {
		return ErrIndexOutOfRange
	}
	d.Set(key, v)
	return nil
}

// LRange returns elements [start, stop] inclusive.
func LRange(d *db.Database, key string, start, stop int) ([][]byte, error) {
	v, err := lookupList(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	zl, l := listPayload(v)
	if l != nil {
		return l.Range(start, stop), nil
	}
	n := zl.Len()
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
	out := make([][]byte, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		val, _ := zl.Get(i)
		out = append(out, val)
	}
	return out, nil
}

// LTrim keeps only [start, stop] inclusive, discarding the rest.
func LTrim(d *db.Database, key string, start, stop int) error {
	v, err := lookupList(d, key)
	if err != nil || v == nil {
		return err
	}
	v = storage.EnsurePrivate(v)
	zl, l := listPayload(v)
	if l != nil {
		l.Trim(start, stop)
	} else {
		n := zl.Len()
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
		newZl := storage.NewZiplist()
		if start <= stop {
			for i := start; i <= stop; i++ {
				val, _ := zl.Get(i)
				newZl.PushTail(val)
			}
		}
		v.Payload = newZl
	}
	if listLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return nil
}

// LInsert inserts value before or after the first occurrence of pivot.
// Returns the new length, or -1 if pivot wasn't found, or 0 if key is absent.
func LInsert(d *db.Database, limits storage.Limits, key string, before bool, pivot, value []byte) (int, error) {
	v, err := lookupList(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	v = storage.EnsurePrivate(v)
	promoteListIfNeeded(v, limits, len(value))
	zl, l := listPayload(v)
	if l != nil {
		n := l.FindNode(pivot, true)
		if n == nil {
			return -1, nil
		}
		if before {
			l.InsertBefore(n, value)
		} else {
			l.InsertAfter(n, value)
		}
		d.Set(key, v)
		return listLen(v), nil
	}
	items := zl.ToSlice()
	idx := -1
	for i, it := range items {
		if bytesEqual(it, pivot) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, nil
	}
	if before {
		zl.InsertBefore(idx, value)
	} else {
		zl.InsertAfter(idx, value)
	}
	d.Set(key, v)
	return listLen(v), nil
}

// LRem removes up to count occurrences of value (see storage.List.RemoveMatching
// for the count-sign semantics) and returns the number removed.
func LRem(d *db.Database, key string, count int, value []byte) (int, error) {
	v, err := lookupList(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	v = storage.EnsurePrivate(v)
	zl, l := listPayload(v)
	var removed int
	if l != nil {
		removed = l.RemoveMatching(value, count)
	} else {
		items := zl.ToSlice()
		newZl := storage.NewZiplist()
		limit := count
		if limit < 0 {
			limit = -limit
		}
		if count >= 0 {
			for _, it := range items {
				if (limit == 0 || removed < limit) && bytesEqual(it, value) {
					removed++
					continue
				}
				newZl.PushTail(it)
			}
		} else {
			keep := make([][]byte, 0, len(items))
			for i := len(items) - 1; i >= 0; i-- {
				if removed < limit && bytesEqual(items[i], value) {
					removed++
					continue
				}
				keep = append(keep, items[i])
			}
			for i := len(keep) - 1; i >= 0; i-- {
				newZl.PushTail(keep[i])
			}
		}
		v.Payload = newZl
	}
	if listLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return removed, nil
}

// RPopLPush atomically moves the tail element of src onto the head of dst.
func RPopLPush(d *db.Database, limits storage.Limits, src, dst string) ([]byte, error) {
	popped, err := RPop(d, src, 1)
	if err != nil || len(popped) == 0 {
		return nil, err
	}
	if _, err := LPush(d, limits, dst, popped[0]); err != nil {
		return nil, err
	}
	return popped[0], nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
