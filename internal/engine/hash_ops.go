package engine

import (
	"strconv"

	"redis/internal/db"
	"redis/internal/storage"
)

// promoteHashIfNeeded converts v's ziplist payload (interleaved
// field/value entries) to a hash-table encoding once a threshold is
// crossed.
func promoteHashIfNeeded(v *storage.Value, limits storage.Limits, incomingLen int) {
	if v.Encoding != storage.EncZiplist {
		return
	}
	zl := v.Payload.(*storage.Ziplist)
	fields := zl.Len() / 2
	if fields+1 <= limits.HashMaxEntries && incomingLen <= limits.HashMaxValue {
		return
	}
	ht := storage.NewDict[[]byte]()
	items := zl.ToSlice()
	for i := 0; i+1 < len(items); i += 2 {
		ht.Set(string(items[i]), items[i+1])
	}
	v.Payload = ht
	v.Encoding = storage.EncHashTable
}

func lookupHash(d *db.Database, key string) (*storage.Value, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != storage.KindHash {
		return nil, ErrWrongType
	}
	return v, nil
}

func hashZiplistFind(zl *storage.Ziplist, field []byte) (index int, ok bool) {
	items := zl.ToSlice()
	for i := 0; i+1 < len(items); i += 2 {
		if bytesEqual(items[i], field) {
			return i, true
		}
	}
	return 0, false
}

// HGet returns the value of a single field.
func HGet(d *db.Database, key string, field []byte) ([]byte, error) {
	v, err := lookupHash(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		idx, ok := hashZiplistFind(p, field)
		if !ok {
			return nil, nil
		}
		val, _ := p.Get(idx + 1)
		return val, nil
	case *storage.Dict[[]byte]:
		val, ok := p.Get(string(field))
		if !ok {
			return nil, nil
		}
		return val, nil
	}
	return nil, nil
}

// HSet sets field/value pairs, returning the number of new fields added.
func HSet(d *db.Database, limits storage.Limits, key string, fieldValues ...[]byte) (int, error) {
	if len(fieldValues)%2 != 0 {
		return 0, ErrSyntax
	}
	v, err := lookupHash(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptyHash()
	} else {
		v = storage.EnsurePrivate(v)
	}
	added := 0
	for i := 0; i+1 < len(fieldValues); i += 2 {
		field, val := fieldValues[i], fieldValues[i+1]
		promoteHashIfNeeded(v, limits, len(val))
		switch p := v.Payload.(type) {
		case *storage.Ziplist:
			idx, ok := hashZiplistFind(p, field)
			if ok {
				p.Set(idx+1, val)
			} else {
				p.PushTail(field)
				p.PushTail(val)
				added++
			}
		case *storage.Dict[[]byte]:
			if p.Set(string(field), val) {
				added++
			}
		}
	}
	d.Set(key, v)
	return added, nil
}

// HDel removes the given fields, returning the number actually removed.
func HDel(d *db.Database, key string, fields ...[]byte) (int, error) {
	v, err := lookupHash(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	v = storage.EnsurePrivate(v)
	removed := 0
	for _, field := range fields {
		switch p := v.Payload.(type) {
		case *storage.Ziplist:
			idx, ok := hashZiplistFind(p, field)
			if ok {
				p.DeleteAt(idx + 1)
				p.DeleteAt(idx)
				removed++
			}
		case *storage.Dict[[]byte]:
			if p.Delete(string(field)) {
				removed++
			}
		}
	}
	if hashLen(v) == 0 {
		d.Delete(key)
	} else {
		d.Set(key, v)
	}
	return removed, nil
}

func hashLen(v *storage.Value) int {
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		return p.Len() / 2
	case *storage.Dict[[]byte]:
		return p.Len()
	}
	return 0
}

// HLen returns the number of fields, 0 if absent.
func HLen(d *db.Database, key string) (int, error) {
	v, err := lookupHash(d, key)
	if err != nil || v == nil {
		return 0, err
	}
	return hashLen(v), nil
}

// HExists reports whether field is present.
func HExists(d *db.Database, key string, field []byte) (bool, error) {
	val, err := HGet(d, key, field)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

// HGetAll returns every field/value pair.
func HGetAll(d *db.Database, key string) ([][2][]byte, error) {
	v, err := lookupHash(d, key)
	if err != nil || v == nil {
		return nil, err
	}
	var out [][2][]byte
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		items := p.ToSlice()
		for i := 0; i+1 < len(items); i += 2 {
			out = append(out, [2][]byte{items[i], items[i+1]})
		}
	case *storage.Dict[[]byte]:
		p.Each(func(field string, val []byte) {
			out = append(out, [2][]byte{[]byte(field), val})
		})
	}
	return out, nil
}

// HKeys returns every field name.
func HKeys(d *db.Database, key string) ([][]byte, error) {
	pairs, err := HGetAll(d, key)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pairs))
	for i, p := range pairs {
		out[i] = p[0]
	}
	return out, nil
}

// HVals returns every value.
func HVals(d *db.Database, key string) ([][]byte, error) {
	pairs, err := HGetAll(d, key)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pairs))
	for i, p := range pairs {
		out[i] = p[1]
	}
	return out, nil
}

// HIncrBy adds delta to the integer stored at field (0 if absent).
func HIncrBy(d *db.Database, limits storage.Limits, key string, field []byte, delta int64) (int64, error) {
	v, err := lookupHash(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptyHash()
	} else {
		v = storage.EnsurePrivate(v)
	}
	current := int64(0)
	existing, _ := hashGetRaw(v, field)
	if existing != nil {
		iv, ok := parseInt(existing)
		if !ok {
			return 0, ErrHashValueNotInteger
		}
		current = iv
	}
	next := current + delta
	encoded := []byte(strconv.FormatInt(next, 10))
	promoteHashIfNeeded(v, limits, len(encoded))
	hashSetRaw(v, field, encoded)
	d.Set(key, v)
	return next, nil
}

// HIncrByFloat adds delta to the float stored at field (0 if absent).
func HIncrByFloat(d *db.Database, limits storage.Limits, key string, field []byte, delta float64) (float64, error) {
	v, err := lookupHash(d, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		v = storage.NewEmptyHash()
	} else {
		v = storage.EnsurePrivate(v)
	}
	current := 0.0
	existing, _ := hashGetRaw(v, field)
	if existing != nil {
		f, err := strconv.ParseFloat(string(existing), 64)
		if err != nil {
			return 0, ErrHashValueNotFloat
		}
		current = f
	}
	next := current + delta
	encoded := []byte(strconv.FormatFloat(next, 'f', -1, 64))
	promoteHashIfNeeded(v, limits, len(encoded))
	hashSetRaw(v, field, encoded)
	d.Set(key, v)
	return next, nil
}

func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func hashGetRaw(v *storage.Value, field []byte) ([]byte, bool) {
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		idx, ok := hashZiplistFind(p, field)
		if !ok {
			return nil, false
		}
		val, _ := p.Get(idx + 1)
		return val, true
	case *storage.Dict[[]byte]:
		return p.Get(string(field))
	}
	return nil, false
}

func hashSetRaw(v *storage.Value, field, val []byte) {
	switch p := v.Payload.(type) {
	case *storage.Ziplist:
		idx, ok := hashZiplistFind(p, field)
		if ok {
			p.Set(idx+1, val)
		} else {
			p.PushTail(field)
			p.PushTail(val)
		}
	case *storage.Dict[[]byte]:
		p.Set(string(field), val)
	}
}
