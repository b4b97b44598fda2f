package storage

import (
	"encoding/binary"
	"sort"
)

// intsetWidth is the byte width of each encoded element.
type intsetWidth uint8

const (
	width16 intsetWidth = 2
	width32 intsetWidth = 4
	width64 intsetWidth = 8
)

// IntSet is the sorted integer container (C2): a sorted array of
// fixed-width signed integers, widened in place when an out-of-range value
// is inserted.
type IntSet struct {
	width intsetWidth
	data  []byte // width-byte little-endian elements, strictly ascending
}

// NewIntSet creates an empty 16-bit-wide int set.
func NewIntSet() *IntSet {
	return &IntSet{width: width16}
}

func (is *IntSet) Len() int { return len(is.data) / int(is.width) }

func (is *IntSet) get(i int) int64 {
	off := i * int(is.width)
	switch is.width {
	case width16:
		return int64(int16(binary.LittleEndian.Uint16(is.data[off:])))
	case width32:
		return int64(int32(binary.LittleEndian.Uint32(is.data[off:])))
	default:
		return int64(binary.LittleEndian.Uint64(is.data[off:]))
	}
}

func (is *IntSet) put(i int, v int64) {
	off := i * int(is.width)
	switch is.width {
	case width16:
		binary.LittleEndian.PutUint16(is.data[off:], uint16(int16(v)))
	case width32:
		binary.LittleEndian.PutUint32(is.data[off:], uint32(int32(v)))
	default:
		binary.LittleEndian.PutUint64(is.data[off:], uint64(v))
	}
}

func widthFor(v int64) intsetWidth {
	switch {
	case v >= -32768 && v <= 32767:
		return width16
	case v >= -2147483648 && v <= 2147483647:
		return width32
	default:
		return width64
	}
}

// search performs a binary search, returning (index, found).
func (is *IntSet) search(v int64) (int, bool) {
	n := is.Len()
	idx := sort.Search(n, func(i int) bool { return is.get(i) >= v })
	if idx < n && is.get(idx) == v {
		return idx, true
	}
	return idx, false
}

// Contains reports whether v is a member.
func (is *IntSet) Contains(v int64) bool {
	_, found := is.search(v)
	return found
}

// upgrade widens every existing element to newWidth, rewriting back to
// front to avoid aliasing, then inserts v at the head (if negative) or the
// tail (if positive) — the only two cases that can trigger a widen, since
// v was by construction outside every existing element's range.
func (is *IntSet) upgrade(newWidth intsetWidth, v int64) {
	n := is.Len()
	newData := make([]byte, (n+1)*int(newWidth))

	old := is
	oldWidth := old.width
	_ = oldWidth

	prepend := v < 0
	var destStart int
	if prepend {
		destStart = 1
	}

	tmp := &IntSet{width: newWidth, data: newData}
	for i := n - 1; i >= 0; i-- {
		tmp.put(destStart+i, is.get(i))
	}

	is.width = newWidth
	is.data = newData
	if prepend {
		is.put(0, v)
	} else {
		is.put(n, v)
	}
}

// Add inserts v if absent, widening the representation first if needed.
// Returns true if a new element was added.
func (is *IntSet) Add(v int64) bool {
	need := widthFor(v)
	if need > is.width {
		is.upgrade(need, v)
		return true
	}

	idx, found := is.search(v)
	if found {
		return false
	}

	n := is.Len()
	is.data = append(is.data, make([]byte, is.width)...)
	// Shift elements [idx, n) right by one slot.
	copy(is.data[(idx+1)*int(is.width):], is.data[idx*int(is.width):n*int(is.width)])
	is.put(idx, v)
	return true
}

// Remove deletes v if present. Returns true if it was removed.
func (is *IntSet) Remove(v int64) bool {
	idx, found := is.search(v)
	if !found {
		return false
	}
	n := is.Len()
	w := int(is.width)
	copy(is.data[idx*w:], is.data[(idx+1)*w:n*w])
	is.data = is.data[:(n-1)*w]
	return true
}

// ToSlice returns every element in ascending order.
func (is *IntSet) ToSlice() []int64 {
	n := is.Len()
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = is.get(i)
	}
	return out
}

// Random returns a uniformly random element (for SRANDMEMBER/SPOP).
func (is *IntSet) Random(pick func(n int) int) (int64, bool) {
	n := is.Len()
	if n == 0 {
		return 0, false
	}
	return is.get(pick(n)), true
}

// Clone deep-copies the set.
func (is *IntSet) Clone() *IntSet {
	data := make([]byte, len(is.data))
	copy(data, is.data)
	return &IntSet{width: is.width, data: data}
}

// ByteSize reports the container's footprint.
func (is *IntSet) ByteSize() int { return len(is.data) }
