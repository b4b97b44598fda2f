package storage

import (
	"encoding/binary"
	"strconv"
)

// Ziplist is the compact sequence container (C1): a single contiguous byte
// buffer holding a sequence of variable-length entries, each carrying the
// encoded length of its predecessor so the list can be walked in either
// direction without a separate index.
//
// Layout: [zlbytes(4)][zltail(4)][zllen(2)] entry* [0xFF]
//
// zllen holds the entry count, capped at zllenUnknown (0xFFFF) — once the
// list grows past that many entries, callers must scan to count them.
type Ziplist struct {
	buf []byte
}

const (
	zlHeaderSize = 4 + 4 + 2
	zlEnd        = 0xFF
	zllenUnknown = 0xFFFF
)

// Entry encoding bytes, mirroring the ziplist format: the top two bits of
// the first encoding byte select the payload kind.
const (
	zlStr6  = 0x00 // 00xxxxxx: 6-bit length string
	zlStr14 = 0x40 // 01xxxxxx xxxxxxxx: 14-bit length string
	zlStr32 = 0x80 // 10000000 + 4 byte length: 32-bit length string
	zlInt16 = 0xC0 | 1
	zlInt32 = 0xC0 | 2
	zlInt64 = 0xC0 | 3
	zlInt24 = 0xC0 | 4
	zlInt8  = 0xC0 | 5
	// 0xF1..0xFD: 4-bit immediate integer, value = (byte & 0x0F) - 1, range 0..12
	zlInt4Min = 0xF1
	zlInt4Max = 0xFD
)

// NewZiplist creates an empty compact sequence.
func NewZiplist() *Ziplist {
	zl := &Ziplist{buf: make([]byte, zlHeaderSize+1)}
	zl.buf[zlHeaderSize] = zlEnd
	zl.setBytes(uint32(len(zl.buf)))
	zl.setTail(uint32(zlHeaderSize))
	zl.setLen(0)
	return zl
}

func (zl *Ziplist) setBytes(n uint32)   { binary.LittleEndian.PutUint32(zl.buf[0:4], n) }
func (zl *Ziplist) bytesLen() uint32    { return binary.LittleEndian.Uint32(zl.buf[0:4]) }
func (zl *Ziplist) setTail(off uint32)  { binary.LittleEndian.PutUint32(zl.buf[4:8], off) }
func (zl *Ziplist) tailOffset() uint32  { return binary.LittleEndian.Uint32(zl.buf[4:8]) }
func (zl *Ziplist) setLen(n uint16)     { binary.LittleEndian.PutUint16(zl.buf[8:10], n) }
func (zl *Ziplist) rawLen() uint16      { return binary.LittleEndian.Uint16(zl.buf[8:10]) }

// Len returns the number of entries, scanning if the cached counter
// overflowed its 16-bit field.
func (zl *Ziplist) Len() int {
	n := zl.rawLen()
	if n != zllenUnknown {
		return int(n)
	}
	count := 0
	for off := uint32(zlHeaderSize); zl.buf[off] != zlEnd; {
		_, entryLen, _ := decodeEntry(zl.buf, off)
		off += entryLen
		count++
	}
	return count
}

func (zl *Ziplist) bumpLen(delta int) {
	n := zl.rawLen()
	if n == zllenUnknown {
		return
	}
	newLen := int(n) + delta
	if newLen < 0 || newLen >= zllenUnknown {
		zl.setLen(zllenUnknown)
		return
	}
	zl.setLen(uint16(newLen))
}

// entry describes one decoded ziplist entry.
type entry struct {
	prevLen      uint32 // encoded length of the PREVIOUS entry
	prevLenBytes int    // 1 or 5
	headerBytes  int    // bytes used by the encoding+length header (not counting prevlen)
	isInt        bool
	intVal       int64
	str          []byte
}

func (e *entry) totalLen() uint32 {
	return uint32(e.prevLenBytes+e.headerBytes) + payloadLen(e)
}

func payloadLen(e *entry) uint32 {
	if e.isInt {
		return 0 // integer payload is folded into headerBytes accounting below
	}
	return uint32(len(e.str))
}

// encodePrevLen writes the back-link for "prevLen" bytes of the previous
// entry, using 1 byte when it fits, else 5 (marker 0xFE + uint32).
func encodePrevLen(buf []byte, prevLen uint32) []byte {
	if prevLen < 254 {
		return append(buf, byte(prevLen))
	}
	b := make([]byte, 5)
	b[0] = 0xFE
	binary.LittleEndian.PutUint32(b[1:], prevLen)
	return append(buf, b...)
}

func prevLenSize(prevLen uint32) int {
	if prevLen < 254 {
		return 1
	}
	return 5
}

func decodePrevLen(buf []byte, off uint32) (prevLen uint32, size int) {
	if buf[off] < 254 {
		return uint32(buf[off]), 1
	}
	return binary.LittleEndian.Uint32(buf[off+1:]), 5
}

// tryEncodeInt attempts to parse s as an integer that fits the ziplist's
// inline integer encodings; used to shrink storage for numeric members.
func tryEncodeInt(s []byte) (int64, bool) {
	if len(s) == 0 || len(s) > 20 {
		return 0, false
	}
	v, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return 0, false
	}
	// Reject forms that wouldn't round-trip byte-for-byte (leading zeros, "+", etc).
	if strconv.FormatInt(v, 10) != string(s) {
		return 0, false
	}
	return v, true
}

func encodeEntryPayload(value []byte) (header []byte, payload []byte) {
	if iv, ok := tryEncodeInt(value); ok {
		switch {
		case iv >= 0 && iv <= 12:
			return []byte{byte(zlInt4Min + iv)}, nil
		case iv >= -128 && iv <= 127:
			buf := make([]byte, 2)
			buf[0] = zlInt8
			buf[1] = byte(int8(iv))
			return buf[:1], buf[1:]
		case iv >= -32768 && iv <= 32767:
			buf := make([]byte, 3)
			buf[0] = zlInt16
			binary.LittleEndian.PutUint16(buf[1:], uint16(int16(iv)))
			return buf[:1], buf[1:]
		case iv >= -8388608 && iv <= 8388607:
			buf := make([]byte, 4)
			buf[0] = zlInt24
			b3 := make([]byte, 4)
			binary.LittleEndian.PutUint32(b3, uint32(iv)&0xFFFFFF)
			copy(buf[1:], b3[:3])
			return buf[:1], buf[1:]
		case iv >= -2147483648 && iv <= 2147483647:
			buf := make([]byte, 5)
			buf[0] = zlInt32
			binary.LittleEndian.PutUint32(buf[1:], uint32(int32(iv)))
			return buf[:1], buf[1:]
		default:
			buf := make([]byte, 9)
			buf[0] = zlInt64
			binary.LittleEndian.PutUint64(buf[1:], uint64(iv))
			return buf[:1], buf[1:]
		}
	}

	n := len(value)
	switch {
	case n < 64:
		return []byte{byte(zlStr6 | n)}, value
	case n < 16384:
		return []byte{byte(zlStr14 | (n >> 8)), byte(n)}, value
	default:
		buf := make([]byte, 5)
		buf[0] = zlStr32
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		return buf, value
	}
}

// decodeEntry reads the entry at byte offset off, returning the decoded
// entry and its total byte length.
func decodeEntry(buf []byte, off uint32) (entry, uint32, bool) {
	if buf[off] == zlEnd {
		return entry{}, 0, false
	}
	var e entry
	e.prevLen, e.prevLenBytes = decodePrevLen(buf, off)
	p := off + uint32(e.prevLenBytes)
	enc := buf[p]

	switch {
	case enc&0xC0 == zlStr6:
		n := int(enc & 0x3F)
		e.headerBytes = 1
		e.str = buf[p+1 : p+1+uint32(n)]
	case enc&0xC0 == zlStr14:
		n := (int(enc&0x3F) << 8) | int(buf[p+1])
		e.headerBytes = 2
		e.str = buf[p+2 : p+2+uint32(n)]
	case enc == zlStr32:
		n := int(binary.LittleEndian.Uint32(buf[p+1 : p+5]))
		e.headerBytes = 5
		e.str = buf[p+5 : p+5+uint32(n)]
	case enc >= zlInt4Min && enc <= zlInt4Max:
		e.isInt = true
		e.headerBytes = 1
		e.intVal = int64(enc) - int64(zlInt4Min)
	case enc == zlInt8:
		e.isInt = true
		e.headerBytes = 2
		e.intVal = int64(int8(buf[p+1]))
	case enc == zlInt16:
		e.isInt = true
		e.headerBytes = 3
		e.intVal = int64(int16(binary.LittleEndian.Uint16(buf[p+1 : p+3])))
	case enc == zlInt24:
		e.isInt = true
		e.headerBytes = 4
		tmp := make([]byte, 4)
		copy(tmp, buf[p+1:p+4])
		v := int32(binary.LittleEndian.Uint32(tmp))
		v = (v << 8) >> 8 // sign-extend 24 -> 32
		e.intVal = int64(v)
	case enc == zlInt32:
		e.isInt = true
		e.headerBytes = 5
		e.intVal = int64(int32(binary.LittleEndian.Uint32(buf[p+1 : p+5])))
	case enc == zlInt64:
		e.isInt = true
		e.headerBytes = 9
		e.intVal = int64(binary.LittleEndian.Uint64(buf[p+1 : p+9]))
	default:
		return entry{}, 0, false
	}

	total := uint32(e.prevLenBytes+e.headerBytes) + uint32(len(e.str))
	return e, total, true
}

// Value renders the entry's payload back to its external byte-string form.
func (e *entry) Value() []byte {
	if e.isInt {
		return []byte(strconv.FormatInt(e.intVal, 10))
	}
	return e.str
}

// Get returns the raw value bytes at position index (0-based; negative
// indices count from the tail), or (nil, false) if out of range.
func (zl *Ziplist) Get(index int) ([]byte, bool) {
	n := zl.Len()
	if index < 0 {
		index = n + index
	}
	if index < 0 || index >= n {
		return nil, false
	}

	// Walk from whichever end is closer.
	if index <= n/2 {
		off := uint32(zlHeaderSize)
		for i := 0; i < index; i++ {
			_, elen, ok := decodeEntry(zl.buf, off)
			if !ok {
				return nil, false
			}
			off += elen
		}
		e, _, ok := decodeEntry(zl.buf, off)
		if !ok {
			return nil, false
		}
		return e.Value(), true
	}

	off := zl.tailOffset()
	for i := n - 1; i > index; i-- {
		e, _, ok := decodeEntry(zl.buf, off)
		if !ok {
			return nil, false
		}
		off -= e.prevLen
	}
	e, _, ok := decodeEntry(zl.buf, off)
	if !ok {
		return nil, false
	}
	return e.Value(), true
}

// ToSlice materializes every entry's value, in order.
func (zl *Ziplist) ToSlice() [][]byte {
	n := zl.Len()
	out := make([][]byte, 0, n)
	off := uint32(zlHeaderSize)
	for zl.buf[off] != zlEnd {
		e, elen, ok := decodeEntry(zl.buf, off)
		if !ok {
			break
		}
		out = append(out, e.Value())
		off += elen
	}
	return out
}

// PushTail appends value at the end, just before the end marker.
func (zl *Ziplist) PushTail(value []byte) {
	zl.insertAt(uint32(len(zl.buf))-1, value)
}

// PushHead prepends value — O(1) amortized.
func (zl *Ziplist) PushHead(value []byte) {
	zl.insertAt(zlHeaderSize, value)
}

// PopHead removes and returns the first entry.
func (zl *Ziplist) PopHead() ([]byte, bool) {
	if zl.Len() == 0 {
		return nil, false
	}
	v, _ := zl.Get(0)
	zl.deleteRange(0, 1)
	return v, true
}

// PopTail removes and returns the last entry.
func (zl *Ziplist) PopTail() ([]byte, bool) {
	n := zl.Len()
	if n == 0 {
		return nil, false
	}
	v, _ := zl.Get(n - 1)
	zl.deleteRange(n-1, 1)
	return v, true
}

// Set overwrites the value at index (delete+insert; ziplist entries aren't
// updated in place since the new payload may not be the same size).
func (zl *Ziplist) Set(index int, value []byte) bool {
	n := zl.Len()
	if index < 0 {
		index = n + index
	}
	if index < 0 || index >= n {
		return false
	}
	off := zl.offsetOf(index)
	zl.deleteRange(index, 1)
	zl.insertAt(zl.offsetOf(index), value)
	_ = off
	return true
}

// InsertBefore inserts value before position index (0-based).
func (zl *Ziplist) InsertBefore(index int, value []byte) {
	n := zl.Len()
	if index < 0 {
		index = n + index
	}
	if index >= n {
		zl.PushTail(value)
		return
	}
	if index < 0 {
		index = 0
	}
	zl.insertAt(zl.offsetOf(index), value)
}

// InsertAfter inserts value after position index (0-based).
func (zl *Ziplist) InsertAfter(index int, value []byte) {
	zl.InsertBefore(index+1, value)
}

// DeleteAt removes the entry at index. Returns true if an entry was removed.
func (zl *Ziplist) DeleteAt(index int) bool {
	n := zl.Len()
	if index < 0 {
		index = n + index
	}
	if index < 0 || index >= n {
		return false
	}
	zl.deleteRange(index, 1)
	return true
}

func (zl *Ziplist) offsetOf(index int) uint32 {
	off := uint32(zlHeaderSize)
	for i := 0; i < index; i++ {
		_, elen, ok := decodeEntry(zl.buf, off)
		if !ok {
			break
		}
		off += elen
	}
	return off
}

// insertAt splices a new entry encoding value in at byte offset off,
// computing its prevlen from the entry just before off (or 0 at the head),
// then running the cascade-update pass forward from the new entry.
func (zl *Ziplist) insertAt(off uint32, value []byte) {
	var prevLen uint32
	if off > zlHeaderSize {
		// prevLen of the new entry = length of the entry immediately before it.
		_, plen, ok := decodeEntry(zl.buf, prevEntryOffset(zl.buf, off))
		if ok {
			prevLen = plen
		}
	}

	header, payload := encodeEntryPayload(value)
	var newEntry []byte
	newEntry = encodePrevLen(newEntry, prevLen)
	newEntry = append(newEntry, header...)
	newEntry = append(newEntry, payload...)

	atEnd := off == uint32(len(zl.buf))-1

	grown := make([]byte, 0, len(zl.buf)+len(newEntry))
	grown = append(grown, zl.buf[:off]...)
	grown = append(grown, newEntry...)
	grown = append(grown, zl.buf[off:]...)
	zl.buf = grown

	if atEnd {
		zl.setTail(off)
	} else {
		zl.setTail(zl.tailOffset() + uint32(len(newEntry)))
	}
	zl.bumpLen(1)
	zl.setBytes(uint32(len(zl.buf)))

	zl.cascadeUpdate(off + uint32(len(newEntry)))
}

// prevEntryOffset scans from the head to find the entry immediately
// preceding byte offset off. Only used by insertAt, which already knows
// off is a valid entry boundary.
func prevEntryOffset(buf []byte, off uint32) uint32 {
	prev := uint32(zlHeaderSize)
	cur := uint32(zlHeaderSize)
	for cur < off {
		_, elen, ok := decodeEntry(buf, cur)
		if !ok {
			break
		}
		prev = cur
		cur += elen
	}
	return prev
}

// cascadeUpdate re-encodes the prevlen field of the entry starting at off
// if it now needs to grow from 1 to 5 bytes to represent its predecessor's
// length, and propagates forward until a successor's prevlen field is
// already wide enough. Shrinkage is never propagated (§4.1).
func (zl *Ziplist) cascadeUpdate(off uint32) {
	for off < uint32(len(zl.buf)) && zl.buf[off] != zlEnd {
		predOff := prevEntryOffset(zl.buf, off)
		_, predLen, ok := decodeEntry(zl.buf, predOff)
		if !ok {
			return
		}

		curPrevLen, curPrevBytes := decodePrevLen(zl.buf, off)
		neededBytes := prevLenSize(predLen)
		if curPrevLen == predLen && curPrevBytes == neededBytes {
			return // stable
		}
		if neededBytes <= curPrevBytes {
			// Field already wide enough (or wider, which we never shrink);
			// just refresh the value in place.
			if curPrevBytes == 1 {
				zl.buf[off] = byte(predLen)
			} else {
				binary.LittleEndian.PutUint32(zl.buf[off+1:off+5], predLen)
			}
			return
		}

		// Must widen 1 -> 5 bytes: splice in 4 extra bytes and rewrite.
		_, entryTotalOld, _ := decodeEntry(zl.buf, off)
		wasTail := off == zl.tailOffset()

		rest := append([]byte{}, zl.buf[off+entryTotalOld:]...)
		head := append([]byte{}, zl.buf[:off]...)

		var rebuilt []byte
		rebuilt = encodePrevLen(rebuilt, predLen)
		// re-derive header+payload bytes for this entry (skip old prevlen).
		oldHeaderStart := off + uint32(curPrevBytes)
		rebuilt = append(rebuilt, zl.buf[oldHeaderStart:off+entryTotalOld]...)

		zl.buf = append(head, append(rebuilt, rest...)...)
		zl.setBytes(uint32(len(zl.buf)))
		if wasTail {
			zl.setTail(off)
		} else {
			zl.setTail(zl.tailOffset() + uint32(len(rebuilt)) - entryTotalOld)
		}

		off += uint32(len(rebuilt))
	}
}

// deleteRange removes `count` entries starting at index. Successor prevlen
// is recomputed against the new predecessor but never shrunk below its
// current width (same anti-oscillation rule as growth).
func (zl *Ziplist) deleteRange(index, count int) {
	n := zl.Len()
	if index < 0 || index >= n || count <= 0 {
		return
	}
	if index+count > n {
		count = n - index
	}

	startOff := zl.offsetOf(index)
	endOff := startOff
	for i := 0; i < count; i++ {
		_, elen, ok := decodeEntry(zl.buf, endOff)
		if !ok {
			break
		}
		endOff += elen
	}

	shrunk := append([]byte{}, zl.buf[:startOff]...)
	shrunk = append(shrunk, zl.buf[endOff:]...)
	zl.buf = shrunk
	zl.bumpLen(-count)
	zl.setBytes(uint32(len(zl.buf)))
	zl.fixTail()

	zl.cascadeUpdate(startOff)
}

func (zl *Ziplist) fixTail() {
	off := uint32(zlHeaderSize)
	last := off
	for zl.buf[off] != zlEnd {
		last = off
		_, elen, ok := decodeEntry(zl.buf, off)
		if !ok {
			break
		}
		off += elen
	}
	if zl.Len() == 0 {
		zl.setTail(zlHeaderSize)
		return
	}
	zl.setTail(last)
}

// Clone deep-copies the buffer (for copy-on-write snapshotting).
func (zl *Ziplist) Clone() *Ziplist {
	out := make([]byte, len(zl.buf))
	copy(out, zl.buf)
	return &Ziplist{buf: out}
}

// ByteSize reports the container's total footprint.
func (zl *Ziplist) ByteSize() int { return len(zl.buf) }
