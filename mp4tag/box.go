package mp4tag

import (
	"encoding/binary"
	"io"
)

// boxHeadSz is the size of a standard 32-bit length + 4-byte type box
// header (MP4TAG_BOXHEAD_SZ).
const boxHeadSz = 8

// box describes one length-prefixed MPEG-4 box as seen while walking the
// file: its type, where its header starts, where its payload starts,
// and the payload's length (after extended-size/largesize has already
// been resolved).
type box struct {
	typ        string
	headerOff  int64 // offset of the 32-bit size field
	dataOff    int64 // offset of the first payload byte
	dataLen    int64 // payload length, excluding the header
	largeSize  bool  // true if this box used the 64-bit "largesize" form
}

// end returns the offset just past this box's payload.
func (b box) end() int64 { return b.dataOff + b.dataLen }

// readBoxHeader reads one box header at the current reader position,
// returning the decoded box. A declared 32-bit length of exactly 1 means
// the real length follows as a 64-bit big-endian "largesize" field
// immediately after the type (ISO/IEC 14496-12 §4.2). A length of 0
// means "box runs to EOF", legal only for the top-level 'mdat' box.
func readBoxHeader(r io.ReadSeeker) (box, error) {
	headerOff, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return box{}, err
	}

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return box{}, err
	}
	size32 := binary.BigEndian.Uint32(hdr[0:4])
	typ := string(hdr[4:8])

	dataOff := headerOff + boxHeadSz
	var dataLen int64
	largeSize := false

	switch size32 {
	case 1:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return box{}, err
		}
		full := binary.BigEndian.Uint64(ext[:])
		dataOff += 8
		dataLen = int64(full) - (boxHeadSz + 8)
		largeSize = true
	case 0:
		end, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return box{}, err
		}
		dataLen = end - dataOff
		if _, err := r.Seek(dataOff, io.SeekStart); err != nil {
			return box{}, err
		}
	default:
		dataLen = int64(size32) - boxHeadSz
	}

	return box{typ: typ, headerOff: headerOff, dataOff: dataOff, dataLen: dataLen, largeSize: largeSize}, nil
}

// putU16 appends a big-endian uint16.
func putU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// putU32 appends a big-endian uint32.
func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// putU64 appends a big-endian uint64.
func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// putBoxHeader appends a standard 8-byte box header (size + type) for a
// box whose payload is dataLen bytes long. Callers needing a backpatched
// length (most container boxes, since children are appended after the
// header is written) pass 0 and fix the length up later with
// patchU32Len.
func putBoxHeader(buf []byte, typ string, dataLen uint32) []byte {
	buf = putU32(buf, dataLen+boxHeadSz)
	buf = append(buf, typ...)
	return buf
}

// patchU32Len rewrites the 4-byte length field at offset off (the start
// of a box header) so that the box's total length equals
// len(buf)-off, exactly mirroring the write side's repeated backpatching
// of a still-open container's length as children are appended.
func patchU32Len(buf []byte, off int) {
	total := uint32(len(buf) - off)
	binary.BigEndian.PutUint32(buf[off:off+4], total)
}
