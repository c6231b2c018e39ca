package mp4tag

import (
	"encoding/binary"
	"io"
	"os"
)

// copySize mirrors MP4TAG_COPY_SIZE. copyN does not use it: io.CopyN
// picks its own buffer size.
const copySize = 5 * 1024 * 1024

// Write encodes the current tag store and commits it to disk: in place
// when the new tag list (plus a little breathing room) fits inside the
// space already reserved around the old one, or via a full, crash-safe
// rewrite otherwise.
//
// Per spec §4.7, write in place iff an ilst already exists and one of:
// the file is unlimited (its tag area runs to EOF, so it can always
// grow), the new body is exactly the old body's size, or the new body
// fits inside the old body plus its surrounding interior and exterior
// free space with room left for a minimum free box.
func (h *Handle) Write() error {
	if h.isStream || !h.canWrite {
		return newErr("Write", ErrCannotWrite, nil)
	}
	if !h.parsed {
		return newErr("Write", ErrNotParsed, nil)
	}

	payload := buildIlst(h)
	newBodyLen := int64(len(payload))
	newIlstLen := int64(boxHeadSz) + newBodyLen

	haveIlst := h.taglistOffset != 0
	var oldBodyLen, oldIlstTotal, interiorLen, exteriorLen int64
	if haveIlst {
		oldBodyLen = int64(h.taglistOrigLen)
		oldIlstTotal = h.afterIlstOffset - h.taglistBaseOffset
		interiorLen = int64(h.interiorFreeLen)
		exteriorLen = int64(h.exteriorFreeLen)
	}

	budget := oldBodyLen + interiorLen + exteriorLen - boxHeadSz
	canInPlace := haveIlst && !h.doFix &&
		(h.unlimited || newBodyLen == oldBodyLen || newBodyLen < budget)

	if canInPlace {
		return h.writeInPlace(h.taglistBaseOffset, oldIlstTotal, interiorLen, exteriorLen, payload)
	}

	oldTagAreaLen := oldIlstTotal + interiorLen
	newTagAreaLen := newIlstLen + int64(boxHeadSz) + int64(h.opts.FreeSpace)
	return h.writeRewrite(payload, newTagAreaLen-oldTagAreaLen)
}

// writeInPlace overwrites the existing ilst box and the interior free
// space immediately following it with the new ilst plus a trailing free
// box. Per spec §4.7 step 4, the new free box always consumes the whole
// of the remaining interior and exterior free region: exterior free
// space (a top-level 'free' sibling of moov, physically contiguous with
// moov's end) is folded into the combined free box, which is why
// meta/udta/moov's declared lengths grow by the amount of exterior free
// absorbed (patchParentLengths below), even though no bytes move and the
// overall file length is unchanged. When the handle is unlimited (its
// tag area runs to EOF) and the natural free space would leave less than
// a minimum padding, the file is grown to make room instead.
func (h *Handle) writeInPlace(tagAreaStart, oldIlstTotal, interiorLen, exteriorLen int64, payload []byte) error {
	f, ok := h.f.(*os.File)
	if !ok {
		return newErr("Write", ErrCannotWrite, nil)
	}

	newIlstLen := int64(boxHeadSz) + int64(len(payload))
	budgetTotal := oldIlstTotal + interiorLen + exteriorLen
	freeLen := budgetTotal - newIlstLen

	minPadding := int64(boxHeadSz) + int64(h.opts.FreeSpace)
	if h.unlimited && freeLen < minPadding {
		freeLen = minPadding
		budgetTotal = newIlstLen + freeLen
	}

	var buf []byte
	buf = putBoxHeader(buf, boxIlst, uint32(len(payload)))
	buf = append(buf, payload...)
	if freeLen >= boxHeadSz {
		buf = putBoxHeader(buf, boxFree, uint32(freeLen-boxHeadSz))
	} else if freeLen > 0 {
		buf = append(buf, make([]byte, freeLen)...)
	}

	if _, err := f.Seek(tagAreaStart, io.SeekStart); err != nil {
		return newErr("Write", ErrFileSeek, err)
	}
	if _, err := f.Write(buf); err != nil {
		return newErr("Write", ErrFileWrite, err)
	}

	newFileEnd := tagAreaStart + budgetTotal
	if h.unlimited && newFileEnd != h.filesz {
		if err := f.Truncate(newFileEnd); err != nil {
			return newErr("Write", ErrFileWrite, err)
		}
		h.filesz = newFileEnd
	}

	// Ancestor lengths change only when the written area grew past what
	// meta/udta/moov previously declared -- merging in exterior free
	// space, an unlimited-triggered grow, or both.
	if ancestorDelta := budgetTotal - (oldIlstTotal + interiorLen); ancestorDelta != 0 {
		if err := patchParentLengths(f, h.parentChain, int32(ancestorDelta)); err != nil {
			return err
		}
	}
	return nil
}

// writeRewrite performs a full, crash-safe rewrite: the new file is
// assembled in a temp file (everything up to the tag area, the new
// ilst + a fresh free box, then the untouched remainder of the original
// file with its stco/co64 sample-offset tables and ancestor box lengths
// patched for the size delta), then atomically swapped into place via
// fn -> fn.bak, tmp -> fn, optionally removing the backup.
func (h *Handle) writeRewrite(payload []byte, delta int64) error {
	src, ok := h.f.(*os.File)
	if !ok {
		return newErr("Write", ErrCannotWrite, nil)
	}

	tmpName := h.fn + ".tmp"
	dst, err := os.Create(tmpName)
	if err != nil {
		return newErr("Write", ErrFileWrite, err)
	}
	defer dst.Close()

	prefixEnd, tailStart, err := h.tagAreaBounds()
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return newErr("Write", ErrFileSeek, err)
	}
	if err := copyN(dst, src, prefixEnd); err != nil {
		os.Remove(tmpName)
		return newErr("Write", ErrFileWrite, err)
	}

	if h.taglistOffset == 0 {
		if err := writeSyntheticUdta(dst, payload, h.opts.FreeSpace); err != nil {
			os.Remove(tmpName)
			return err
		}
	} else {
		var buf []byte
		buf = putBoxHeader(buf, boxIlst, uint32(len(payload)))
		buf = append(buf, payload...)
		buf = putBoxHeader(buf, boxFree, h.opts.FreeSpace)
		buf = append(buf, make([]byte, h.opts.FreeSpace)...)
		if _, err := dst.Write(buf); err != nil {
			os.Remove(tmpName)
			return newErr("Write", ErrFileWrite, err)
		}
	}

	if _, err := src.Seek(tailStart, io.SeekStart); err != nil {
		os.Remove(tmpName)
		return newErr("Write", ErrFileSeek, err)
	}
	if err := copyN(dst, src, h.filesz-tailStart); err != nil {
		os.Remove(tmpName)
		return newErr("Write", ErrFileWrite, err)
	}

	if err := patchParentLengths(dst, h.parentChain, int32(delta)); err != nil {
		os.Remove(tmpName)
		return err
	}

	boundary := h.afterIlstOffset
	if h.taglistOffset == 0 {
		boundary = h.noIlstOffset
	}
	if err := patchSampleTables(dst, boundary, delta); err != nil {
		os.Remove(tmpName)
		return err
	}

	return h.commitRewrite(tmpName)
}

// tagAreaBounds returns [prefixEnd, tailStart): the byte range replaced
// by the new ilst+free area. When ilst already exists this is its box
// plus the interior free space directly following it; when absent, it
// is the empty range right at the end of udta ('noIlstOffset'), where a
// brand new meta/hdlr/ilst structure will be inserted.
func (h *Handle) tagAreaBounds() (prefixEnd, tailStart int64, err error) {
	if h.taglistOffset != 0 {
		return h.taglistBaseOffset, h.afterIlstOffset + int64(h.interiorFreeLen), nil
	}
	if h.noIlstOffset < 0 {
		return 0, 0, newErr("Write", ErrUnableToProcess, nil)
	}
	return h.noIlstOffset, h.noIlstOffset, nil
}

// writeSyntheticUdta emits a brand new meta/hdlr/ilst structure, written
// at the end of an existing udta that has no meta/ilst ('noIlstOffset');
// a file with no udta at all is rejected earlier by tagAreaBounds. The
// layout is meta's 4-byte version/flags, a minimal 'hdlr' box
// (version/flags=0, predefined=0, handler="mdir", then "appl" and 12
// zero reserved bytes, then a one-byte empty component-name string),
// then the ilst box and a trailing free box with freeLen zero bytes.
func writeSyntheticUdta(w io.Writer, payload []byte, freeLen uint32) error {
	var hdlr []byte
	hdlr = append(hdlr, 0, 0, 0, 0) // version + flags
	hdlr = append(hdlr, 0, 0, 0, 0) // predefined
	hdlr = append(hdlr, "mdir"...)
	hdlr = append(hdlr, "appl"...)
	hdlr = append(hdlr, make([]byte, 12)...) // reserved
	hdlr = append(hdlr, 0)                   // empty pascal-style name

	var hdlrBox []byte
	hdlrBox = putBoxHeader(hdlrBox, boxHdlr, uint32(len(hdlr)))
	hdlrBox = append(hdlrBox, hdlr...)

	var ilstBox []byte
	ilstBox = putBoxHeader(ilstBox, boxIlst, uint32(len(payload)))
	ilstBox = append(ilstBox, payload...)

	var freeBox []byte
	freeBox = putBoxHeader(freeBox, boxFree, freeLen)
	freeBox = append(freeBox, make([]byte, freeLen)...)

	var metaInner []byte
	metaInner = append(metaInner, 0, 0, 0, 0) // meta version + flags
	metaInner = append(metaInner, hdlrBox...)
	metaInner = append(metaInner, ilstBox...)
	metaInner = append(metaInner, freeBox...)

	var metaBox []byte
	metaBox = putBoxHeader(metaBox, boxMeta, uint32(len(metaInner)))
	metaBox = append(metaBox, metaInner...)

	_, err := w.Write(metaBox)
	return err
}

// commitRewrite performs the crash-safe swap: rename the live file to a
// ".bak", rename the temp file into the live file's place, then remove
// the backup unless the caller asked to keep it.
func (h *Handle) commitRewrite(tmpName string) error {
	bakName := h.fn + ".bak"

	if closer, ok := h.f.(*os.File); ok {
		closer.Close()
	}

	if err := os.Rename(h.fn, bakName); err != nil {
		os.Remove(tmpName)
		return newErr("Write", ErrFileWrite, err)
	}
	if err := os.Rename(tmpName, h.fn); err != nil {
		os.Rename(bakName, h.fn)
		return newErr("Write", ErrFileWrite, err)
	}
	if !h.opts.KeepBackup {
		os.Remove(bakName)
	}

	f, err := os.OpenFile(h.fn, os.O_RDWR, 0)
	if err != nil {
		return newErr("Write", ErrFileNotFound, err)
	}
	h.f = f
	if info, err := f.Stat(); err == nil {
		h.filesz = info.Size()
	}
	h.parsed = false
	return h.Parse()
}

// copyN streams exactly n bytes from r to w with io.CopyN.
func copyN(w io.Writer, r io.Reader, n int64) error {
	_, err := io.CopyN(w, r, n)
	if err == io.EOF && n == 0 {
		return nil
	}
	return err
}

// patchParentLengths rewrites each ancestor box's 4-byte length field by
// adding delta, mirroring mp4tag_update_parent_lengths.
func patchParentLengths(f *os.File, chain []parentFrame, delta int32) error {
	for _, p := range chain {
		if _, err := f.Seek(p.headerOff, io.SeekStart); err != nil {
			return newErr("Write", ErrFileSeek, err)
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int64(p.declaredLen)+int64(delta)))
		if _, err := f.Write(b[:]); err != nil {
			return newErr("Write", ErrFileWrite, err)
		}
	}
	return nil
}

// patchSampleTables re-walks the freshly written file's moov/trak tree
// and adds delta to every stco (32-bit) and co64 (64-bit) sample-offset
// entry whose value is strictly greater than boundary -- an offset
// exactly at the boundary (the first byte after the old ilst box, or the
// insertion point when there was no ilst) is, as in
// mp4tag_update_offset_block, left unshifted.
func patchSampleTables(f *os.File, boundary, delta int64) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return newErr("Write", ErrFileSeek, err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return newErr("Write", ErrFileSeek, err)
	}
	return walkForSampleTables(f, 0, size, boundary, delta)
}

func walkForSampleTables(f *os.File, start, end, boundary, delta int64) error {
	offset := start
	for offset < end {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return newErr("Write", ErrFileSeek, err)
		}
		b, err := readBoxHeader(f)
		if err != nil {
			return nil // truncated trailer (e.g. free-to-EOF); nothing more to patch
		}
		switch b.typ {
		case boxMoov, boxTrak, boxMdia, boxMinf, boxStbl:
			if err := walkForSampleTables(f, b.dataOff, b.end(), boundary, delta); err != nil {
				return err
			}
		case boxStco:
			if err := patchStco(f, b, boundary, delta); err != nil {
				return err
			}
		case boxCo64:
			if err := patchCo64(f, b, boundary, delta); err != nil {
				return err
			}
		}
		offset = b.end()
	}
	return nil
}

func patchStco(f *os.File, b box, boundary, delta int64) error {
	// dataOff is the start of the FullBox payload: 4 bytes version/flags,
	// then entry_count, then the offset array itself.
	hdr := make([]byte, 4)
	if _, err := f.ReadAt(hdr, b.dataOff+4); err != nil {
		return newErr("Write", ErrFileRead, err)
	}
	count := binary.BigEndian.Uint32(hdr)
	entries := make([]byte, 4*int64(count))
	if _, err := f.ReadAt(entries, b.dataOff+8); err != nil {
		return newErr("Write", ErrFileRead, err)
	}
	changed := false
	for i := uint32(0); i < count; i++ {
		off := binary.BigEndian.Uint32(entries[i*4 : i*4+4])
		if int64(off) > boundary {
			binary.BigEndian.PutUint32(entries[i*4:i*4+4], uint32(int64(off)+delta))
			changed = true
		}
	}
	if changed {
		if _, err := f.WriteAt(entries, b.dataOff+8); err != nil {
			return newErr("Write", ErrFileWrite, err)
		}
	}
	return nil
}

func patchCo64(f *os.File, b box, boundary, delta int64) error {
	// Same FullBox layout as stco, 8-byte offsets instead of 4.
	hdr := make([]byte, 4)
	if _, err := f.ReadAt(hdr, b.dataOff+4); err != nil {
		return newErr("Write", ErrFileRead, err)
	}
	count := binary.BigEndian.Uint32(hdr)
	entries := make([]byte, 8*int64(count))
	if _, err := f.ReadAt(entries, b.dataOff+8); err != nil {
		return newErr("Write", ErrFileRead, err)
	}
	changed := false
	for i := uint32(0); i < count; i++ {
		off := binary.BigEndian.Uint64(entries[i*8 : i*8+8])
		if int64(off) > boundary {
			binary.BigEndian.PutUint64(entries[i*8:i*8+8], uint64(int64(off)+delta))
			changed = true
		}
	}
	if changed {
		if _, err := f.WriteAt(entries, b.dataOff+8); err != nil {
			return newErr("Write", ErrFileWrite, err)
		}
	}
	return nil
}
