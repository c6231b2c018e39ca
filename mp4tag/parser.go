package mp4tag

import (
	"encoding/binary"
	"io"
	"os"
)

// knownBrands is the set of major/compatible brand tokens libmp4tag
// checks ftyp against; at least three hits among the box's brand+minor
// version+compatible-brand list are required before the file is
// accepted as a usable MP4 (mp4tag_parse_ftyp).
var knownBrands = map[string]bool{
	"isom": true, "iso2": true, "mp41": true, "mp42": true,
	"M4A ": true, "M4B ": true, "M4V ": true, "M4P ": true,
	"qt  ": true, "dash": true, "avc1": true, "3gp4": true,
	"3gp5": true, "3gp6": true, "mp71": true, "mp7b": true,
}

// parentFrame records one ancestor box's length field location and
// original declared length, captured along the path down to 'ilst' so
// the rewriter can add the same delta to every ancestor's length field
// (mp4tag_update_parent_lengths). Ordered outermost ('moov') first.
type parentFrame struct {
	name        string
	headerOff   int64
	declaredLen uint32
}

type parseCtx struct {
	h       *Handle
	r       io.ReadSeeker
	parents []parentFrame
	depth   int
}

// enter/leave bound the box-tree descent to levelMax nesting levels, the
// same ceiling libmp4tag's level-indexed bookkeeping arrays
// (base_lengths/base_offsets/rem_length, each sized MP4TAG_LEVEL_MAX) are
// built to never exceed.
func (ctx *parseCtx) enter() error {
	ctx.depth++
	if ctx.depth > levelMax {
		return newErr("Parse", ErrUnableToProcess, nil)
	}
	return nil
}

func (ctx *parseCtx) leave() { ctx.depth-- }

// Parse walks the box tree, verifies the ftyp brand, locates
// moov/udta/meta/ilst, decodes its tag children into the handle's store,
// and accounts for free space around the tag list so Write can decide
// between an in-place patch and a full rewrite. If the walk turns up the
// narrow version-1.3.0 corruption signature and the handle owns a
// writable file, it heals once (mp4tag_parse's update-lengths/reparse
// sequence) before returning.
func (h *Handle) Parse() error {
	if h.parsed {
		return nil
	}
	if err := h.parseOnce(); err != nil {
		return err
	}
	if h.doFix && h.canWrite && h.ilstRemaining != 0 {
		if err := h.healVersion130Bug(); err != nil {
			return err
		}
	}
	h.parsed = true
	return nil
}

// healVersion130Bug mirrors mp4tag_parse's handling of libmp4tag_t's
// "version 1.3.x would not calculate the correct lengths for the
// containers if two free boxes got combined" case: it trims the leaked
// ilst_remaining byte count from every captured ancestor box's length
// field on disk, then discards and rebuilds the in-memory state and
// reparses from the top -- once, not in a loop, matching the original's
// single refree/reinit/reparse (a file whose signature still matches
// after this leaves doFix set again for Write to fall back on).
func (h *Handle) healVersion130Bug() error {
	f, ok := h.f.(*os.File)
	if !ok {
		return nil
	}
	if err := patchParentLengths(f, h.parentChain, -int32(h.ilstRemaining)); err != nil {
		return err
	}
	h.doFix = false
	h.ilstRemain, h.ilstDone, h.freeNeg, h.udtaZero = false, false, false, false
	h.ilstRemaining = 0
	return h.parseOnce()
}

// parseOnce runs a single top-to-bottom box walk, (re)initialising every
// piece of parse-derived bookkeeping on the handle first.
func (h *Handle) parseOnce() error {
	r := h.reader()
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return newErr("Parse", ErrFileSeek, err)
	}

	ctx := &parseCtx{h: h, r: r}
	h.store = store{}
	h.noIlstOffset = -1
	h.afterIlstOffset = -1
	h.taglistBaseOffset = 0
	h.taglistOffset = 0
	h.stcoOffset, h.co64Offset = 0, 0
	h.interiorFreeLen, h.exteriorFreeLen = 0, 0
	h.unlimited = false
	h.parentChain = nil

	var sawFtyp, sawMoov, sawMdat bool
	var offset int64
	for offset < h.filesz {
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return newErr("Parse", ErrFileSeek, err)
		}
		b, err := readBoxHeader(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return newErr("Parse", ErrFileRead, err)
		}

		switch b.typ {
		case boxFtyp:
			ok, mp7, err := ctx.parseFtyp(b)
			if err != nil {
				return err
			}
			if !ok {
				return newErr("Parse", ErrNotMP4, nil)
			}
			h.mp7meta = mp7
			sawFtyp = true

		case boxMoov:
			// A moov fragment past the first mdat is the interleaved/
			// fragmented-recovery layout libmp4tag refuses to touch: the
			// scalar stco/co64 delta patch this package performs on write
			// assumes a single, complete sample-offset table, which does
			// not hold once a second moov can appear.
			if sawMdat {
				return newErr("Parse", ErrUnableToProcess, nil)
			}
			if err := ctx.walkMoov(b); err != nil {
				return err
			}
			sawMoov = true

		case boxFree:
			if sawMoov {
				h.exteriorFreeLen += uint32(b.end() - b.headerOff)
			}

		default:
			// mdat and anything else the parser does not need.
			sawMdat = true
		}

		offset = b.end()
		if offset == h.filesz && b.typ == boxFree {
			h.unlimited = true
		}
	}

	if !sawFtyp {
		return newErr("Parse", ErrNotMP4, nil)
	}
	if !sawMoov {
		return newErr("Parse", ErrNotMP4, nil)
	}

	h.store.sort()
	for i := range h.store.tags {
		h.store.tags[i].Priority = priorityFor(h.store.tags[i].Name)
	}
	return nil
}

// parseFtyp checks the major brand, minor version (as a 4-byte token,
// matched loosely against the same table), and every compatible-brand
// entry; mp4tag_parse_ftyp requires 3 or more matches. mp71/mp7b marks
// the file as carrying parsed-but-not-editable MPEG-7 metadata.
func (ctx *parseCtx) parseFtyp(b box) (ok bool, mp7 bool, err error) {
	if b.dataLen < 8 {
		return false, false, nil
	}
	buf := make([]byte, b.dataLen)
	if _, err := io.ReadFull(ctx.r, buf); err != nil {
		return false, false, newErr("parseFtyp", ErrFileRead, err)
	}
	matches := 0
	check := func(tok string) {
		if knownBrands[tok] {
			matches++
		}
		if tok == "mp71" || tok == "mp7b" {
			mp7 = true
		}
	}
	check(string(buf[0:4]))
	check(string(buf[4:8]))
	for i := int64(8); i+4 <= b.dataLen; i += 4 {
		check(string(buf[i : i+4]))
	}
	return matches >= 3, mp7, nil
}

// walkMoov descends into moov's direct children, recursing into trak to
// locate sample tables (for later offset patching context) and into
// udta to locate/parse meta/ilst.
func (ctx *parseCtx) walkMoov(moov box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	ctx.parents = append(ctx.parents, parentFrame{name: boxMoov, headerOff: moov.headerOff, declaredLen: uint32(moov.end() - moov.headerOff)})
	defer func() { ctx.parents = ctx.parents[:len(ctx.parents)-1] }()

	offset := moov.dataOff
	for offset < moov.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return newErr("walkMoov", ErrFileSeek, err)
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return newErr("walkMoov", ErrFileRead, err)
		}
		switch b.typ {
		case boxTrak:
			if err := ctx.walkTrak(b); err != nil {
				return err
			}
		case boxUdta:
			if err := ctx.walkUdta(b); err != nil {
				return err
			}
		}
		offset = b.end()
	}
	return nil
}

func (ctx *parseCtx) walkTrak(trak box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	offset := trak.dataOff
	for offset < trak.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return err
		}
		if b.typ == boxMdia {
			if err := ctx.walkMdia(b); err != nil {
				return err
			}
		}
		offset = b.end()
	}
	return nil
}

func (ctx *parseCtx) walkMdia(mdia box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	offset := mdia.dataOff
	for offset < mdia.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return err
		}
		switch b.typ {
		case boxMdhd:
			if err := ctx.processMdhd(b); err != nil {
				return err
			}
		case boxMinf:
			if err := ctx.walkMinf(b); err != nil {
				return err
			}
		}
		offset = b.end()
	}
	return nil
}

func (ctx *parseCtx) walkMinf(minf box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	offset := minf.dataOff
	for offset < minf.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return err
		}
		if b.typ == boxStbl {
			if err := ctx.walkStbl(b); err != nil {
				return err
			}
		}
		offset = b.end()
	}
	return nil
}

func (ctx *parseCtx) walkStbl(stbl box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	offset := stbl.dataOff
	for offset < stbl.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return err
		}
		switch b.typ {
		case boxStco:
			if ctx.h.stcoOffset == 0 {
				ctx.h.stcoOffset = b.headerOff
				ctx.h.stcoLen = uint32(b.end() - b.headerOff)
			}
		case boxCo64:
			if ctx.h.co64Offset == 0 {
				ctx.h.co64Offset = b.headerOff
				ctx.h.co64Len = uint32(b.end() - b.headerOff)
			}
		}
		offset = b.end()
	}
	return nil
}

// processMdhd reads version 0 or 1 of the media header box to compute
// duration in milliseconds, plus creation/modified timestamps (seconds
// since the MP4 epoch, 1904-01-01).
func (ctx *parseCtx) processMdhd(mdhd box) error {
	buf := make([]byte, mdhd.dataLen)
	if _, err := io.ReadFull(ctx.r, buf); err != nil {
		return newErr("processMdhd", ErrFileRead, err)
	}
	if len(buf) < 1 {
		return nil
	}
	version := buf[0]
	var creation, modified, timescale, duration uint64
	if version == 1 {
		if len(buf) < 32 {
			return nil
		}
		creation = binary.BigEndian.Uint64(buf[4:12])
		modified = binary.BigEndian.Uint64(buf[12:20])
		timescale = uint64(binary.BigEndian.Uint32(buf[20:24]))
		duration = binary.BigEndian.Uint64(buf[24:32])
	} else {
		if len(buf) < 20 {
			return nil
		}
		creation = uint64(binary.BigEndian.Uint32(buf[4:8]))
		modified = uint64(binary.BigEndian.Uint32(buf[8:12]))
		timescale = uint64(binary.BigEndian.Uint32(buf[12:16]))
		duration = uint64(binary.BigEndian.Uint32(buf[16:20]))
	}
	ctx.h.creationDate = int64(creation)
	ctx.h.modifiedDate = int64(modified)
	if timescale > 0 {
		ctx.h.duration = int64(duration * 1000 / timescale)
		ctx.h.sampleRate = int32(timescale)
	}
	return nil
}

// walkUdta locates 'meta'/'ilst', tracks free space immediately
// following ilst (interior free space reusable in an in-place write),
// and records the parent-length chain (meta, udta, moov) used to
// cascade a size delta up the tree on write.
func (ctx *parseCtx) walkUdta(udta box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	h := ctx.h
	ctx.parents = append(ctx.parents, parentFrame{name: boxUdta, headerOff: udta.headerOff, declaredLen: uint32(udta.end() - udta.headerOff)})
	defer func() { ctx.parents = ctx.parents[:len(ctx.parents)-1] }()

	if udta.end()-udta.headerOff == boxHeadSz {
		h.udtaZero = true
	}

	offset := udta.dataOff
	sawIlst := false
	for offset < udta.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return newErr("walkUdta", ErrFileSeek, err)
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return newErr("walkUdta", ErrFileRead, err)
		}
		switch b.typ {
		case boxMeta:
			if err := ctx.walkMeta(b); err != nil {
				return err
			}
			sawIlst = h.taglistOffset != 0
		case boxFree:
			if b.dataLen < 0 {
				h.freeNeg = true
			}
			if sawIlst {
				h.interiorFreeLen += uint32(b.end() - b.headerOff)
			}
		}
		offset = b.end()
	}
	if !sawIlst {
		h.noIlstOffset = udta.end()
	}
	return nil
}

// walkMeta skips meta's 4-byte version/flags field (MP4TAG_META_SZ is
// the header plus this one extra uint32) and looks for 'ilst' among its
// children, decoding its tag list.
func (ctx *parseCtx) walkMeta(meta box) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()
	h := ctx.h
	ctx.parents = append(ctx.parents, parentFrame{name: boxMeta, headerOff: meta.headerOff, declaredLen: uint32(meta.end() - meta.headerOff)})
	defer func() { ctx.parents = ctx.parents[:len(ctx.parents)-1] }()

	offset := meta.dataOff + 4 // version + flags
	sawIlst := false
	for offset < meta.end() {
		if _, err := ctx.r.Seek(offset, io.SeekStart); err != nil {
			return newErr("walkMeta", ErrFileSeek, err)
		}
		b, err := readBoxHeader(ctx.r)
		if err != nil {
			return newErr("walkMeta", ErrFileRead, err)
		}
		switch b.typ {
		case boxIlst:
			h.taglistBaseOffset = b.headerOff
			h.taglistOffset = b.dataOff
			h.taglistOrigLen = uint32(b.dataLen)
			h.taglistLen = uint32(b.dataLen)
			h.afterIlstOffset = b.end()

			h.parentChain = make([]parentFrame, len(ctx.parents))
			copy(h.parentChain, ctx.parents)
			ctx.decodeIlst(b)
			sawIlst = true
		case boxFree:
			// The writer places its padding box here, as ilst's sibling
			// inside meta, not as a sibling of meta under udta -- track
			// it the same way walkUdta tracks a free box it finds
			// directly under udta, so a round-tripped file's reusable
			// interior space is counted on the next parse too.
			if b.dataLen < 0 {
				h.freeNeg = true
			}
			if sawIlst {
				h.interiorFreeLen += uint32(b.end() - b.headerOff)
			}
		}
		offset = b.end()
	}
	return nil
}

// decodeIlst reads ilst's payload and decodes each child tag atom into
// the handle's tag store. Decode errors for a single malformed child are
// swallowed (ilstRemain/ilstDone bookkeeping below), matching the narrow
// "1.3.0 bug" tolerance rather than aborting the whole parse.
func (ctx *parseCtx) decodeIlst(ilst box) {
	h := ctx.h
	buf := make([]byte, ilst.dataLen)
	if _, err := io.ReadFull(ctx.r, buf); err != nil {
		h.ilstRemain = true
		return
	}

	pos := int64(0)
	for pos+boxHeadSz <= int64(len(buf)) {
		size := binary.BigEndian.Uint32(buf[pos : pos+4])
		typ := string(buf[pos+4 : pos+8])
		if size < boxHeadSz || pos+int64(size) > int64(len(buf)) {
			h.ilstRemain = true
			break
		}
		child := buf[pos+boxHeadSz : pos+int64(size)]
		decodeIlstChild(h, typ, child)
		pos += int64(size)
	}
	h.ilstDone = pos == int64(len(buf))
	h.ilstRemaining = uint64(int64(len(buf)) - pos)
	if h.ilstRemain && !h.ilstDone && h.freeNeg && h.udtaZero {
		// The narrow version-1.3.0 corruption signature: a truncated
		// ilst combined with a negative-looking free box and a
		// zero-length udta. Parse heals a writable file through
		// healVersion130Bug and reparses; if doFix is still set after
		// that, Write refuses to operate in-place and falls back to a
		// full rewrite.
		h.doFix = true
	}
}
