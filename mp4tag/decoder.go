package mp4tag

import (
	"encoding/binary"
	"strconv"
)

// subBox is one child atom nested inside an 'ilst' entry (its own
// 'data'/'mean'/'name' sub-boxes).
type subBox struct {
	typ     string
	payload []byte // bytes after the 8-byte header
}

// splitSubBoxes walks a buffer of back-to-back length-prefixed boxes,
// used both for an ilst child's own children and (in the encoder) in
// reverse.
func splitSubBoxes(buf []byte) []subBox {
	var out []subBox
	pos := 0
	for pos+boxHeadSz <= len(buf) {
		size := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		if size < boxHeadSz || pos+size > len(buf) {
			break
		}
		typ := string(buf[pos+4 : pos+8])
		out = append(out, subBox{typ: typ, payload: buf[pos+boxHeadSz : pos+size]})
		pos += size
	}
	return out
}

// dataPayload parses a 'data' sub-box's payload: 1-byte version, 3-byte
// identtype (big-endian, stored in the low 24 bits of the flags word),
// 4-byte reserved, then the value bytes (MP4TAG_DATA_SZ = 16 total
// before the value).
func dataPayload(p []byte) (identtype int, value []byte, ok bool) {
	if len(p) < 8 {
		return 0, nil, false
	}
	flags := binary.BigEndian.Uint32(p[0:4])
	identtype = int(flags & 0x00ffffff)
	value = p[8:]
	return identtype, value, true
}

// decodeIlstChild decodes one 'ilst' entry (tag name = typ) into zero or
// more store.Tag entries.
func decodeIlstChild(h *Handle, typ string, payload []byte) {
	switch typ {
	case boxCustom:
		decodeCustomTag(h, payload)
	case boxCovr:
		decodeCoverTag(h, payload)
	case boxTrkn, boxDisk:
		decodePairTag(h, typ, payload)
	case boxGnre:
		decodeGnreTag(h, payload)
	default:
		decodeSimpleTag(h, typ, payload)
	}
}

// decodeSimpleTag handles the common case: a single 'data' sub-box whose
// value is either a string or a fixed-width big-endian number, per the
// identtype stored in that 'data' sub-box.
func decodeSimpleTag(h *Handle, typ string, payload []byte) {
	for _, sb := range splitSubBoxes(payload) {
		if sb.typ != boxData {
			continue
		}
		identtype, value, ok := dataPayload(sb.payload)
		if !ok {
			continue
		}
		t := Tag{
			Name:        typ,
			DataIndex:   0,
			IdentType:   identtype,
			InternalLen: len(value),
		}
		if identtype == identString {
			t.Data = append([]byte(nil), value...)
		} else {
			t.Binary = false
			t.Data = []byte(numericToString(value))
		}
		h.store.add(t)
	}
}

// numericToString renders a big-endian fixed-width numeric 'data'
// payload as its decimal string form, the way the reference CLI displays
// numeric tags.
func numericToString(value []byte) string {
	var v uint64
	switch len(value) {
	case 1:
		v = uint64(value[0])
	case 2:
		v = uint64(binary.BigEndian.Uint16(value))
	case 4:
		v = uint64(binary.BigEndian.Uint32(value))
	case 8:
		v = binary.BigEndian.Uint64(value)
	default:
		if len(value) >= 4 {
			v = uint64(binary.BigEndian.Uint32(value[:4]))
		}
	}
	return strconv.FormatUint(v, 10)
}

// decodeCustomTag decodes a "----" freeform atom: its 'mean' and 'name'
// sub-boxes (each prefixed by a 4-byte reserved/version field) are
// concatenated with the tag itself into "----:<mean>:<name>", and its
// 'data' sub-box becomes the value.
func decodeCustomTag(h *Handle, payload []byte) {
	var mean, name string
	var dataSub *subBox
	for _, sb := range splitSubBoxes(payload) {
		sb := sb
		switch sb.typ {
		case boxMean:
			if len(sb.payload) > 4 {
				mean = string(sb.payload[4:])
			}
		case boxName:
			if len(sb.payload) > 4 {
				name = string(sb.payload[4:])
			}
		case boxData:
			dataSub = &sb
		}
	}
	if dataSub == nil {
		return
	}
	identtype, value, ok := dataPayload(dataSub.payload)
	if !ok {
		return
	}
	fullName := boxCustom + tagInputDelim + mean + tagInputDelim + name
	t := Tag{
		Name:        fullName,
		IdentType:   identtype,
		InternalLen: len(value),
	}
	if identtype == identString {
		t.Data = append([]byte(nil), value...)
	} else {
		t.Binary = true
		t.Data = append([]byte(nil), value...)
	}
	h.store.add(t)
}

// decodeCoverTag decodes a 'covr' entry: it may hold several 'data'
// sub-boxes (one cover image each, dense DataIndex starting at 0) and at
// most one 'name' sub-box, which names the most recently seen 'data'.
func decodeCoverTag(h *Handle, payload []byte) {
	boxes := splitSubBoxes(payload)
	idx := h.store.nextCoverIndex()
	var lastTagIdx = -1
	for _, sb := range boxes {
		switch sb.typ {
		case boxData:
			identtype, value, ok := dataPayload(sb.payload)
			if !ok {
				continue
			}
			t := Tag{
				Name:        boxCovr,
				DataIndex:   idx,
				IdentType:   identtype,
				InternalLen: len(value),
				Binary:      true,
				Data:        append([]byte(nil), value...),
			}
			lastTagIdx = h.store.add(t)
			idx++
		case boxName:
			if lastTagIdx >= 0 && len(sb.payload) > 0 {
				h.store.tags[lastTagIdx].CoverName = string(sb.payload)
			}
		}
	}
}

// decodePairTag decodes 'trkn'/'disk': a single 'data' sub-box holding
// 2 reserved bytes, a uint16 number, a uint16 total, and (trkn only) 2
// trailing unused bytes, rendered as "number/total" for display/set-tag
// round-tripping, matching mp4tag_parse_pair's inverse.
func decodePairTag(h *Handle, typ string, payload []byte) {
	for _, sb := range splitSubBoxes(payload) {
		if sb.typ != boxData {
			continue
		}
		identtype, value, ok := dataPayload(sb.payload)
		if !ok || len(value) < 6 {
			continue
		}
		num := binary.BigEndian.Uint16(value[2:4])
		total := binary.BigEndian.Uint16(value[4:6])
		t := Tag{
			Name:        typ,
			IdentType:   identtype,
			InternalLen: len(value),
			Data:        []byte(strconv.Itoa(int(num)) + "/" + strconv.Itoa(int(total))),
		}
		h.store.add(t)
	}
}

// decodeGnreTag converts a legacy 'gnre' (1-based ID3v1 genre index) box
// into a '©gen' string tag on read; 'gnre' itself is never re-emitted
// (its registry priority is priNoWrite).
func decodeGnreTag(h *Handle, payload []byte) {
	for _, sb := range splitSubBoxes(payload) {
		if sb.typ != boxData {
			continue
		}
		_, value, ok := dataPayload(sb.payload)
		if !ok || len(value) < 2 {
			continue
		}
		idx := binary.BigEndian.Uint16(value[:2])
		name, ok := genreFromIndex(idx)
		if !ok {
			continue
		}
		if h.store.find(genreTagName, -1) >= 0 {
			continue
		}
		t := Tag{
			Name:        genreTagName,
			IdentType:   identString,
			InternalLen: len(name),
			Data:        []byte(name),
		}
		h.store.add(t)
	}
}

// genreTagName is '©gen', the string-genre tag 'gnre' is mapped onto.
const genreTagName = copyrightPrefix + "gen"
