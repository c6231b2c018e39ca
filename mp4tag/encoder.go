package mp4tag

import (
	"strconv"
	"strings"
)

// buildIlst renders the handle's tag store into the byte sequence that
// belongs inside an 'ilst' box (i.e. everything after ilst's own 8-byte
// header), in two passes: ascending Priority first, then the store's
// (Name, DataIndex) order within a priority, matching
// mp4tag_build_data/mp4tag_build_append. Tags whose Priority is
// priNoWrite ('gnre') are never emitted.
func buildIlst(h *Handle) []byte {
	var out []byte
	emitted := make([]bool, len(h.store.tags))

	for pri := 0; pri <= priMax; pri++ {
		i := 0
		for i < len(h.store.tags) {
			t := &h.store.tags[i]
			if emitted[i] || t.Priority != pri || t.Priority == priNoWrite {
				i++
				continue
			}
			switch t.Name {
			case boxCovr:
				j := i
				for j < len(h.store.tags) && h.store.tags[j].Name == boxCovr && !emitted[j] {
					emitted[j] = true
					j++
				}
				out = append(out, buildCoverBox(h.store.tags[i:j])...)
				i = j
			default:
				if strings.HasPrefix(t.Name, boxCustom) {
					out = append(out, buildCustomBox(*t)...)
				} else if t.Name == boxTrkn || t.Name == boxDisk {
					out = append(out, buildPairBox(*t)...)
				} else {
					out = append(out, buildSimpleBox(*t)...)
				}
				emitted[i] = true
				i++
			}
		}
	}
	return out
}

// buildDataSubBox appends a complete 'data' sub-box: header, 1-byte
// version (0) + 3-byte identtype, 4-byte reserved, then value.
func buildDataSubBox(identtype int, value []byte) []byte {
	var buf []byte
	buf = putBoxHeader(buf, boxData, uint32(4+4+len(value)))
	buf = putU32(buf, uint32(identtype)&0x00ffffff)
	buf = putU32(buf, 0)
	buf = append(buf, value...)
	return buf
}

// buildSimpleBox renders any tag whose on-disk form is a single 'data'
// sub-box: a string value is written as-is; a registry numeric tag is
// parsed back from its decimal string form and written at the registry's
// fixed width.
func buildSimpleBox(t Tag) []byte {
	var value []byte
	identtype := t.IdentType
	if def := checkTag(t.Name); def != nil {
		identtype = def.IdentType
	}

	if identtype == identString {
		value = t.Data
	} else {
		n, _ := strconv.ParseUint(strings.TrimSpace(string(t.Data)), 10, 64)
		width := 4
		if def := checkTag(t.Name); def != nil && def.Len > 0 {
			width = def.Len
		}
		var b []byte
		switch width {
		case 1:
			b = []byte{byte(n)}
		case 2:
			b = putU16(nil, uint16(n))
		case 8:
			b = putU64(nil, n)
		default:
			b = putU32(nil, uint32(n))
		}
		value = b
	}

	var inner []byte
	inner = append(inner, buildDataSubBox(identtype, value)...)
	var buf []byte
	buf = putBoxHeader(buf, t.Name, uint32(len(inner)))
	buf = append(buf, inner...)
	return buf
}

// buildCustomBox renders a "----:mean:name" tag as a freeform atom with
// 'mean'/'name'/'data' children, each of mean/name prefixed by a 4-byte
// reserved/version field.
func buildCustomBox(t Tag) []byte {
	_, rest, hasMean := strings.Cut(t.Name, tagInputDelim)
	mean, name := rest, ""
	if hasMean {
		if m, n, ok := strings.Cut(rest, tagInputDelim); ok {
			mean, name = m, n
		}
	}

	meanBox := putBoxHeader(nil, boxMean, uint32(4+len(mean)))
	meanBox = putU32(meanBox, 0)
	meanBox = append(meanBox, mean...)

	nameBox := putBoxHeader(nil, boxName, uint32(4+len(name)))
	nameBox = putU32(nameBox, 0)
	nameBox = append(nameBox, name...)

	identtype := t.IdentType
	if identtype == 0 && !t.Binary {
		identtype = identString
	}
	dataBox := buildDataSubBox(identtype, t.Data)

	var inner []byte
	inner = append(inner, meanBox...)
	inner = append(inner, nameBox...)
	inner = append(inner, dataBox...)

	var buf []byte
	buf = putBoxHeader(buf, boxCustom, uint32(len(inner)))
	buf = append(buf, inner...)
	return buf
}

// buildCoverBox renders every 'covr' tag (one per cover image) as a
// single box with one 'data' sub-box per cover, each optionally followed
// by a 'name' sub-box naming it.
func buildCoverBox(tags []Tag) []byte {
	var inner []byte
	for _, t := range tags {
		identtype := t.IdentType
		if identtype != identJPG && identtype != identPNG {
			identtype = identJPG
		}
		inner = append(inner, buildDataSubBox(identtype, t.Data)...)
		if t.CoverName != "" {
			nb := putBoxHeader(nil, boxName, uint32(len(t.CoverName)))
			inner = append(inner, nb...)
			inner = append(inner, t.CoverName...)
		}
	}
	var buf []byte
	buf = putBoxHeader(buf, boxCovr, uint32(len(inner)))
	buf = append(buf, inner...)
	return buf
}

// buildPairBox renders 'trkn'/'disk' from their "num/total" string form
// back into the 2-reserved + uint16 + uint16 (+2 unused for trkn) binary
// layout mp4tag_parse_pair's inverse expects.
func buildPairBox(t Tag) []byte {
	num, total := parsePair(string(t.Data))
	width := 6
	if t.Name == boxTrkn {
		width = 8
	}
	value := make([]byte, 0, width)
	value = putU16(value, 0)
	value = putU16(value, num)
	value = putU16(value, total)
	if width == 8 {
		value = putU16(value, 0)
	}

	dataBox := buildDataSubBox(identData, value)
	var buf []byte
	buf = putBoxHeader(buf, t.Name, uint32(len(dataBox)))
	buf = append(buf, dataBox...)
	return buf
}

// parsePair parses "num/total" (total may be omitted), mirroring
// mp4tag_parse_pair.
func parsePair(s string) (num, total uint16) {
	parts := strings.SplitN(s, "/", 2)
	if v, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16); err == nil {
		num = uint16(v)
	}
	if len(parts) == 2 {
		if v, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16); err == nil {
			total = uint16(v)
		}
	}
	return num, total
}
