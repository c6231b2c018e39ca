package mp4tag

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Version is the package's semantic version, mirroring libmp4tag's own
// major.minor.revision scheme.
const Version = "2.0.1"

// PublicTag is the value type returned to callers by GetTag/Iterate — a
// display-oriented view of a Tag, independent of the internal store
// layout.
type PublicTag struct {
	Name      string
	Data      string
	CoverName string
	DataIndex int
	CoverType int
	Binary    bool
}

func toPublic(t Tag) PublicTag {
	return PublicTag{
		Name:      t.Name,
		Data:      string(t.Data),
		CoverName: t.CoverName,
		DataIndex: t.DataIndex,
		CoverType: t.IdentType,
		Binary:    t.Binary,
	}
}

// GetTag looks a tag up by its display name (which may include a
// ":index" or ":index:name" suffix for covr/custom tags).
func (h *Handle) GetTag(name string) (PublicTag, error) {
	if !h.parsed {
		return PublicTag{}, newErr("GetTag", ErrNotParsed, nil)
	}
	base, idx, wantName := parseTagName(name)
	i := h.store.find(base, idx)
	if i < 0 {
		return PublicTag{}, newErr("GetTag", ErrTagNotFound, nil)
	}
	pt := toPublic(h.store.tags[i])
	if wantName {
		pt.Data = pt.CoverName
	}
	return pt, nil
}

// Iterator walks every tag currently in the store in display order.
type Iterator struct {
	h   *Handle
	pos int
}

// Iterate returns a fresh Iterator positioned before the first tag.
func (h *Handle) Iterate() *Iterator { return &Iterator{h: h} }

// Next returns the next tag, or ok=false once the list is exhausted.
func (it *Iterator) Next() (PublicTag, bool) {
	if it.pos >= len(it.h.store.tags) {
		return PublicTag{}, false
	}
	t := it.h.store.tags[it.pos]
	it.pos++
	return toPublic(t), true
}

// SetTag sets a string tag's value, or (forceBinary) stores the bytes of
// data as a binary payload on a tag whose registry identtype allows it.
// Setting a brand new (not-yet-present) tag validates the name against
// the registry first, matching mp4tag_set_tag_string: unknown names are
// rejected with ErrTagNotFound, and "----" custom tags are always
// accepted. This is the binding answer to the spec's "permissive set_tag
// on unknown tags" open question: no extra leniency beyond what the
// registry already allows.
func (h *Handle) SetTag(name, data string, forceBinary bool) error {
	if !h.parsed {
		return newErr("SetTag", ErrNotParsed, nil)
	}
	if forceBinary {
		return h.SetBinaryTag(name, []byte(data), "")
	}

	base, idx, wantName := parseTagName(name)
	existing := h.store.find(base, idx)

	if existing >= 0 {
		t := &h.store.tags[existing]
		if base == boxCovr {
			if !wantName {
				return newErr("SetTag", ErrMismatch, nil)
			}
			t.CoverName = data
			return nil
		}
		if t.Binary {
			return newErr("SetTag", ErrMismatch, nil)
		}
		t.Data = []byte(data)
		return nil
	}

	custom := strings.HasPrefix(base, boxCustom)
	def := checkTag(base)
	if !custom && def == nil {
		return newErr("SetTag", ErrTagNotFound, nil)
	}
	if base == boxCovr && wantName {
		return newErr("SetTag", ErrMismatch, nil)
	}

	identtype := identString
	if def != nil {
		ok := def.IdentType == identString || def.IdentType == identNum ||
			(def.IdentType == identData && (base == boxTrkn || base == boxDisk))
		if !ok {
			return newErr("SetTag", ErrMismatch, nil)
		}
		identtype = def.IdentType
	}

	t := Tag{
		Name:        base,
		DataIndex:   maxInt(idx, 0),
		IdentType:   identtype,
		InternalLen: len(data),
		Data:        []byte(data),
		Priority:    priorityFor(base),
	}
	h.store.add(t)
	h.store.sort()
	return nil
}

// SetBinaryTag sets (or adds) a binary-payload tag: 'covr' cover art or
// any other registry tag whose identtype is DATA/JPG/PNG. fn, if
// non-empty, is consulted only to sniff a cover's JPEG/PNG type from its
// extension (mp4tag_check_covr); it is never read from here.
func (h *Handle) SetBinaryTag(name string, data []byte, fn string) error {
	if !h.parsed {
		return newErr("SetBinaryTag", ErrNotParsed, nil)
	}
	base, idx, _ := parseTagName(name)

	if base == boxTrkn || base == boxDisk {
		return newErr("SetBinaryTag", ErrMismatch, nil)
	}

	identtype := sniffCoverType(base, fn)

	if existing := h.store.find(base, idx); existing >= 0 {
		t := &h.store.tags[existing]
		if !t.Binary {
			return newErr("SetBinaryTag", ErrMismatch, nil)
		}
		t.Data = append([]byte(nil), data...)
		t.InternalLen = len(data)
		t.IdentType = identtype
		return nil
	}

	custom := strings.HasPrefix(base, boxCustom)
	var def *TagDef
	if !custom {
		def = checkTag(base)
		if def == nil {
			return newErr("SetBinaryTag", ErrTagNotFound, nil)
		}
		if def.IdentType != identData && def.IdentType != identJPG && def.IdentType != identPNG {
			return newErr("SetBinaryTag", ErrMismatch, nil)
		}
	}

	t := Tag{
		Name:        base,
		IdentType:   identtype,
		InternalLen: len(data),
		Data:        append([]byte(nil), data...),
		Binary:      true,
		Priority:    priorityFor(base),
	}
	if base == boxCovr {
		if idx < 0 {
			t.DataIndex = h.store.nextCoverIndex()
		} else {
			t.DataIndex = idx
		}
	}
	h.store.add(t)
	h.store.sort()
	return nil
}

func sniffCoverType(tag, fn string) int {
	if tag != boxCovr {
		return identData
	}
	if fn == "" {
		return identJPG
	}
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".png":
		return identPNG
	case ".jpg", ".jpeg":
		return identJPG
	default:
		return identJPG
	}
}

// DeleteTag removes a tag by display name.
func (h *Handle) DeleteTag(name string) error {
	if !h.parsed {
		return newErr("DeleteTag", ErrNotParsed, nil)
	}
	base, idx, _ := parseTagName(name)
	i := h.store.find(base, idx)
	if i < 0 {
		return newErr("DeleteTag", ErrTagNotFound, nil)
	}
	h.store.delete(i)
	return nil
}

// CleanTags removes every tag from the store.
func (h *Handle) CleanTags() error {
	if !h.parsed {
		return newErr("CleanTags", ErrNotParsed, nil)
	}
	h.store.tags = nil
	return nil
}

// Preserved is a snapshot of a handle's tags, detached from any file,
// returned by Preserve and consumed by Restore.
type Preserved struct {
	s store
}

// Preserve snapshots the handle's current tags for replay onto a
// different (but already open+parsed) handle via Restore — the
// mechanism behind the CLI's --copyfrom/--copyto.
func (h *Handle) Preserve() *Preserved {
	cl := h.store.clone()
	return &Preserved{s: cl}
}

// Restore replaces target's tags with a previously Preserved snapshot.
func (h *Handle) Restore(p *Preserved) error {
	if !h.parsed {
		return newErr("Restore", ErrNotParsed, nil)
	}
	h.store = p.s.clone()
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ParseTagSpec exposes parseTagName for CLI callers that need to split
// a "name=value"/"name" command-line argument's tag spec without
// touching a Handle.
func ParseTagSpec(tag string) (name string, dataIndex int, nameField bool) {
	return parseTagName(tag)
}

// FormatTagNumber renders an integer as the decimal string this package
// expects for numeric-tag values (tmpo, rtng, stik, ...).
func FormatTagNumber(n int) string { return strconv.Itoa(n) }

// FriendlyName returns the human-readable alias for a raw on-disk tag
// name (e.g. "©nam" -> "TITLE", a MusicBrainz "----" tag -> its
// MUSICBRAINZ_* alias), or ok=false if the tag has no known alias.
func FriendlyName(tag string) (string, bool) {
	name, ok := friendlyName[tag]
	return name, ok
}
