package mp4tag

import (
	"sort"
	"strconv"
	"strings"
)

// Tag is one entry of a handle's in-memory tag list, corresponding to a
// single parsed (or newly added) 'ilst' child. Multiple Tags can share a
// Name — 'covr' cover art and '----' custom tags both do — distinguished
// by DataIndex.
type Tag struct {
	Name        string
	Data        []byte
	CoverName   string
	DataIndex   int
	IdentType   int
	InternalLen int
	Priority    int
	Binary      bool
}

// StringVal returns Data as a string; callers must already know the tag
// is not Binary.
func (t *Tag) StringVal() string { return string(t.Data) }

// store holds every tag parsed from (or added to) one handle, kept
// sorted by (Name, DataIndex) the way libmp4tag keeps its qsort'd array,
// so the two-pass encoder can walk tags of the same name in data-index
// order. Lookups (find) scan the slice linearly.
type store struct {
	tags []Tag
}

// sort re-establishes the (Name, DataIndex) order after a mutation.
func (s *store) sort() {
	sort.SliceStable(s.tags, func(i, j int) bool {
		a, b := s.tags[i], s.tags[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.DataIndex < b.DataIndex
	})
}

// find returns the index of the tag named name with the given dataIndex
// (dataIndex<0 means 0), or -1.
func (s *store) find(name string, dataIndex int) int {
	if dataIndex < 0 {
		dataIndex = 0
	}
	for i := range s.tags {
		if s.tags[i].Name == name && s.tags[i].DataIndex == dataIndex {
			return i
		}
	}
	return -1
}

// nextCoverIndex returns the next free DataIndex to assign a new 'covr'
// tag, one greater than the highest DataIndex currently used by 'covr'.
func (s *store) nextCoverIndex() int {
	max := -1
	for i := range s.tags {
		if s.tags[i].Name == boxCovr && s.tags[i].DataIndex > max {
			max = s.tags[i].DataIndex
		}
	}
	return max + 1
}

// add appends a new tag, assigning it a dense DataIndex if another tag
// of the same name already exists (mirroring mp4tag_add_tag, which bumps
// off the immediately preceding same-name entry since the array arrives
// pre-sorted from the parser). The returned index is into s.tags before
// any subsequent sort() call.
func (s *store) add(t Tag) int {
	if n := len(s.tags); n > 0 && s.tags[n-1].Name == t.Name && t.Name != boxCovr {
		t.DataIndex = s.tags[n-1].DataIndex + 1
	}
	s.tags = append(s.tags, t)
	return len(s.tags) - 1
}

// delete removes the tag at idx, shifting later entries down by one,
// mirroring mp4tag_del_tag.
func (s *store) delete(idx int) {
	if idx < 0 || idx >= len(s.tags) {
		return
	}
	s.tags = append(s.tags[:idx], s.tags[idx+1:]...)
}

// clone returns a deep copy of the store, used by Preserve/Restore.
func (s *store) clone() store {
	out := store{tags: make([]Tag, len(s.tags))}
	for i, t := range s.tags {
		ct := t
		if t.Data != nil {
			ct.Data = append([]byte(nil), t.Data...)
		}
		out.tags[i] = ct
	}
	return out
}

// MP4TAG_INPUT_DELIM
const tagInputDelim = ":"

// parseTagName splits a caller-supplied tag spec into its base name and
// data index, mirroring mp4tag_parse_tagname. Accepted forms:
//
//	NAME               -> (NAME, -1)
//	NAME:IDX           -> (NAME, IDX)
//	NAME:IDX:name      -> (NAME, IDX) with nameField=true (covername set)
//	----:mean:name:IDX[:name]  (custom tags keep their own two colons)
func parseTagName(tag string) (name string, dataIndex int, nameField bool) {
	dataIndex = -1
	if len(tag) <= 4 {
		return tag, dataIndex, false
	}

	rest := tag
	base := tag
	if strings.HasPrefix(tag, boxCustom) {
		// A custom tag's base keeps both its "mean" and "name" segments
		// ("----:mean:name"); only a colon past both of those starts the
		// optional [:IDX[:name]] suffix, so the first two colons are
		// always part of base, not delimiters to split on.
		first := strings.Index(tag, tagInputDelim)
		if first < 0 {
			return tag, dataIndex, false
		}
		second := strings.Index(tag[first+1:], tagInputDelim)
		if second < 0 {
			return tag, dataIndex, false
		}
		second += first + 1
		third := strings.Index(tag[second+1:], tagInputDelim)
		if third < 0 {
			return tag, dataIndex, false
		}
		third += second + 1
		base = tag[:third]
		rest = tag[third+1:]
	} else {
		idx := strings.Index(tag, tagInputDelim)
		if idx < 0 {
			return tag, dataIndex, false
		}
		base = tag[:idx]
		rest = tag[idx+1:]
	}

	parts := strings.SplitN(rest, tagInputDelim, 2)
	if parts[0] != "" {
		if v, err := strconv.Atoi(parts[0]); err == nil {
			dataIndex = v
		}
	}
	if len(parts) == 2 && parts[1] == boxName {
		nameField = true
	}
	return base, dataIndex, nameField
}
