package mp4tag

import "testing"

// decodeOneChild parses a single built ilst child back out, returning the
// store it lands in, mirroring what decodeIlst does per-child during Parse.
func decodeOneChild(t *testing.T, child []byte) *Handle {
	t.Helper()
	typ := child[4:8]
	h := &Handle{}
	decodeIlstChild(h, string(typ), child[boxHeadSz:])
	return h
}

func TestSimpleStringTagRoundTrip(t *testing.T) {
	h := &Handle{}
	h.store.add(Tag{Name: copyrightPrefix + "nam", IdentType: identString, Data: []byte("Test Title"), Priority: priorityFor(copyrightPrefix + "nam")})

	encoded := buildSimpleBox(h.store.tags[0])

	h2 := decodeOneChild(t, encoded)
	if len(h2.store.tags) != 1 {
		t.Fatalf("decoded %d tags, want 1", len(h2.store.tags))
	}
	if got := string(h2.store.tags[0].Data); got != "Test Title" {
		t.Errorf("round-tripped title = %q, want %q", got, "Test Title")
	}
}

func TestNumericTagRoundTrip(t *testing.T) {
	h := &Handle{}
	h.store.add(Tag{Name: "tmpo", IdentType: identNum, Data: []byte("128")})

	encoded := buildSimpleBox(h.store.tags[0])
	h2 := decodeOneChild(t, encoded)

	if len(h2.store.tags) != 1 || string(h2.store.tags[0].Data) != "128" {
		t.Fatalf("decoded tmpo = %+v, want Data=128", h2.store.tags)
	}
}

func TestTrknPairRoundTrip(t *testing.T) {
	h := &Handle{}
	h.store.add(Tag{Name: boxTrkn, Data: []byte("3/12")})

	encoded := buildPairBox(h.store.tags[0])
	h2 := decodeOneChild(t, encoded)

	if len(h2.store.tags) != 1 || string(h2.store.tags[0].Data) != "3/12" {
		t.Fatalf("decoded trkn = %+v, want Data=3/12", h2.store.tags)
	}
}

func TestCustomTagRoundTrip(t *testing.T) {
	h := &Handle{}
	name := boxCustom + ":com.apple.iTunes:CONDUCTOR"
	h.store.add(Tag{Name: name, IdentType: identString, Data: []byte("Karajan")})

	encoded := buildCustomBox(h.store.tags[0])
	h2 := decodeOneChild(t, encoded)

	if len(h2.store.tags) != 1 {
		t.Fatalf("decoded %d tags, want 1", len(h2.store.tags))
	}
	got := h2.store.tags[0]
	if got.Name != name {
		t.Errorf("decoded custom name = %q, want %q", got.Name, name)
	}
	if string(got.Data) != "Karajan" {
		t.Errorf("decoded custom data = %q, want Karajan", got.Data)
	}
}

func TestCoverArtMultiRoundTrip(t *testing.T) {
	h := &Handle{}
	h.store.add(Tag{Name: boxCovr, DataIndex: 0, Binary: true, IdentType: identJPG, Data: []byte{0xff, 0xd8, 0xff}})
	h.store.add(Tag{Name: boxCovr, DataIndex: 1, Binary: true, IdentType: identPNG, Data: []byte{0x89, 'P', 'N', 'G'}, CoverName: "back.png"})

	encoded := buildCoverBox(h.store.tags)
	h2 := decodeOneChild(t, encoded)

	if len(h2.store.tags) != 2 {
		t.Fatalf("decoded %d covr tags, want 2", len(h2.store.tags))
	}
	if h2.store.tags[0].DataIndex != 0 || h2.store.tags[1].DataIndex != 1 {
		t.Errorf("decoded covr indices = [%d, %d], want [0, 1]", h2.store.tags[0].DataIndex, h2.store.tags[1].DataIndex)
	}
	if h2.store.tags[1].CoverName != "back.png" {
		t.Errorf("decoded covr[1].CoverName = %q, want back.png", h2.store.tags[1].CoverName)
	}
}

func TestGnreDecodesToGenStringAndIsNeverReencoded(t *testing.T) {
	value := make([]byte, 2)
	value[1] = 1 // index 1 -> oldGenreList[0] ("Blues")
	dataBox := buildDataSubBox(identData, value)
	h2 := decodeOneChild(t, append(putBoxHeader(nil, boxGnre, uint32(len(dataBox))), dataBox...))

	if len(h2.store.tags) != 1 || h2.store.tags[0].Name != genreTagName {
		t.Fatalf("decoded gnre tags = %+v, want one ©gen tag", h2.store.tags)
	}
	if string(h2.store.tags[0].Data) != "Blues" {
		t.Errorf("decoded genre = %q, want Blues", h2.store.tags[0].Data)
	}

	h2.store.tags[0].Priority = priorityFor(h2.store.tags[0].Name)
	out := buildIlst(h2)
	if len(out) == 0 {
		t.Fatalf("©gen tag was not re-encoded at all")
	}

	// A synthetic 'gnre' tag, by contrast, must never appear in encoder
	// output: its registry priority is priNoWrite.
	h3 := &Handle{}
	h3.store.add(Tag{Name: boxGnre, Priority: priNoWrite, Data: value})
	if out := buildIlst(h3); len(out) != 0 {
		t.Errorf("buildIlst emitted %d bytes for a priNoWrite gnre tag, want 0", len(out))
	}
}

func TestBuildIlstOrdersByPriorityThenStoreOrder(t *testing.T) {
	h := &Handle{}
	// ©nam has priority 0, aART has priority 2: title must be emitted first
	// regardless of store insertion order.
	h.store.add(Tag{Name: "aART", IdentType: identString, Data: []byte("Band"), Priority: priorityFor("aART")})
	h.store.add(Tag{Name: copyrightPrefix + "nam", IdentType: identString, Data: []byte("Song"), Priority: priorityFor(copyrightPrefix + "nam")})

	out := buildIlst(h)

	firstType := string(out[4:8])
	if firstType != copyrightPrefix+"nam" {
		t.Errorf("first emitted child = %q, want %q (lower priority first)", firstType, copyrightPrefix+"nam")
	}
}
