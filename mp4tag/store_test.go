package mp4tag

import "testing"

func TestParseTagName(t *testing.T) {
	cases := []struct {
		in        string
		wantName  string
		wantIdx   int
		wantField bool
	}{
		{"covr", "covr", -1, false},
		{"covr:2", "covr", 2, false},
		{"covr:2:name", "covr", 2, true},
		{"----:com.apple.iTunes:CONDUCTOR:0", "----:com.apple.iTunes:CONDUCTOR", 0, false},
		{"----:com.apple.iTunes:CONDUCTOR:0:name", "----:com.apple.iTunes:CONDUCTOR", 0, true},
		{"\xa9nam", "\xa9nam", -1, false},
	}
	for _, c := range cases {
		name, idx, field := parseTagName(c.in)
		if name != c.wantName || idx != c.wantIdx || field != c.wantField {
			t.Errorf("parseTagName(%q) = (%q, %d, %v), want (%q, %d, %v)",
				c.in, name, idx, field, c.wantName, c.wantIdx, c.wantField)
		}
	}
}

func TestStoreAddAssignsDenseIndex(t *testing.T) {
	var s store
	s.add(Tag{Name: boxCustom + ":mean:name", Data: []byte("a")})
	s.add(Tag{Name: boxCustom + ":mean:name", Data: []byte("b")})
	s.sort()

	if len(s.tags) != 2 {
		t.Fatalf("len(s.tags) = %d, want 2", len(s.tags))
	}
	if s.tags[0].DataIndex != 0 || s.tags[1].DataIndex != 1 {
		t.Errorf("DataIndex = [%d, %d], want [0, 1]", s.tags[0].DataIndex, s.tags[1].DataIndex)
	}
}

func TestStoreCoverIndexNotReassignedByAdd(t *testing.T) {
	var s store
	s.add(Tag{Name: boxCovr, DataIndex: 0, Binary: true, Data: []byte{1}})
	s.add(Tag{Name: boxCovr, DataIndex: s.nextCoverIndex(), Binary: true, Data: []byte{2}})
	s.sort()

	if len(s.tags) != 2 {
		t.Fatalf("len(s.tags) = %d, want 2", len(s.tags))
	}
	if s.tags[0].DataIndex != 0 || s.tags[1].DataIndex != 1 {
		t.Errorf("covr DataIndex = [%d, %d], want [0, 1]", s.tags[0].DataIndex, s.tags[1].DataIndex)
	}
	if s.nextCoverIndex() != 2 {
		t.Errorf("nextCoverIndex() = %d, want 2", s.nextCoverIndex())
	}
}

func TestStoreFindAndDelete(t *testing.T) {
	var s store
	s.add(Tag{Name: copyrightPrefix + "nam", Data: []byte("Title")})
	s.add(Tag{Name: copyrightPrefix + "ART", Data: []byte("Artist")})
	s.sort()

	i := s.find(copyrightPrefix+"ART", -1)
	if i < 0 {
		t.Fatalf("find(%q) not found", copyrightPrefix+"ART")
	}
	s.delete(i)
	if len(s.tags) != 1 || s.tags[0].Name != copyrightPrefix+"nam" {
		t.Errorf("after delete, tags = %+v", s.tags)
	}
	if s.find(copyrightPrefix+"ART", -1) != -1 {
		t.Errorf("deleted tag still found")
	}
}

func TestStoreCloneIsDeepCopy(t *testing.T) {
	var s store
	s.add(Tag{Name: boxCovr, Binary: true, Data: []byte{1, 2, 3}})

	clone := s.clone()
	clone.tags[0].Data[0] = 0xff

	if s.tags[0].Data[0] == 0xff {
		t.Errorf("clone shares backing array with original store")
	}
}
