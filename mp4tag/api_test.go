package mp4tag

import "testing"

func TestSniffCoverType(t *testing.T) {
	cases := []struct {
		tag, fn string
		want    int
	}{
		{boxCovr, "", identJPG},
		{boxCovr, "cover.png", identPNG},
		{boxCovr, "cover.PNG", identPNG},
		{boxCovr, "cover.jpg", identJPG},
		{boxCovr, "cover.gif", identJPG},
		{copyrightPrefix + "nam", "cover.png", identData},
	}
	for _, c := range cases {
		if got := sniffCoverType(c.tag, c.fn); got != c.want {
			t.Errorf("sniffCoverType(%q, %q) = %d, want %d", c.tag, c.fn, got, c.want)
		}
	}
}

func TestSetBinaryTagAddsAndReplacesCover(t *testing.T) {
	h := &Handle{parsed: true}

	if err := h.SetBinaryTag(boxCovr, []byte{1, 2, 3}, "front.jpg"); err != nil {
		t.Fatalf("SetBinaryTag (add): %v", err)
	}
	pt, err := h.GetTag(boxCovr)
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if pt.CoverType != identJPG || !pt.Binary {
		t.Errorf("first cover = %+v, want identJPG binary", pt)
	}

	// A second cover needs an explicit, not-yet-used index: a bare "covr"
	// spec always resolves to index 0 (find treats a negative dataIndex as
	// 0), so it can only ever update the first cover, never append.
	if err := h.SetBinaryTag("covr:1", []byte{4, 5, 6}, "back.png"); err != nil {
		t.Fatalf("SetBinaryTag (second cover): %v", err)
	}
	second, err := h.GetTag("covr:1")
	if err != nil {
		t.Fatalf("GetTag(covr:1): %v", err)
	}
	if second.CoverType != identPNG {
		t.Errorf("second cover type = %d, want identPNG", second.CoverType)
	}

	// Replacing the first cover in place keeps its DataIndex at 0.
	if err := h.SetBinaryTag("covr:0", []byte{9, 9}, "replacement.jpg"); err != nil {
		t.Fatalf("SetBinaryTag (replace): %v", err)
	}
	replaced, err := h.GetTag("covr:0")
	if err != nil {
		t.Fatalf("GetTag(covr:0): %v", err)
	}
	if replaced.Data != string([]byte{9, 9}) {
		t.Errorf("replaced cover data = %q, want [9 9]", replaced.Data)
	}
}

func TestSetBinaryTagRejectsPairTags(t *testing.T) {
	h := &Handle{parsed: true}
	if err := h.SetBinaryTag(boxTrkn, []byte{1}, ""); err == nil {
		t.Errorf("SetBinaryTag(trkn) did not error")
	}
	if err := h.SetBinaryTag(boxDisk, []byte{1}, ""); err == nil {
		t.Errorf("SetBinaryTag(disk) did not error")
	}
}

func TestSetTagMismatchOnBinaryExisting(t *testing.T) {
	h := &Handle{parsed: true}
	if err := h.SetBinaryTag(boxCovr, []byte{1}, ""); err != nil {
		t.Fatalf("SetBinaryTag: %v", err)
	}
	if err := h.SetTag(boxCovr, "not binary", false); err == nil {
		t.Errorf("SetTag on a binary covr slot did not error")
	}
	// But setting its covername (the ":0:name" form) is allowed.
	if err := h.SetTag("covr:0:name", "front.jpg", false); err != nil {
		t.Errorf("SetTag(covr:0:name) errored: %v", err)
	}
	pt, _ := h.GetTag("covr:0:name")
	if pt.Data != "front.jpg" {
		t.Errorf("covername = %q, want front.jpg", pt.Data)
	}
}

func TestIteratorWalksAllTags(t *testing.T) {
	h := &Handle{parsed: true}
	h.store.add(Tag{Name: copyrightPrefix + "nam", Data: []byte("A")})
	h.store.add(Tag{Name: copyrightPrefix + "ART", Data: []byte("B")})

	it := h.Iterate()
	count := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("iterator visited %d tags, want 2", count)
	}
	if _, ok := it.Next(); ok {
		t.Errorf("iterator returned ok=true past the end")
	}
}

func TestUnparsedHandleRejectsOperations(t *testing.T) {
	h := &Handle{}
	if _, err := h.GetTag("covr"); err == nil {
		t.Errorf("GetTag on an unparsed handle did not error")
	}
	if err := h.SetTag("covr", "x", false); err == nil {
		t.Errorf("SetTag on an unparsed handle did not error")
	}
	if err := h.DeleteTag("covr"); err == nil {
		t.Errorf("DeleteTag on an unparsed handle did not error")
	}
}
