package mp4tag

import "testing"

func TestCheckTagNormalizesCoverIndex(t *testing.T) {
	def := checkTag("covr:3")
	if def == nil || def.Tag != boxCovr {
		t.Fatalf("checkTag(%q) = %+v, want covr entry", "covr:3", def)
	}
}

func TestCheckTagUnknown(t *testing.T) {
	if def := checkTag("xxxx"); def != nil {
		t.Errorf("checkTag(unknown) = %+v, want nil", def)
	}
}

func TestPriorityForCustomAndUnknown(t *testing.T) {
	if p := priorityFor(boxCustom + ":mean:name"); p != priCustom {
		t.Errorf("priorityFor(custom) = %d, want %d", p, priCustom)
	}
	if p := priorityFor("zzzz"); p != priMax {
		t.Errorf("priorityFor(unknown) = %d, want %d", p, priMax)
	}
	if p := priorityFor(boxGnre); p != priNoWrite {
		t.Errorf("priorityFor(gnre) = %d, want priNoWrite", p)
	}
}

func TestFriendlyNameRoundTrip(t *testing.T) {
	name, ok := FriendlyName(copyrightPrefix + "nam")
	if !ok || name != "TITLE" {
		t.Errorf("FriendlyName(©nam) = (%q, %v), want (TITLE, true)", name, ok)
	}
	if _, ok := FriendlyName("zzzz"); ok {
		t.Errorf("FriendlyName(unknown) ok = true, want false")
	}
}

func TestFriendlyNameNarrator(t *testing.T) {
	name, ok := FriendlyName(copyrightPrefix + "nrt")
	if !ok || name != "NARRATOR" {
		t.Errorf("FriendlyName(©nrt) = (%q, %v), want (NARRATOR, true)", name, ok)
	}
	if def := checkTag(copyrightPrefix + "nrt"); def == nil {
		t.Fatalf("checkTag(©nrt) = nil, want a registered entry")
	}
}

func TestGenreFromIndex(t *testing.T) {
	name, ok := genreFromIndex(1)
	if !ok || name != "Blues" {
		t.Errorf("genreFromIndex(1) = (%q, %v), want (Blues, true)", name, ok)
	}
	if _, ok := genreFromIndex(0); ok {
		t.Errorf("genreFromIndex(0) ok = true, want false")
	}
	if _, ok := genreFromIndex(uint16(len(oldGenreList) + 1)); ok {
		t.Errorf("genreFromIndex(out of range) ok = true, want false")
	}
}
