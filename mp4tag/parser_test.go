package mp4tag

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildFragmentedTestFile assembles ftyp, moov, mdat, moov -- the
// interleaved/fragmented layout that leaves a moov box trailing a
// top-level mdat, which Parse must refuse rather than silently patch.
func buildFragmentedTestFile(t *testing.T) string {
	t.Helper()

	ftypPayload := append([]byte("isom"), []byte{0, 0, 0, 0}...)
	ftypPayload = append(ftypPayload, "isom"...)
	ftypPayload = append(ftypPayload, "iso2"...)
	ftypPayload = append(ftypPayload, "mp41"...)
	ftypBox := wrapBox(boxFtyp, ftypPayload)

	moovBox := wrapBox(boxMoov, make([]byte, 8))
	mdatBox := wrapBox("mdat", make([]byte, 16))

	fileBytes := append(append([]byte{}, ftypBox...), moovBox...)
	fileBytes = append(fileBytes, mdatBox...)
	fileBytes = append(fileBytes, moovBox...)

	path := filepath.Join(t.TempDir(), "fragmented.m4a")
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseRejectsMoovAfterMdat(t *testing.T) {
	path := buildFragmentedTestFile(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	err = h.Parse()
	if err == nil {
		t.Fatal("Parse succeeded on a moov-after-mdat file, want ErrUnableToProcess")
	}
	var me *Error
	if !errors.As(err, &me) || me.Code != ErrUnableToProcess {
		t.Errorf("Parse error = %v, want ErrUnableToProcess", err)
	}
}

// buildExteriorFreeTestFile is like buildTestFile, but has no interior
// free box and adds a generous top-level free box
// between moov and mdat, so only exterior_free_len (plus unlimited=false)
// can supply the room an in-place write needs.
func buildExteriorFreeTestFile(t *testing.T) (path string, fileLen int) {
	t.Helper()

	ftypPayload := append([]byte("isom"), []byte{0, 0, 0, 0}...)
	ftypPayload = append(ftypPayload, "isom"...)
	ftypPayload = append(ftypPayload, "iso2"...)
	ftypPayload = append(ftypPayload, "mp41"...)
	ftypBox := wrapBox(boxFtyp, ftypPayload)

	namBox := wrapBox(copyrightPrefix+"nam", buildDataSubBox(identString, []byte("Old")))
	ilstBox := wrapBox(boxIlst, namBox)

	hdlrPayload := append([]byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}...)
	hdlrPayload = append(hdlrPayload, "mdir"...)
	hdlrPayload = append(hdlrPayload, "appl"...)
	hdlrPayload = append(hdlrPayload, make([]byte, 12)...)
	hdlrPayload = append(hdlrPayload, 0)
	hdlrBox := wrapBox(boxHdlr, hdlrPayload)

	// No interior free box at all: the old tag area is exactly ilst's
	// own footprint, so only exterior free space can grow it in place.
	metaInner := []byte{0, 0, 0, 0}
	metaInner = append(metaInner, hdlrBox...)
	metaInner = append(metaInner, ilstBox...)
	metaBox := wrapBox(boxMeta, metaInner)
	udtaBox := wrapBox(boxUdta, metaBox)

	moovInner := append([]byte{}, udtaBox...)
	moovBox := wrapBox(boxMoov, moovInner)

	exteriorFree := wrapBox(boxFree, make([]byte, 4096))
	mdatBox := wrapBox("mdat", make([]byte, 32))

	fileBytes := append(append([]byte{}, ftypBox...), moovBox...)
	fileBytes = append(fileBytes, exteriorFree...)
	fileBytes = append(fileBytes, mdatBox...)

	path = filepath.Join(t.TempDir(), "exterior.m4a")
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path, len(fileBytes)
}

// TestWriteUsesExteriorFreeSpaceInPlace exercises spec §4.7's exterior-
// free-space arm of the in-place decision: a file with no interior free
// space but a large top-level free box before mdat must still take the
// in-place path (no ".bak"/".tmp" rewrite artifacts) for a new tag value
// that fits the exterior budget but not the interior-only one.
func TestWriteUsesExteriorFreeSpaceInPlace(t *testing.T) {
	path, origLen := buildExteriorFreeTestFile(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.exteriorFreeLen == 0 {
		t.Fatal("exteriorFreeLen = 0, want the trailing top-level free box to be counted")
	}

	longValue := make([]byte, 1024)
	for i := range longValue {
		longValue[i] = 'y'
	}
	if err := h.SetTag(copyrightPrefix+"nam", string(longValue), false); err != nil {
		t.Fatalf("SetTag: %v", err)
	}
	if err := h.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(path + ".bak"); err == nil {
		t.Error("Write left a .bak file behind, want an in-place write with no rewrite artifacts")
	}
	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Error("Write left a .tmp file behind, want an in-place write with no rewrite artifacts")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(after) != origLen {
		t.Errorf("file length changed from %d to %d on an in-place write", origLen, len(after))
	}

	h2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h2.Close()
	if err := h2.Parse(); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	pt, err := h2.GetTag(copyrightPrefix + "nam")
	if err != nil {
		t.Fatalf("GetTag after in-place write: %v", err)
	}
	if pt.Data != string(longValue) {
		t.Errorf("tag value did not survive in-place write (len got=%d want=%d)", len(pt.Data), len(longValue))
	}
}
