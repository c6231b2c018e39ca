package mp4tag

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func wrapBox(typ string, payload []byte) []byte {
	return append(putBoxHeader(nil, typ, uint32(len(payload))), payload...)
}

// buildTestFile assembles a minimal but structurally valid MP4 file with
// one track (carrying an stco sample-offset table whose three entries
// bracket the ilst/free tag area) and one ©nam tag, writing it to a fresh
// temp file. The three stco entries are chosen so the middle one sits
// exactly at the post-ilst boundary. It returns the file's path.
func buildTestFile(t *testing.T) string {
	t.Helper()

	ftypPayload := append([]byte("isom"), []byte{0, 0, 0, 0}...)
	ftypPayload = append(ftypPayload, "isom"...)
	ftypPayload = append(ftypPayload, "iso2"...)
	ftypPayload = append(ftypPayload, "mp41"...)
	ftypBox := wrapBox(boxFtyp, ftypPayload)

	mdhdPayload := make([]byte, 20)
	binary.BigEndian.PutUint32(mdhdPayload[12:16], 1000) // timescale
	binary.BigEndian.PutUint32(mdhdPayload[16:20], 5000) // duration
	mdhdBox := wrapBox(boxMdhd, mdhdPayload)

	// Placeholder entries; patched to real values once the ilst boundary
	// is known below.
	stcoPayload := make([]byte, 4)
	stcoPayload = putU32(stcoPayload, 3)
	stcoPayload = putU32(stcoPayload, 0)
	stcoPayload = putU32(stcoPayload, 0)
	stcoPayload = putU32(stcoPayload, 0)
	stcoBox := wrapBox(boxStco, stcoPayload)

	stblBox := wrapBox(boxStbl, stcoBox)
	minfBox := wrapBox(boxMinf, stblBox)
	mdiaBox := wrapBox(boxMdia, append(append([]byte{}, mdhdBox...), minfBox...))
	trakBox := wrapBox(boxTrak, mdiaBox)

	namBox := wrapBox(copyrightPrefix+"nam", buildDataSubBox(identString, []byte("Old Title")))
	ilstBox := wrapBox(boxIlst, namBox)

	hdlrPayload := append([]byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}...)
	hdlrPayload = append(hdlrPayload, "mdir"...)
	hdlrPayload = append(hdlrPayload, "appl"...)
	hdlrPayload = append(hdlrPayload, make([]byte, 12)...)
	hdlrPayload = append(hdlrPayload, 0)
	hdlrBox := wrapBox(boxHdlr, hdlrPayload)

	freeBox := wrapBox(boxFree, make([]byte, 16))

	metaInner := []byte{0, 0, 0, 0}
	metaInner = append(metaInner, hdlrBox...)
	metaInner = append(metaInner, ilstBox...)
	metaInner = append(metaInner, freeBox...)
	metaBox := wrapBox(boxMeta, metaInner)
	udtaBox := wrapBox(boxUdta, metaBox)

	moovInner := append(append([]byte{}, trakBox...), udtaBox...)
	moovBox := wrapBox(boxMoov, moovInner)

	mdatBox := wrapBox("mdat", make([]byte, 64))

	fileBytes := append(append([]byte{}, ftypBox...), moovBox...)
	fileBytes = append(fileBytes, mdatBox...)

	ilstIdx := bytes.Index(fileBytes, ilstBox[:boxHeadSz])
	if ilstIdx < 0 {
		t.Fatal("ilst box not found while assembling test file")
	}
	afterIlst := int64(ilstIdx) + int64(len(ilstBox))

	stcoIdx := bytes.Index(fileBytes, stcoBox[:boxHeadSz])
	if stcoIdx < 0 {
		t.Fatal("stco box not found while assembling test file")
	}
	entriesOff := stcoIdx + boxHeadSz + 4 + 4 // header + version/flags + count
	binary.BigEndian.PutUint32(fileBytes[entriesOff:], uint32(afterIlst-10))
	binary.BigEndian.PutUint32(fileBytes[entriesOff+4:], uint32(afterIlst))
	binary.BigEndian.PutUint32(fileBytes[entriesOff+8:], uint32(afterIlst+1000))

	path := filepath.Join(t.TempDir(), "test.m4a")
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOpenParseReadsExistingTag(t *testing.T) {
	path := buildTestFile(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	pt, err := h.GetTag(copyrightPrefix + "nam")
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if pt.Data != "Old Title" {
		t.Errorf("GetTag data = %q, want %q", pt.Data, "Old Title")
	}
	if d := h.Duration(); d != 5000 {
		t.Errorf("Duration() = %d, want 5000", d)
	}
}

// findStcoEntries re-parses data for the (sole) stco table under
// moov/trak/mdia/minf/stbl and returns its entries, independent of the
// package's own rewriter code, so the boundary test has an outside check.
func findStcoEntries(t *testing.T, data []byte) []uint32 {
	t.Helper()
	r := bytes.NewReader(data)
	var found []uint32

	var walk func(start, end int64) error
	walk = func(start, end int64) error {
		offset := start
		for offset < end {
			if _, err := r.Seek(offset, io.SeekStart); err != nil {
				return err
			}
			b, err := readBoxHeader(r)
			if err != nil {
				return err
			}
			switch b.typ {
			case boxMoov, boxTrak, boxMdia, boxMinf, boxStbl:
				if err := walk(b.dataOff, b.end()); err != nil {
					return err
				}
			case boxStco:
				// dataOff is the FullBox payload start: version/flags (4
				// bytes), then entry_count, then the offset array.
				hdr := make([]byte, 4)
				if _, err := r.ReadAt(hdr, b.dataOff+4); err != nil {
					return err
				}
				count := binary.BigEndian.Uint32(hdr)
				entries := make([]byte, 4*int64(count))
				if _, err := r.ReadAt(entries, b.dataOff+8); err != nil {
					return err
				}
				for i := uint32(0); i < count; i++ {
					found = append(found, binary.BigEndian.Uint32(entries[i*4:i*4+4]))
				}
			}
			offset = b.end()
		}
		return nil
	}
	if err := walk(0, int64(len(data))); err != nil {
		t.Fatalf("findStcoEntries: %v", err)
	}
	return found
}

// TestWriteShiftsStcoPastBoundaryOnly exercises the rewrite path's
// stco-patching boundary: an offset exactly equal to the old
// post-ilst boundary must not move, one strictly below must not move, and
// one strictly above must move by the exact size delta the tag area grew.
func TestWriteShiftsStcoPastBoundaryOnly(t *testing.T) {
	path := buildTestFile(t)

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	origEntries := findStcoEntries(t, before)
	if len(origEntries) != 3 {
		t.Fatalf("findStcoEntries(before) = %v, want 3 entries", origEntries)
	}
	boundary := int64(origEntries[1])

	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h.SetOptions(Options{FreeSpace: 8})

	// A value much longer than the original free-space budget forces the
	// full-rewrite path rather than an in-place patch.
	longValue := make([]byte, 4096)
	for i := range longValue {
		longValue[i] = 'x'
	}
	if err := h.SetTag(copyrightPrefix+"nam", string(longValue), false); err != nil {
		t.Fatalf("SetTag: %v", err)
	}
	if err := h.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile after Write: %v", err)
	}
	delta := int64(len(after)) - int64(len(before))
	if delta <= 0 {
		t.Fatalf("file did not grow after a large tag write: delta=%d", delta)
	}

	newEntries := findStcoEntries(t, after)
	if len(newEntries) != 3 {
		t.Fatalf("findStcoEntries(after) = %v, want 3 entries", newEntries)
	}

	if int64(newEntries[0]) != int64(origEntries[0]) {
		t.Errorf("entry strictly below boundary moved: got %d, want unchanged %d", newEntries[0], origEntries[0])
	}
	if int64(newEntries[1]) != boundary {
		t.Errorf("entry exactly at boundary moved: got %d, want unchanged %d", newEntries[1], boundary)
	}
	if int64(newEntries[2]) != int64(origEntries[2])+delta {
		t.Errorf("entry strictly above boundary = %d, want %d (orig %d + delta %d)",
			newEntries[2], int64(origEntries[2])+delta, origEntries[2], delta)
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
		t.Fatalf("GetTag after rewrite: %v", err)
	}
	if pt.Data != string(longValue) {
		t.Errorf("tag value did not survive rewrite (len got=%d want=%d)", len(pt.Data), len(longValue))
	}
}

func TestDeleteTagThenCleanTags(t *testing.T) {
	path := buildTestFile(t)
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := h.DeleteTag(copyrightPrefix + "nam"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if _, err := h.GetTag(copyrightPrefix + "nam"); err == nil {
		t.Errorf("GetTag succeeded after DeleteTag")
	}
	if err := h.DeleteTag(copyrightPrefix + "nam"); err == nil {
		t.Errorf("DeleteTag on an already-deleted tag did not error")
	}

	h.store.add(Tag{Name: copyrightPrefix + "alb", IdentType: identString, Data: []byte("Album")})
	if err := h.CleanTags(); err != nil {
		t.Fatalf("CleanTags: %v", err)
	}
	if len(h.store.tags) != 0 {
		t.Errorf("store has %d tags after CleanTags, want 0", len(h.store.tags))
	}
}

func TestPreserveAndRestore(t *testing.T) {
	pathA := buildTestFile(t)
	pathB := buildTestFile(t)

	a, err := Open(pathA)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	defer a.Close()
	if err := a.Parse(); err != nil {
		t.Fatalf("Parse a: %v", err)
	}
	snap := a.Preserve()

	b, err := Open(pathB)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	defer b.Close()
	if err := b.Parse(); err != nil {
		t.Fatalf("Parse b: %v", err)
	}
	if err := b.SetTag(copyrightPrefix+"alb", "Should Be Overwritten", false); err != nil {
		t.Fatalf("SetTag b: %v", err)
	}
	if err := b.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	pt, err := b.GetTag(copyrightPrefix + "nam")
	if err != nil {
		t.Fatalf("GetTag after Restore: %v", err)
	}
	if pt.Data != "Old Title" {
		t.Errorf("GetTag after Restore = %q, want %q", pt.Data, "Old Title")
	}
	if _, err := b.GetTag(copyrightPrefix + "alb"); err == nil {
		t.Errorf("restored handle still carries the pre-Restore ©alb tag")
	}
}

func TestSetTagUnknownNameRejected(t *testing.T) {
	path := buildTestFile(t)
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := h.SetTag("zzzz", "value", false); err == nil {
		t.Errorf("SetTag on an unregistered, non-custom name did not error")
	}
	if err := h.SetTag(boxCustom+":com.example:FOO", "value", false); err != nil {
		t.Errorf("SetTag on a new ---- custom tag errored: %v", err)
	}
}
