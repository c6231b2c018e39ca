package mp4tag

import (
	"bytes"
	"testing"
)

func TestReadBoxHeaderStandardSize(t *testing.T) {
	buf := putBoxHeader(nil, "free", 10)
	buf = append(buf, make([]byte, 10)...)
	r := bytes.NewReader(buf)

	b, err := readBoxHeader(r)
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if b.typ != "free" || b.dataLen != 10 || b.largeSize {
		t.Errorf("got %+v, want typ=free dataLen=10 largeSize=false", b)
	}
	if b.end() != int64(len(buf)) {
		t.Errorf("end() = %d, want %d", b.end(), len(buf))
	}
}

func TestReadBoxHeaderLargeSize(t *testing.T) {
	var buf []byte
	buf = putU32(buf, 1) // size==1 signals a following 64-bit largesize
	buf = append(buf, "mdat"...)
	buf = putU64(buf, uint64(boxHeadSz+8+100))
	buf = append(buf, make([]byte, 100)...)

	r := bytes.NewReader(buf)
	b, err := readBoxHeader(r)
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if !b.largeSize || b.dataLen != 100 {
		t.Errorf("got %+v, want largeSize=true dataLen=100", b)
	}
}

func TestReadBoxHeaderZeroSizeRunsToEOF(t *testing.T) {
	var buf []byte
	buf = putU32(buf, 0)
	buf = append(buf, "mdat"...)
	buf = append(buf, make([]byte, 40)...)

	r := bytes.NewReader(buf)
	b, err := readBoxHeader(r)
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if b.dataLen != 40 {
		t.Errorf("dataLen = %d, want 40 (box-runs-to-EOF)", b.dataLen)
	}
}

func TestPatchU32Len(t *testing.T) {
	buf := putBoxHeader(nil, "udta", 0)
	off := 0
	buf = append(buf, putBoxHeader(nil, "meta", 4)...)
	buf = append(buf, []byte{0, 0, 0, 0}...)

	patchU32Len(buf, off)

	b, err := readBoxHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if b.dataLen != int64(len(buf)-boxHeadSz) {
		t.Errorf("patched dataLen = %d, want %d", b.dataLen, len(buf)-boxHeadSz)
	}
}
