// Package mp4tag reads, modifies, and writes the iTunes-style metadata
// tag list (moov/udta/meta/ilst) found in MPEG-4 Part 14 (MP4/M4A/MOV)
// files.
package mp4tag

import (
	"io"
	"os"
)

// ReadSeekCloser is the handle file mode reads through; *os.File
// satisfies it directly. Stream mode (OpenStream) takes read/seek
// callbacks instead.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

// Options configures a Handle at construction time, mirroring the C
// setters mp4tag_set_free_space/mp4tag_set_debug_flags/mp4tag_set_option.
type Options struct {
	FreeSpace  uint32
	DebugFlags int
	KeepBackup bool
}

const defaultFreeSpace = 2048

// debug flag bits (MP4TAG_DBG_*).
const (
	DebugPrintFileStructure = 1 << 0
	DebugWrite              = 1 << 1
	DebugDumpCo             = 1 << 2
	DebugOther              = 1 << 3
	DebugBug                = 1 << 4
)

// Handle is an open, possibly-parsed MP4/M4A file. The zero value is not
// usable; construct one with Open or OpenStream.
type Handle struct {
	fn string
	f  ReadSeekCloser

	readcb   func(p []byte) (int, error)
	seekcb   func(skiplen int64) error
	isStream bool
	canWrite bool

	filesz int64

	store store

	duration     int64
	creationDate int64
	modifiedDate int64
	sampleRate   int32

	mp7meta bool

	// box bookkeeping used by the parser and, later, the rewriter.
	stcoOffset int64
	stcoLen    uint32
	co64Offset int64
	co64Len    uint32

	interiorFreeLen uint32
	exteriorFreeLen uint32
	unlimited       bool

	noIlstOffset      int64
	afterIlstOffset   int64
	taglistBaseOffset int64
	taglistOffset     int64
	taglistOrigLen    uint32
	taglistLen        uint32
	insertDelta       uint32
	parentChain       []parentFrame

	// 1.3.0 bug-heal tracking (kept deliberately narrow, see parser.go).
	ilstRemaining uint64
	ilstRemain    bool
	ilstEnd       bool
	ilstDone      bool
	freeNeg       bool
	udtaZero      bool
	doFix         bool

	parsed bool
	opts   Options
	err    ErrCode
}

// Open opens fn in read/write mode (falling back to read-only, which
// disables Write) and returns an unparsed Handle. Call Parse next.
func Open(fn string) (*Handle, error) {
	f, err := os.OpenFile(fn, os.O_RDWR, 0)
	canWrite := true
	if err != nil {
		f, err = os.Open(fn)
		canWrite = false
		if err != nil {
			return nil, newErr("Open", ErrFileNotFound, err)
		}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newErr("Open", ErrFileNotFound, err)
	}
	h := &Handle{
		fn:       fn,
		f:        f,
		filesz:   info.Size(),
		canWrite: canWrite,
		opts:     Options{FreeSpace: defaultFreeSpace},
	}
	return h, nil
}

// OpenStream opens a Handle driven by read/seek callbacks instead of a
// local file. seek is a forward-only skip primitive: it is called with
// the number of bytes to advance past the current stream position, never
// an absolute offset, and a request to move backward fails. Stream-mode
// handles are always read-only: Write returns ErrCannotWrite.
func OpenStream(read func(p []byte) (int, error), seek func(skiplen int64) error, filesz int64) (*Handle, error) {
	if read == nil || seek == nil {
		return nil, newErr("OpenStream", ErrNoCallback, nil)
	}
	return &Handle{
		readcb:   read,
		seekcb:   seek,
		isStream: true,
		canWrite: false,
		filesz:   filesz,
		opts:     Options{FreeSpace: defaultFreeSpace},
	}, nil
}

// Close releases the underlying file, if any. Streams opened with
// OpenStream own no resource and Close is a no-op for them.
func (h *Handle) Close() error {
	if h.f != nil {
		return h.f.Close()
	}
	return nil
}

// SetOptions replaces the handle's Options (free-space size, debug
// flags, keep-backup-on-write).
func (h *Handle) SetOptions(o Options) {
	if o.FreeSpace == 0 {
		o.FreeSpace = defaultFreeSpace
	}
	h.opts = o
}

// Error returns the last error code recorded against the handle.
func (h *Handle) Error() ErrCode { return h.err }

// Duration returns the track duration in milliseconds, valid after Parse.
func (h *Handle) Duration() int64 { return h.duration }

// Parsed reports whether Parse has completed successfully.
func (h *Handle) Parsed() bool { return h.parsed }
