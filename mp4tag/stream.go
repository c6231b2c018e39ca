package mp4tag

import (
	"errors"
	"io"
	"time"
)

// streamReadTimeout bounds how long callbackReader retries a short read
// from a caller's read callback before giving up, mirroring
// mp4tag_data_read's sleep-and-retry loop for slow/async stream sources.
const streamReadTimeout = 2 * time.Second

// streamSleep is how long callbackReader waits between retries
// (MP4TAG_SLEEP_TIME, 2ms in the reference implementation).
const streamSleep = 2 * time.Millisecond

// callbackReader adapts a pair of read/seek callbacks to io.ReadSeeker so
// the parser can walk a stream exactly like it walks an *os.File. seek is
// a forward-only skip primitive: it is called with the number of bytes
// to advance past the current position, not an absolute offset, mirroring
// mp4tag_data_seek/seekcb in the reference C implementation.
type callbackReader struct {
	read   func(p []byte) (int, error)
	seek   func(skiplen int64) error
	pos    int64
	filesz int64
}

func (c *callbackReader) Read(p []byte) (int, error) {
	deadline := time.Now().Add(streamReadTimeout)
	total := 0
	for total < len(p) {
		n, err := c.read(p[total:])
		total += n
		c.pos += int64(n)
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return total, err
		}
		if n > 0 {
			continue
		}
		if time.Now().After(deadline) {
			if total == 0 {
				return 0, errors.New("mp4tag: stream read timed out")
			}
			return total, nil
		}
		time.Sleep(streamSleep)
	}
	return total, nil
}

// Seek translates an absolute io.Seeker request into the forward-only
// skip callback the stream source actually provides; it cannot rewind, so
// any target before the current position fails (a target equal to it is
// a no-op).
func (c *callbackReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = c.pos + offset
	case io.SeekEnd:
		target = c.filesz + offset
	default:
		return 0, errors.New("mp4tag: invalid whence")
	}
	skiplen := target - c.pos
	if skiplen < 0 {
		return 0, errors.New("mp4tag: stream seek cannot move backward")
	}
	if skiplen > 0 {
		if err := c.seek(skiplen); err != nil {
			return 0, err
		}
	}
	c.pos = target
	return c.pos, nil
}

// reader returns the io.ReadSeeker the parser should use, regardless of
// whether the handle was opened against a file or a stream.
func (h *Handle) reader() io.ReadSeeker {
	if h.isStream {
		return &callbackReader{read: h.readcb, seek: h.seekcb, filesz: h.filesz}
	}
	return h.f
}
