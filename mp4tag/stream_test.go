package mp4tag

import (
	"io"
	"testing"
)

// TestCallbackReaderSeekPassesForwardDelta checks the stream-mode seek
// contract: the seek callback receives the number of bytes to skip
// forward from the current position, not an absolute file offset.
func TestCallbackReaderSeekPassesForwardDelta(t *testing.T) {
	var gotSkip int64 = -1
	c := &callbackReader{
		read: func(p []byte) (int, error) { return 0, io.EOF },
		seek: func(skiplen int64) error {
			gotSkip = skiplen
			return nil
		},
		pos:    100,
		filesz: 1000,
	}

	if _, err := c.Seek(150, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if gotSkip != 50 {
		t.Errorf("seek callback got skiplen=%d, want 50 (150-100)", gotSkip)
	}
	if c.pos != 150 {
		t.Errorf("pos after Seek = %d, want 150", c.pos)
	}
}

func TestCallbackReaderSeekRejectsBackward(t *testing.T) {
	called := false
	c := &callbackReader{
		read: func(p []byte) (int, error) { return 0, io.EOF },
		seek: func(skiplen int64) error {
			called = true
			return nil
		},
		pos:    500,
		filesz: 1000,
	}

	if _, err := c.Seek(100, io.SeekStart); err == nil {
		t.Error("Seek to an earlier offset succeeded, want an error")
	}
	if called {
		t.Error("seek callback was invoked for a backward seek, want it skipped")
	}
}

func TestCallbackReaderSeekNoOpSkipsCallback(t *testing.T) {
	called := false
	c := &callbackReader{
		read: func(p []byte) (int, error) { return 0, io.EOF },
		seek: func(skiplen int64) error {
			called = true
			return nil
		},
		pos:    100,
		filesz: 1000,
	}

	if _, err := c.Seek(100, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if called {
		t.Error("seek callback invoked for a zero-length skip")
	}
}
