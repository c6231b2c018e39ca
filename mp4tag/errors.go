package mp4tag

import "fmt"

// ErrCode mirrors the libmp4tag error enum: a small set of stable,
// comparable error identities a caller can switch on, separate from the
// human-readable message that wraps it.
type ErrCode int

const (
	ErrNone ErrCode = iota
	ErrBadStruct
	ErrOutOfMemory
	ErrNotMP4
	ErrNotOpen
	ErrNotParsed
	ErrNullValue
	ErrNoTags
	ErrMismatch
	ErrTagNotFound
	ErrNotImplemented
	ErrFileNotFound
	ErrFileSeek
	ErrFileTell
	ErrFileRead
	ErrFileWrite
	ErrUnableToProcess
	ErrNoCallback
	ErrCannotWrite
)

var errCodeText = map[ErrCode]string{
	ErrNone:            "ok",
	ErrBadStruct:       "bad or already-closed handle",
	ErrOutOfMemory:     "out of memory",
	ErrNotMP4:          "not an mp4 file",
	ErrNotOpen:         "file not open",
	ErrNotParsed:       "file not parsed",
	ErrNullValue:       "null value",
	ErrNoTags:          "no tags",
	ErrMismatch:        "data type mismatch",
	ErrTagNotFound:     "tag not found",
	ErrNotImplemented:  "not implemented",
	ErrFileNotFound:    "file not found",
	ErrFileSeek:        "file seek error",
	ErrFileTell:        "file tell error",
	ErrFileRead:        "file read error",
	ErrFileWrite:       "file write error",
	ErrUnableToProcess: "unable to process",
	ErrNoCallback:      "no read/seek callback set",
	ErrCannotWrite:     "stream or read-only file, cannot write",
}

func (c ErrCode) String() string {
	if s, ok := errCodeText[c]; ok {
		return s
	}
	return "unknown error"
}

// Error wraps an ErrCode with context, so library callers can still
// reach the stable code (errors.As to *Error, then Code) while getting a
// useful message.
type Error struct {
	Code ErrCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, code ErrCode, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}
