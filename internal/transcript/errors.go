package transcript

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocument is returned when no document bytes were supplied.
	ErrNoDocument = errors.New("missing PDF document")
	// ErrNoText is returned when the document has no extractable text.
	ErrNoText = errors.New("no text found in PDF")
	// ErrInvalidPDF is returned when the bytes are not a readable PDF.
	ErrInvalidPDF = errors.New("invalid PDF")
	// ErrTooManyPages is returned when the document exceeds the page limit.
	ErrTooManyPages = errors.New("PDF has too many pages")
	// ErrNoProvider is returned when the requested extraction provider is
	// not registered.
	ErrNoProvider = errors.New("extraction provider not available")
)

// InputError reports a problem with the submitted document. It aborts a run
// before any chunk is dispatched.
type InputError struct {
	Err   error // one of the Err* sentinels above
	Cause error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err, e.Cause)
	}
	return e.Err.Error()
}

func (e *InputError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// ErrorKind classifies a chunk failure.
type ErrorKind string

const (
	// KindCall means the extraction service could not be reached or
	// returned a transport-level failure.
	KindCall ErrorKind = "call"
	// KindParse means the service answered but the payload was unusable.
	KindParse ErrorKind = "parse"
	// KindTimeout means the chunk's deadline passed before it finished.
	KindTimeout ErrorKind = "timeout"
)

// ChunkError is a failure isolated to one chunk.
type ChunkError struct {
	Index int
	Kind  ErrorKind
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s error: %v", e.Index, e.Kind, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
