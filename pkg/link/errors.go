package link

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound means the path is absent from the current registry
	// snapshot: the device was unplugged, never enumerated, or the caller
	// holds a path from a previous scan. Re-enumerate and retry.
	ErrNotFound = errors.New("device not found")

	// ErrInterrupted means the device became unavailable mid-operation,
	// e.g. it was unplugged or grabbed by another session while a transfer
	// was in flight.
	ErrInterrupted = errors.New("action was interrupted")

	// ErrEmptyReadLimit means the device kept answering reads with
	// zero-length frames past the configured cap.
	ErrEmptyReadLimit = errors.New("too many consecutive empty reads")
)

// ConnectError reports that every connect attempt against a path failed. It
// carries only the final attempt's error; intermediate errors are discarded.
type ConnectError struct {
	Path     string
	Attempts int
	Last     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s failed after %d attempts: %v", e.Path, e.Attempts, e.Last)
}

func (e *ConnectError) Unwrap() error {
	return e.Last
}
