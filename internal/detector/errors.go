package detector

import (
	"errors"
	"fmt"
)

// ErrPlatformUnsupported is returned by Initialize when no landmark-producing
// capability exists on the current platform. The detector goes to
// StateNotAvailable, terminal for this instance.
var ErrPlatformUnsupported = errors.New("no pose capability on this platform")

// ErrNotReady is returned by Ingest when the detector is not in StateReady.
var ErrNotReady = errors.New("detector is not ready")

// InitError reports a startup fault of an existing capability. Unlike
// ErrPlatformUnsupported it is recoverable: a later Initialize may succeed.
type InitError struct {
	Reason string
	Err    error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("detector init failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("detector init failed: %s", e.Reason)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
