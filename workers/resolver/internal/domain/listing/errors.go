package listing

import (
	"errors"
	"fmt"
)

// ErrBadSnapshot is returned when a persisted index cannot be trusted.
var ErrBadSnapshot = errors.New("bad index snapshot")

// IngestError is returned when a listing has no line containing the marker,
// so the column where relative paths start is unknown.
type IngestError struct {
	Marker string
	Lines  int
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("unable to find relative path start in listing: no line contains %q (%d lines read)", e.Marker, e.Lines)
}

func errBadSnapshot(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadSnapshot, fmt.Sprintf(format, args...))
}
