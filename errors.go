package sqlitepg

import (
	"errors"
	"fmt"
)

// Error kinds returned by a run. Every error from Run wraps exactly one of
// these, so callers branch with errors.Is regardless of wrapping.
var (
	// ErrArgumentMissing indicates a required setting, usually the
	// destination URL, was not supplied. No connection was attempted.
	ErrArgumentMissing = errors.New("required argument missing")

	// ErrSourceConnect indicates the SQLite file could not be opened.
	// The destination was never contacted.
	ErrSourceConnect = errors.New("could not open source database")

	// ErrSourceRead indicates rows could not be read or decoded from the source.
	ErrSourceRead = errors.New("could not read source table")

	// ErrDestinationConnect indicates the destination pool could not hand out
	// a connection.
	ErrDestinationConnect = errors.New("could not connect to destination database")

	// ErrInsecureTransport indicates the destination URL allows an unencrypted
	// connection. It is always reported wrapped with ErrDestinationConnect.
	ErrInsecureTransport = errors.New("destination connection must require TLS")

	// ErrQuery indicates a truncate or insert statement failed on the destination.
	ErrQuery = errors.New("destination query failed")
)

// RunError reports the step a run failed at and how many records were
// inserted before the failure.
type RunError struct {
	Step     string
	Inserted int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed after %d inserted record(s): %v", e.Step, e.Inserted, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
