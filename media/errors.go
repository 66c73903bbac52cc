package media

import "errors"

var (
	// ErrOutputMissing indicates a tool exited cleanly but produced no file.
	ErrOutputMissing = errors.New("output file not found")

	// ErrToolFailed indicates a tool exited with a non-zero status.
	ErrToolFailed = errors.New("media tool failed")
)
