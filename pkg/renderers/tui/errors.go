package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g. Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrStillInvalid is returned when validation keeps failing after the
	// configured number of attempts.
	ErrStillInvalid = errors.New("tui: submission still invalid")
)
