package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrStillInvalid is returned when values fail validation after the
	// configured number of correction rounds.
	ErrStillInvalid = errors.New("tui: values still invalid")
)
