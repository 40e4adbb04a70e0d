package timer

import "errors"

var (
	// ErrSelectorsLocked is returned when the selection is changed while
	// time has accrued. Reset the timer first.
	ErrSelectorsLocked = errors.New("selection is locked while the timer has time; reset first")

	// ErrNothingToSave is returned by Commit when no time has accrued.
	ErrNothingToSave = errors.New("nothing to save")
)

// MissingSelectionError names the selection field that is still empty.
type MissingSelectionError struct {
	Field string // "discipline" or "topic"
}

func (e *MissingSelectionError) Error() string {
	return "no " + e.Field + " selected"
}
