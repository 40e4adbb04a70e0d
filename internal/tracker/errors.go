package tracker

import "fmt"

// PersistError reports a transition that was applied in memory but could not
// be written to the store. The in-memory state stays authoritative and the
// next successful write catches the store up.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
