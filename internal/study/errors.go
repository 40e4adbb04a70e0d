package study

import "errors"

// InvalidSessionError is returned by Commit for a session that cannot be
// folded into the aggregate. The aggregate is left unchanged.
type InvalidSessionError struct {
	Reason string
}

func (e *InvalidSessionError) Error() string {
	return "invalid session: " + e.Reason
}

// ErrInconsistent reports an aggregate that does not match its session list.
var ErrInconsistent = errors.New("aggregate does not match sessions")
