package flow

import "errors"

var (
	ErrNoTemplates   = errors.New("no page templates")
	ErrNoBoxes       = errors.New("no box in the repeating page templates")
	ErrPageLimit     = errors.New("page limit exceeded")
	ErrBadPagination = errors.New("unknown pagination")
	// ErrNoBreak means a failed fit check left nothing to move.
	ErrNoBreak = errors.New("overflow without a break point")
)
