package shaping

import "errors"

// Sentinel kinds for shaping errors. All of them abort the run.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrMalformedRow  = errors.New("malformed row")
	ErrBadDate       = errors.New("unparseable date")
	ErrDuplicateDate = errors.New("duplicate date")
)
