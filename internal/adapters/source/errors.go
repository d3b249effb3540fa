package source

import "errors"

// Sentinel kinds for loader errors. All of them abort the run.
var (
	ErrFetch  = errors.New("fetch source failed")
	ErrStatus = errors.New("unexpected source status")
	ErrDecode = errors.New("decode source csv failed")
)
