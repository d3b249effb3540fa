package page

import "errors"

// Error constants
var (
	ErrTemplate = errors.New("page template failed")
	ErrWrite    = errors.New("page write failed")
)
