package synth

import "errors"

var (
	ErrConfig = errors.New("invalid synth config")
	ErrWrite  = errors.New("synth write failed")
)
