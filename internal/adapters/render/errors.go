package render

import "errors"

var (
	// ErrUnknownField is returned when a chart refers to a column the dataset does not have.
	ErrUnknownField = errors.New("unknown chart field")
	// ErrEncode is returned when a spec cannot be serialized.
	ErrEncode = errors.New("failed to encode chart spec")
)
