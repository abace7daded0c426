package upload

import "errors"

var (
	// ErrInvalidTarget is returned by the binder for anything but a non-nil struct pointer.
	ErrInvalidTarget = errors.New("bind target must be a non-nil pointer to struct")
	// ErrUnsupportedField is returned for a `related` tag on a field of another type.
	ErrUnsupportedField = errors.New("unsupported type for related field")
)
