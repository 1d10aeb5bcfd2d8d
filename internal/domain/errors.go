package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound = errors.New("domain: not found") //nolint:gochecknoglobals // sentinel error
	ErrConflict = errors.New("domain: conflict")  //nolint:gochecknoglobals // sentinel error
)
