package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrInvalidRecord = errors.New("invalid result record")
)
