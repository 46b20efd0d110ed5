package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrMissingMatchID    = errors.New("match id is required")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrAddressNotAllowed = errors.New("address not allowed")
	ErrUnknownJobKind    = errors.New("unknown job kind")
	ErrNotStarted        = errors.New("service not started")
	ErrQueueFull         = errors.New("ingest queue full")
)
