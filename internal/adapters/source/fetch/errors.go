package fetch

import "errors"

var (
	// ErrUnexpectedStatus is returned when a source answers with anything but 200.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrFetch wraps transport failures after retries are exhausted.
	ErrFetch = errors.New("fetch failed")
)
