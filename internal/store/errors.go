package store

import "errors"

// Storage failure kinds. Errors returned by this package wrap exactly one of
// these and can be matched with errors.Is.
var (
	ErrStorageInit  = errors.New("storage init failed")
	ErrStorageWrite = errors.New("storage write failed")
	ErrStorageRead  = errors.New("storage read failed")
	ErrClosed       = errors.New("task store is closed")
)
