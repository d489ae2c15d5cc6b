package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrUnknownSource = errors.New("unknown import source")
	ErrUnknownEngine = errors.New("unsupported store engine")
)
