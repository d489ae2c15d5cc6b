package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	// ErrAlreadyImported is a soft outcome: the external id was recorded before.
	ErrAlreadyImported = errors.New("already imported")
	ErrUnknownSource   = errors.New("unknown import source")
	ErrInvalidRecord   = errors.New("invalid import record")
	ErrActivityMissing = errors.New("activity not found")
	ErrPersistence     = errors.New("ledger persistence failed")
)
