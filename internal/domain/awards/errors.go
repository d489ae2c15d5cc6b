package awards

import "errors"

// Sentinel kinds for award errors.
var (
	ErrPersistence    = errors.New("award persistence failed")
	ErrInvalidCatalog = errors.New("invalid award catalog")
)
