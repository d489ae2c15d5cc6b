package gpx

import "errors"

// Sentinel kinds for GPX errors.
var (
	ErrInvalidGPX = errors.New("invalid gpx document")
	ErrNoPoints   = errors.New("gpx has no track points")
)
