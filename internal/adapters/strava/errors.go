package strava

import "errors"

// Sentinel kinds for Strava errors.
var (
	// ErrUpstream marks a failed or rejected call to Strava.
	ErrUpstream      = errors.New("strava upstream error")
	ErrMissingInput  = errors.New("strava input missing")
	ErrNotConfigured = errors.New("strava client not configured")
)
