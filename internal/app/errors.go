package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrNotFound        = errors.New("not found")
	ErrStravaDisabled  = errors.New("strava integration not configured")
	ErrReportNotSent   = errors.New("report could not be sent")
	ErrInvalidArgument = errors.New("invalid argument")
)
