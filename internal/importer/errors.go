package importer

import "errors"

var (
	ErrUnhealthy   = errors.New("service is not healthy")
	ErrNoFiles     = errors.New("no gpx files found")
	ErrUnexpected  = errors.New("unexpected response")
	ErrInvalidArgs = errors.New("invalid arguments")
)
