package model

import "errors"

// ErrValidation marks input that fails field validation.
var ErrValidation = errors.New("validation failed")
