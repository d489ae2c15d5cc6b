package publisher

import "errors"

// ErrPublish marks a message that could not be delivered.
var ErrPublish = errors.New("publish failed")
