package service

import "errors"

// ErrValidation marks failures the caller can fix by correcting the
// request. Handlers map it to a 400 instead of a 500.
var ErrValidation = errors.New("invalid request")
