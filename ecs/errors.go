package ecs

import "errors"

// ErrInvalidArgument is returned by builders given out-of-domain values.
var ErrInvalidArgument = errors.New("ecs: invalid argument")
