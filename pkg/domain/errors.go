package domain

import "errors"

// ErrJobNotFound is returned when a job ID cannot be found in the store.
var ErrJobNotFound = errors.New("job not found")
