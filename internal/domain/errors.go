package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrScoringFailed   = errors.New("alpha scoring failed")
	ErrNoObservations  = errors.New("no market observations")
	ErrStoreDisabled   = errors.New("persistent store disabled")
)
