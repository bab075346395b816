package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAssetID     = errors.New("invalid asset identifier")
	ErrBackendUnavailable = errors.New("execution backend unavailable")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrLockHeld           = errors.New("lock already held")
)
