package repository

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrStoreUnavailable = errors.New("cache store unavailable")
	ErrInvalidTTL       = errors.New("invalid cache ttl")
)
