package service

import (
	"errors"

	"github.com/okian/tutorboard/internal/adapters/source"
)

// Sentinel kinds surfaced to operators.
var (
	// ErrSourceUnavailable covers network failures, timeouts, non-2xx
	// responses and HTML pages served instead of CSV.
	ErrSourceUnavailable = source.ErrSourceUnavailable
	// ErrSourceMalformed reports a body that is not parseable CSV.
	ErrSourceMalformed = errors.New("score sheet is malformed")
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
