package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	ErrMalformed = errors.New("score sheet is not valid csv")
)
