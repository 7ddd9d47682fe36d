package ranking

import "errors"

// ErrInvalidFilter reports unparseable or inverted filter bounds.
var ErrInvalidFilter = errors.New("invalid filter")
