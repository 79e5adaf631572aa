package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidRow     = errors.New("row must be >= 0")
	ErrInvalidRank    = errors.New("rank must be >= 1")
	ErrInvalidScore   = errors.New("score must be between -1 and 1")
	ErrMissingListing = errors.New("listing is required")
)
