package types

// RankedResult is a listing with its similarity to the query
type RankedResult struct {
	Rank    int // Position in result set (1-based)
	Listing *JobListing

	// Score is the cosine similarity in [-1, 1].
	Score float64

	// Degraded is set when the listing had no embedding and was scored
	// with the zero vector.
	Degraded bool
}

// Validate checks if the ranked result is valid
func (r *RankedResult) Validate() error {
	if r.Rank < 1 {
		return ErrInvalidRank
	}

	if r.Score < -1 || r.Score > 1 {
		return ErrInvalidScore
	}

	if r.Listing == nil {
		return ErrMissingListing
	}

	return r.Listing.Validate()
}
