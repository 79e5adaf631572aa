package types

// JobListing is one dataset row.
type JobListing struct {
	// Row is the zero-based position in the dataset, used as the ranking
	// tie-break.
	Row int

	Title       string
	Company     string
	Location    string
	Description string // As read from the dataset

	// NormalizedDescription is Description prepared for matching. It is
	// the text that gets embedded.
	NormalizedDescription string

	// Extra holds the dataset columns beyond the required four.
	Extra map[string]string
}

// Validate checks the fields the recommender relies on
func (l *JobListing) Validate() error {
	if l.Row < 0 {
		return ErrInvalidRow
	}
	return nil
}
