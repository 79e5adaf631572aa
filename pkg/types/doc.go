// Package types provides shared type definitions for jobmatch.
//
// JobListing is one row of the dataset, RankedResult pairs a listing with
// its similarity to the query:
//
//	results, err := rec.Recommend(ctx, "golang backend, remote", "data/job_listings.csv")
//	for _, r := range results {
//	    fmt.Printf("%d. %s at %s (%.4f)\n", r.Rank, r.Listing.Title, r.Listing.Company, r.Score)
//	}
package types
