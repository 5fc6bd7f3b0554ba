package types

import "time"

// Bucket represents a storage bucket
type Bucket struct {
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
	Provider  string    `json:"provider"` // aws, gcp, minio
}

// ObjectRecord is the metadata captured for one listed object
type ObjectRecord struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// ListingPage is one page of a paginated object listing.
// Truncated reports whether more pages follow; NextToken resumes after the
// last record of this page.
type ListingPage struct {
	Records   []ObjectRecord
	NextToken string
	Truncated bool
}

// HasContents reports whether the page carried any objects
func (p *ListingPage) HasContents() bool {
	return p != nil && len(p.Records) > 0
}
