// Package domain defines the split service's types and ports
package domain

// Summary reports what a split produced
type Summary struct {
	// Batches are the fully qualified batch locations, in ordinal order
	Batches []string `json:"batches"`
	// QueryLength is the total residue count across all records
	QueryLength int64 `json:"query-length"`
	// Records is the number of sequence records read
	Records int `json:"records"`
}
