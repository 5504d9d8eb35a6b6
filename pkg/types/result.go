package types

import "time"

// ScanResult classifies every currently known or currently present path into
// exactly one of four disjoint sets.
type ScanResult struct {
	New       []string
	Updated   []string
	Deleted   []string
	Unchanged []string

	// Touched holds the Unchanged paths whose mtime moved while their content
	// still matches, carrying the refreshed record.
	Touched []FileRecord

	// Errors holds paths whose content could not be hashed. Those paths are
	// kept in Unchanged so their stored chunks survive until the next scan.
	Errors map[string]error
}

// Total returns the number of classified paths.
func (r *ScanResult) Total() int {
	return len(r.New) + len(r.Updated) + len(r.Deleted) + len(r.Unchanged)
}

// HasChanges reports whether applying the scan would touch any store.
func (r *ScanResult) HasChanges() bool {
	return len(r.New)+len(r.Updated)+len(r.Deleted) > 0
}

// UpdateSummary reports the outcome of one synchronization cycle.
type UpdateSummary struct {
	Added        int           `json:"added"`
	Updated      int           `json:"updated"`
	Deleted      int           `json:"deleted"`
	Unchanged    int           `json:"unchanged"`
	Failed       int           `json:"failed"`
	TotalChunks  int           `json:"total_chunks"`
	APICallCount int           `json:"api_call_count"`
	Duration     time.Duration `json:"-"`
}

// QueryResult is one nearest-neighbor hit as returned by a vector store.
type QueryResult struct {
	FilePath   string
	Content    string
	Heading    string
	ChunkIndex int
	Distance   float64
}

// SearchResult is one ranked answer to a search request.
type SearchResult struct {
	FilePath   string  `json:"file_path"`
	Heading    string  `json:"heading"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// NewSearchResult converts a store hit into a search result, Score = 1 - Distance.
func NewSearchResult(q QueryResult) SearchResult {
	return SearchResult{
		FilePath:   q.FilePath,
		Heading:    q.Heading,
		Content:    q.Content,
		ChunkIndex: q.ChunkIndex,
		Score:      1 - q.Distance,
	}
}
