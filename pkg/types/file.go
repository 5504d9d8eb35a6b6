package types

import "time"

// FileRecord is the persisted state of one indexed document.
//
// A record is created only after the file's chunks were embedded and stored,
// refreshed only after a successful re-embed, and deleted when the file disappears.
type FileRecord struct {
	Path    string  // relative to the docs root, slash separated, unique
	Hash    string  // hex SHA-256 of the file content
	ModTime float64 // Unix seconds including the fractional part
}

// Validate checks if the record can be persisted.
func (r FileRecord) Validate() error {
	if r.Path == "" {
		return ErrEmptyPath
	}
	if r.Hash == "" {
		return ErrEmptyHash
	}
	return nil
}

// ModTimeOf converts a file modification time to the stored representation.
// Equal inputs always produce bit-identical outputs, so records compare exactly.
func ModTimeOf(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
