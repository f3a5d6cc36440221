package domain

import "time"

// IndexEntry is the searchable derivation of a file's extracted
// content. Entries are rebuilt whole on re-extraction, never patched,
// so the index can never drift from the content it was built from.
type IndexEntry struct {
	// FileID is the indexed file.
	FileID string

	// Tokens maps each term to its frequency in the content.
	Tokens map[string]int

	// Length is the total token count of the content.
	Length int

	// IndexedAt is when the entry was built.
	IndexedAt time.Time
}
