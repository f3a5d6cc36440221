// Package domain defines the core business entities for extractd.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - File: A registered upload awaiting or holding extracted content
//   - ExtractedContent: The text extracted from a file
//   - ExtractionTask: One extraction attempt lineage with retry state
//   - IndexEntry: The searchable derivation of completed content
//   - SearchResult: A ranked, highlighted search hit
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
