// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FileStore: Registered file persistence
//   - ContentStore: Extracted content persistence
//   - TaskStore: Extraction task persistence with atomic claim
//   - Extractor: The external text extraction service
//   - SearchIndex: Inverted index with snapshot reads
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
