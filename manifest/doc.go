// Package manifest defines the read-only C2PA manifest store model consumed by
// the summary projector, plus the pure selectors used to pull display fields
// out of it.
//
// Stores arrive already validated by an external verification engine; nothing
// in this package verifies signatures or parses embedded binary manifests.
package manifest
