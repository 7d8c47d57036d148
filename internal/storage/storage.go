// Package storage persists processed images behind a backend-neutral
// interface. The backend is chosen once at startup; handlers and the image
// pipeline only see Store.
package storage

import "context"

// Metadata describes the provenance of a stored image. Object-storage
// backends attach it to the object; the filesystem backend ignores it.
type Metadata struct {
	OriginalRef string
	LotRef      string
	HouseName   string
}

// Store is the capability set the image pipeline needs from a backend.
type Store interface {
	// Exists reports whether a key already holds data. Probe failures are
	// reported as absent so the pipeline re-attempts instead of silently
	// skipping.
	Exists(ctx context.Context, key string) bool

	// Write persists data at the given relative key, overwriting any
	// existing content.
	Write(ctx context.Context, key string, data []byte, meta Metadata) error

	// PublicURL returns the addressable reference for a key, e.g. a
	// local:// URI or a public HTTPS URL.
	PublicURL(key string) string
}
