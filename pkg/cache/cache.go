// Package cache stores rendered artifacts so that unchanged diagrams are not
// rendered twice.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for the
// API server, and [NullCache] when caching is disabled. Keys are derived by
// a [Keyer] from content hashes, so an entry can never be served for a
// different diagram or output format.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop all of their entries.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Default time-to-live values.
const (
	TTLArtifact = 7 * 24 * time.Hour
	TTLDiagram  = 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// DiagramKey identifies the diagrams laid out from a source.
	DiagramKey(sourceHash string, opts DiagramKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// DiagramKeyOpts are the options that change a layout result.
type DiagramKeyOpts struct {
	Network      string  `json:"network,omitempty"`
	Direction    string  `json:"direction"`
	FontSize     float64 `json:"font_size"`
	RankGap      float64 `json:"rank_gap"`
	UnknownKinds string  `json:"unknown_kinds"`
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Engine      string  `json:"engine"`
	Diagnostics bool    `json:"diagnostics,omitempty"`
	ShowInput   bool    `json:"show_input,omitempty"`
	Detailed    bool    `json:"detailed,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DiagramKey returns "diagram:<version>:<hash>".
func (DefaultKeyer) DiagramKey(sourceHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", sourceHash, opts)
}

// ArtifactKey returns "artifact:<version>:<hash>".
func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", diagramHash, opts)
}
