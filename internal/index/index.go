// Package index implements the persistent hash -> posting index (spec
// 4.E) on top of Badger, the embedded key/value store the teacher's
// indexer and matcher already depend on.
package index

import (
	"context"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/fingerprint"
)

// Posting is one occurrence of a hash in the catalog.
type Posting struct {
	TrackID  uint64
	AnchorT  int
}

// Index is the persistent hash -> posting-list mapping the matcher reads
// and ingest writes.
type Index interface {
	// InsertTrack makes every posting for trackID visible atomically:
	// either all of them are visible to subsequent lookups, or none are.
	InsertTrack(ctx context.Context, trackID uint64, hashes []fingerprint.Hash) error

	// Lookup returns the postings for hash h, or nil if h is unknown or
	// has been classified a hot hash (posting count > P_max).
	Lookup(ctx context.Context, h uint32) ([]Posting, error)

	// DeleteTrack removes trackID's postings. Deletion may be lazy
	// (tombstones); Lookup never returns postings for a deleted track
	// once DeleteTrack has returned.
	DeleteTrack(ctx context.Context, trackID uint64) error

	// SchemaVersion returns the schema version advertised by the open
	// store's header.
	SchemaVersion() int

	// Header returns the full persisted header.
	Header() config.Header

	Close() error
}
