package listingstore

import (
	"context"
	"fmt"
	"path/filepath"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("foreclosures.lib.listingstore")

// Store is the persisted, address keyed collection of listings for a single
// county. It is read once and rewritten wholesale by each run.
type Store interface {
	// Load returns the persisted index, an empty one if nothing was saved yet.
	Load(ctx context.Context) (listing.Index, error)
	// Save replaces the persisted state with idx.
	Save(ctx context.Context, idx listing.Index) error
	Location() string
}

// CountySlug is the file and row namespace used for a county's store,
// "Cape May" -> "cape-may".
func CountySlug(county string) string {
	return listing.ListingSlug(county)
}

// CSVPath is where a county's store lives inside the downloads directory.
func CSVPath(downloadsDir, county string) string {
	return filepath.Join(downloadsDir, fmt.Sprintf("%s-sheriff-sales.csv", CountySlug(county)))
}
