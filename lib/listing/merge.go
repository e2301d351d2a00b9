package listing

import (
	"context"
	"log/slog"
)

type MergeStats struct {
	Inserted int
	Updated  int
	// batch records without an address, they cannot be keyed
	Skipped int
}

// Merge applies batch onto existing and returns the result as a new index,
// existing is not modified. For an address already present, every field
// present on the incoming record overwrites the stored one and absent fields
// are kept. ListingUrl is only ever filled, never replaced.
func Merge(existing Index, batch []Record) (Index, MergeStats) {
	out := existing.Clone()
	var stats MergeStats

	for _, incoming := range batch {
		key := incoming.Key()
		if key == "" {
			stats.Skipped++
			continue
		}
		incoming.Address = key

		current, ok := out[key]
		if !ok {
			if incoming.Price != nil {
				incoming.Price = Price(*incoming.Price)
			}
			out[key] = incoming
			stats.Inserted++
			continue
		}

		out[key] = overwrite(current, incoming)
		stats.Updated++
	}

	return out, stats
}

func overwriteString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func overwrite(current, incoming Record) Record {
	overwriteString(&current.Defendant, incoming.Defendant)
	overwriteString(&current.Plaintiff, incoming.Plaintiff)
	overwriteString(&current.Attorney, incoming.Attorney)
	overwriteString(&current.Status, incoming.Status)
	overwriteString(&current.SaleDate, incoming.SaleDate)
	overwriteString(&current.DetailUrl, incoming.DetailUrl)
	overwriteString(&current.County, incoming.County)
	if incoming.Price != nil {
		current.Price = Price(*incoming.Price)
	}
	if current.ListingUrl == "" {
		current.ListingUrl = incoming.ListingUrl
	}
	return current
}

type DeriveStats struct {
	Derived int
	Failed  int
}

// DeriveListingUrls fills in ListingUrl for every record lacking one.
// Records that cannot be formatted keep an empty ListingUrl.
func DeriveListingUrls(ctx context.Context, idx Index, template string) (Index, DeriveStats) {
	out := idx.Clone()
	var stats DeriveStats

	for key, record := range out {
		if record.ListingUrl != "" {
			continue
		}
		link, err := ListingUrl(template, record.Address)
		if err != nil {
			slog.WarnContext(ctx, "failed to derive listing url",
				"source", "reconciler",
				"address", record.Address,
				"err", err,
			)
			stats.Failed++
			continue
		}
		record.ListingUrl = link
		out[key] = record
		stats.Derived++
	}

	return out, stats
}
