package sheriffsale

import (
	"context"
	"fmt"
	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/telemetry"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("foreclosures.lib.scrapers.sheriffsale")

const tableSelector = "table"

type Result struct {
	Rows  []listing.RawRow
	Stats ParseStats
}

// Fetcher pulls the listing rows off a county sales search page.
type Fetcher struct {
	browser Browser
	layout  Layout
}

func NewFetcher(browser Browser, layout Layout) Fetcher {
	return Fetcher{browser: browser, layout: layout}
}

// Fetch fails with listing.KindNetworkTimeout when the page or its table
// never showed up, listing.KindScrapeEmpty when the table had no listings and
// listing.KindScrapeMalformed for anything else.
func (f Fetcher) Fetch(ctx context.Context, pageUrl string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	fail := func(err error) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	slog.InfoContext(ctx, "fetching sales page", "source", "fetcher", "url", pageUrl)

	html, err := f.browser.Render(ctx, pageUrl, tableSelector)
	if err != nil {
		if listing.KindOf(err) == listing.KindGeneric {
			err = listing.Fail(listing.KindScrapeMalformed, err)
		}
		return fail(err)
	}

	rows, stats, err := ParseHTML(ctx, html, pageUrl, f.layout)
	if err != nil {
		return fail(listing.Fail(listing.KindScrapeMalformed, err))
	}
	if len(rows) == 0 {
		return fail(listing.Fail(
			listing.KindScrapeEmpty,
			fmt.Errorf("no listings on %s (%d decorative, %d malformed rows)", pageUrl, stats.Decorative, stats.Malformed),
		))
	}

	slog.InfoContext(ctx, "fetched sales page",
		"source", "fetcher",
		"rows", stats.Rows,
		"decorative", stats.Decorative,
		"malformed", stats.Malformed,
	)
	return Result{Rows: rows, Stats: stats}, nil
}
