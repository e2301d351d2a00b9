package sheriffsale

import (
	"context"
	"fmt"
	"foreclosure-backend/lib/htmlutil"
	"foreclosure-backend/lib/listing"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// ParseStats counts the rows that did not become listings.
type ParseStats struct {
	Rows int
	// rows with no data cells or a single spanning cell (pagination, notices)
	Decorative int
	// rows with data cells but too few of them to hold a listing
	Malformed int
}

var ErrNoTable = fmt.Errorf("no table found on page")

func isDecorative(cells *goquery.Selection) bool {
	if cells.Length() == 0 {
		return true
	}
	spanning := false
	blank := true
	cells.Each(func(_ int, cell *goquery.Selection) {
		span, err := strconv.Atoi(cell.AttrOr("colspan", "1"))
		if err == nil && span > 1 {
			spanning = true
		}
		if htmlutil.SelectionText(cell) != "" {
			blank = false
		}
	})
	return spanning || blank
}

// Parse extracts the listing rows of the first table in doc. The first row
// is the header. pageUrl is used to resolve relative detail links.
func Parse(ctx context.Context, doc *goquery.Document, pageUrl *url.URL, layout Layout) ([]listing.RawRow, ParseStats, error) {
	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	var stats ParseStats

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, stats, ErrNoTable
	}

	minCells := layout.MinCells()
	var rows []listing.RawRow

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}

		cells := tr.ChildrenFiltered("td")
		if isDecorative(cells) {
			stats.Decorative++
			return
		}
		if cells.Length() < minCells {
			stats.Malformed++
			slog.WarnContext(ctx, "skipping malformed row",
				"source", "fetcher",
				"row", i,
				"cells", cells.Length(),
				"expected", minCells,
				"text", htmlutil.SelectionText(cells),
			)
			return
		}

		cellText := func(idx int) string {
			return htmlutil.SelectionText(cells.Eq(idx))
		}

		row := listing.RawRow{
			SaleDate:  cellText(layout.SaleDate),
			Address:   cellText(layout.Address),
			Defendant: cellText(layout.Defendant),
			Plaintiff: cellText(layout.Plaintiff),
			Attorney:  cellText(layout.Attorney),
			Price:     cellText(layout.Price),
			Status:    cellText(layout.Status),
		}
		if layout.Details >= 0 {
			row.DetailUrl = detailLink(ctx, pageUrl, cells.Eq(layout.Details))
		}

		rows = append(rows, row)
		stats.Rows++
	})

	span.SetAttributes(
		attribute.Int("rows", stats.Rows),
		attribute.Int("decorative", stats.Decorative),
		attribute.Int("malformed", stats.Malformed),
	)

	return rows, stats, nil
}

func detailLink(ctx context.Context, pageUrl *url.URL, cell *goquery.Selection) string {
	anchors := htmlutil.GetAnchors(ctx, pageUrl, cell.Find("a[href]"))
	if len(anchors) == 0 {
		return ""
	}
	return anchors[0].Href
}

// ParseHTML is Parse over a raw html document.
func ParseHTML(ctx context.Context, html string, pageUrl string, layout Layout) ([]listing.RawRow, ParseStats, error) {
	base, err := url.Parse(pageUrl)
	if err != nil {
		return nil, ParseStats{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, ParseStats{}, err
	}
	return Parse(ctx, doc, base, layout)
}
