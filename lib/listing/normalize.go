package listing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const DefaultListingUrlTemplate = "https://www.zillow.com/homes/%s_rb/"

// RawRow is a listing row as it appears on the sales page, untyped.
type RawRow struct {
	SaleDate  string
	Address   string
	Defendant string
	Plaintiff string
	Attorney  string
	Price     string
	Status    string
	DetailUrl string
}

var priceNoise = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\n", "", "\u00a0", "")

// ParsePrice parses a currency string like "$150,000.00".
func ParsePrice(raw string) (float64, error) {
	cleaned := priceNoise.Replace(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price %q", raw)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("price %q is out of range", raw)
	}
	return value, nil
}

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = strings.NewReplacer(",", "", ".", "")
	hyphens     = regexp.MustCompile(`-{2,}`)
)

// ListingSlug turns "12 Main St., Dover" into "12-main-st-dover".
func ListingSlug(address string) string {
	slug := strings.TrimSpace(address)
	slug = whitespace.ReplaceAllString(slug, "-")
	slug = punctuation.Replace(slug)
	slug = hyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return strings.ToLower(slug)
}

// ListingUrl embeds the address slug into template, which must hold exactly one %s.
func ListingUrl(template, address string) (string, error) {
	if strings.Count(template, "%s") != 1 {
		return "", fmt.Errorf("listing url template %q must contain exactly one %%s", template)
	}
	slug := ListingSlug(address)
	if slug == "" {
		return "", fmt.Errorf("address %q has no usable characters", address)
	}
	link := fmt.Sprintf(template, url.PathEscape(slug))
	_, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return link, nil
}

// Normalize converts raw rows into records stamped with county. Bad prices
// become 0 with a warning, they never drop the row.
func Normalize(ctx context.Context, rows []RawRow, county string) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		price, err := ParsePrice(row.Price)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse price, defaulting to 0",
				"source", "normalizer",
				"address", row.Address,
				"raw", row.Price,
				"err", err,
			)
			price = 0
		}

		records = append(records, Record{
			Address:   Key(row.Address),
			Defendant: strings.TrimSpace(row.Defendant),
			Plaintiff: strings.TrimSpace(row.Plaintiff),
			Attorney:  strings.TrimSpace(row.Attorney),
			Price:     Price(price),
			Status:    strings.TrimSpace(row.Status),
			SaleDate:  strings.TrimSpace(row.SaleDate),
			DetailUrl: strings.TrimSpace(row.DetailUrl),
			County:    county,
		})
	}
	return records
}
