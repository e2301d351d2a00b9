package commands

import (
	"fmt"
	"os"
	"slices"
	"time"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showUpcoming bool
	showByDate   bool
)

func init() {
	showCmd.Flags().BoolVar(&showUpcoming, "upcoming", false, "Only show listings with a sale date today or later.")
	showCmd.Flags().BoolVar(&showByDate, "by-date", false, "Order by sale date instead of address.")
	rootCmd.AddCommand(showCmd)
}

type dated struct {
	record listing.Record
	sale   time.Time
	known  bool
}

// filterListings applies --upcoming and --by-date, undated listings are
// kept and ordered last.
func filterListings(records []listing.Record, now time.Time, upcoming, byDate bool) []listing.Record {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, timezone.Location)

	var kept []dated
	for _, r := range records {
		sale, ok := timezone.ParseSaleDate(r.SaleDate)
		if upcoming && ok && sale.Before(startOfToday) {
			continue
		}
		kept = append(kept, dated{record: r, sale: sale, known: ok})
	}

	if byDate {
		slices.SortStableFunc(kept, func(a, b dated) int {
			switch {
			case a.known && !b.known:
				return -1
			case !a.known && b.known:
				return 1
			default:
				return a.sale.Compare(b.sale)
			}
		})
	}

	out := make([]listing.Record, len(kept))
	for i, d := range kept {
		out[i] = d.record
	}
	return out
}

var showCmd = &cobra.Command{
	Use:   "show <county>",
	Short: "Prints the county's stored listings.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		county := args[0]
		err := requireCounty(county)
		if err != nil {
			return err
		}

		store := cfg.Stores(nil)(county)
		idx, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		records := filterListings(idx.Sorted(), timezone.Now(), showUpcoming, showByDate)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(store.Location())
		t.AppendHeader(table.Row{"Address", "Sale Date", "Status", "Price", "Defendant", "Listing"})
		for _, r := range records {
			t.AppendRow(table.Row{r.Address, r.SaleDate, r.Status, formatPrice(r.Price), r.Defendant, r.ListingUrl})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d of %d listings", len(records), len(idx))})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
