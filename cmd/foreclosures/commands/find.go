package commands

import (
	"fmt"
	"os"
	"strings"

	"foreclosure-backend/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	findLimit    int
	findMinScore float64
)

func init() {
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", 5, "Maximum number of matches to print.")
	findCmd.Flags().Float64Var(&findMinScore, "min-score", 0.8, "Minimum similarity (0 to 1) for a match.")
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:   "find <county> <address...>",
	Short: "Looks up stored listings by approximate address.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		county := args[0]
		err := requireCounty(county)
		if err != nil {
			return err
		}
		query := strings.Join(args[1:], " ")

		idx, err := cfg.Stores(nil)(county).Load(cmd.Context())
		if err != nil {
			return err
		}
		addresses := make([]string, 0, len(idx))
		for address := range idx {
			addresses = append(addresses, address)
		}

		matches := textutil.RankAddresses(query, addresses, findMinScore, findLimit)
		if len(matches) == 0 {
			return fmt.Errorf("no listing in %s looks like %q", county, query)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Score", "Address", "Sale Date", "Status", "Price", "Details"})
		for _, m := range matches {
			r := idx[m.Value]
			t.AppendRow(table.Row{
				fmt.Sprintf("%.2f", m.Score),
				r.Address, r.SaleDate, r.Status, formatPrice(r.Price), r.DetailUrl,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
