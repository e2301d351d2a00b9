package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(countiesCmd)
}

var countiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "Prints the configured counties and their sales pages.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		counties := cfg.CountyTable()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"County", "Id", "Sales Page"})
		for _, name := range counties.Names() {
			county := counties[name]
			t.AppendRow(table.Row{name, county.Id, county.PageUrl()})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
