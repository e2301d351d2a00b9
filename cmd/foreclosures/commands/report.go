package commands

import (
	"fmt"
	"io"
	"time"

	"foreclosure-backend/lib/timezone"
	"foreclosure-backend/services/reconciler"

	"github.com/jedib0t/go-pretty/v6/table"
)

func formatPrice(price *float64) string {
	if price == nil {
		return ""
	}
	return fmt.Sprintf("$%.2f", *price)
}

func printReport(w io.Writer, report reconciler.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s, %s", report.County, report.StartedAt.In(timezone.Location).Format(time.DateTime)))
	t.AppendRows([]table.Row{
		{"Stage", report.Stage},
		{"Fetched", report.Fetched},
		{"Malformed rows", report.Malformed},
		{"Inserted", report.Inserted},
		{"Updated", report.Updated},
		{"Listing links derived", report.Derived},
		{"Stored before", report.TotalBefore},
		{"Stored after", report.TotalAfter},
		{"Store", report.Store},
		{"Took", report.Duration.Round(time.Millisecond)},
	})
	if report.StoreDegraded {
		t.AppendRow(table.Row{"Warning", "store was unreadable and has been rewritten"})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
