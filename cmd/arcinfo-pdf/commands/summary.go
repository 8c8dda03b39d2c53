package commands

import (
	"fmt"
	"io"

	"arcinfo-pdf/internal/components/chrono"
	"arcinfo-pdf/internal/edition"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// renderSummary prints one row per page asset followed by the outcome of the
// run.
func renderSummary(out io.Writer, report edition.Report) {
	t := newTable(out)
	t.SetTitle(fmt.Sprintf("ArcInfo %s", chrono.EditionDate(report.Date)))
	t.AppendHeader(table.Row{"#", "Page", "Status", "HTTP", "Pages"})

	for i, page := range report.Pages {
		t.AppendRow(table.Row{
			i + 1,
			string(page.Path),
			page.Status.String(),
			page.StatusCode,
			page.Pages,
		})
	}

	output := "not written"
	if report.Saved {
		output = report.OutputPath
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("logged in: %t", report.Login.Authenticated), "", "total", report.PageCount})
	t.AppendFooter(table.Row{"", output, "", "", ""})
	t.Render()
}
