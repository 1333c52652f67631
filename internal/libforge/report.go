package libforge

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/luxforge/forgectl/internal/libcheck"
)

// ReportResults renders a validator run as a table.
func ReportResults(w io.Writer, title string, results *libcheck.TestResults) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Status", "Check", "Details"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Check", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Details", WidthMax: 70, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, tc := range results.Cases {
		status := "FAIL"
		if tc.Passed() {
			status = "PASS"
		}
		details := ""
		if tc.Message() != tc.Name {
			details = tc.Message()
		}
		t.AppendRow(table.Row{i + 1, status, tc.Name, details})
	}

	t.AppendFooter(table.Row{"", "", "Passed", fmt.Sprintf("%d/%d", results.Passed(), results.Total())})
	t.Render()
}
