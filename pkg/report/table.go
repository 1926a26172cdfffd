// Package report renders transactions and dashboard summaries for people:
// terminal tables and xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/expense"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const dateLayout = "2006-01-02"

// PrintSummary writes the dashboard as three tables: category breakdown,
// recent transactions and the monthly trend.
func PrintSummary(w io.Writer, title string, s *expense.Summary) {
	fmt.Fprintf(w, "%s\n", text.Bold.Sprint(title))
	fmt.Fprintf(w, "Total spent: %s across %d transactions\n\n", s.Total.StringFixed(2), s.TransactionCount())

	t := newTable(w)
	t.SetTitle("By category")
	t.AppendHeader(table.Row{"Category", "Count", "Total", "Share"})
	for _, c := range s.CategoryBreakdown {
		share := "-"
		if s.Total.IsPositive() {
			share = c.Total.Div(s.Total).Mul(hundred).StringFixed(1) + "%"
		}
		info := c.Category.Info()
		t.AppendRow(table.Row{info.Icon + " " + string(c.Category), c.Count, c.Total.StringFixed(2), share})
	}
	t.AppendFooter(table.Row{"", s.TransactionCount(), s.Total.StringFixed(2), ""})
	t.SetColumnConfigs(rightAligned(2, 3, 4))
	t.Render()
	fmt.Fprintln(w)

	PrintTransactions(w, "Recent", s.Recent)
	fmt.Fprintln(w)

	t = newTable(w)
	t.SetTitle("Last months")
	t.AppendHeader(table.Row{"Month", "Count", "Total"})
	for _, m := range s.MonthlyTrend {
		label := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
		t.AppendRow(table.Row{label, m.Count, m.Total.StringFixed(2)})
	}
	t.SetColumnConfigs(rightAligned(2, 3))
	t.Render()
}

// PrintTransactions writes rows as a table with a total footer.
func PrintTransactions(w io.Writer, title string, rows []models.Transaction) {
	t := newTable(w)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"ID", "Date", "Title", "Category", "Amount"})
	total := zero
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.Date.UTC().Format(dateLayout), r.Title, string(r.Category), r.Amount.StringFixed(2)})
		total = total.Add(r.Amount)
	}
	if len(rows) == 0 {
		t.AppendRow(table.Row{"", "", text.Faint.Sprint("no transactions"), "", ""})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", "Total", total.StringFixed(2)})
	t.SetColumnConfigs(rightAligned(5))
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func rightAligned(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		out = append(out, table.ColumnConfig{Number: c, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	return out
}
