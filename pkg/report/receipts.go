package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// Receipt is what was read off one scanned file. AmountRaw is empty when no
// amount was found.
type Receipt struct {
	File       string
	Merchant   string
	Date       *time.Time
	Amount     decimal.Decimal
	AmountRaw  string
	Confidence float64
	Err        error
}

// PrintReceipts writes one row per scanned file.
func PrintReceipts(w io.Writer, rows []Receipt) {
	t := newTable(w)
	t.SetTitle("Receipts")
	t.AppendHeader(table.Row{"File", "Merchant", "Date", "Amount", "Raw", "Confidence", "Status"})
	for _, r := range rows {
		var date, amount, conf string
		if r.Date != nil {
			date = r.Date.Format(dateLayout)
		}
		if r.AmountRaw != "" {
			amount = r.Amount.StringFixed(2)
			conf = fmt.Sprintf("%.2f", r.Confidence)
		}
		status := "ok"
		if r.Err != nil {
			status = text.FgRed.Sprint(r.Err.Error())
		}
		t.AppendRow(table.Row{r.File, r.Merchant, date, amount, r.AmountRaw, conf, status})
	}
	t.SetColumnConfigs(rightAligned(4, 6))
	t.Render()
}
