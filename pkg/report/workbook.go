package report

import (
	"fmt"
	"io"

	"expensetracker/models"
	"expensetracker/pkg/expense"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetTransactions = "Transactions"
	SheetSummary      = "Summary"
)

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

var transactionHeader = []any{"ID", "Date", "Title", "Category", "Amount", "Notes"}

// Workbook builds an xlsx file with one row per transaction and, when s is
// not nil, a summary sheet.
func Workbook(rows []models.Transaction, s *expense.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetTransactions); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTransactions(f, rows); err != nil {
		f.Close()
		return nil, fmt.Errorf("write transactions: %w", err)
	}
	if s != nil {
		if err := writeSummary(f, s); err != nil {
			f.Close()
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}
	return f, nil
}

// WriteWorkbook streams the workbook for rows to w.
func WriteWorkbook(w io.Writer, rows []models.Transaction, s *expense.Summary) error {
	f, err := Workbook(rows, s)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveWorkbook writes the workbook for rows to path.
func SaveWorkbook(path string, rows []models.Transaction, s *expense.Summary) error {
	f, err := Workbook(rows, s)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeTransactions(f *excelize.File, rows []models.Transaction) error {
	sh := SheetTransactions
	if err := f.SetSheetRow(sh, "A1", &transactionHeader); err != nil {
		return err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	for i, r := range rows {
		row := i + 2
		amount, _ := r.Amount.Float64()
		values := []any{r.ID, r.Date.UTC(), r.Title, string(r.Category), amount, r.Notes}
		if err := f.SetSheetRow(sh, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		last := len(rows) + 1
		if err := f.SetCellStyle(sh, "B2", fmt.Sprintf("B%d", last), dateStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(sh, "E2", fmt.Sprintf("E%d", last), moneyStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(sh, "C", "C", 40)
}

func writeSummary(f *excelize.File, s *expense.Summary) error {
	sh := SheetSummary
	if _, err := f.NewSheet(sh); err != nil {
		return err
	}
	total, _ := s.Total.Float64()
	cells := [][]any{
		{"Total", total},
		{"Transactions", s.TransactionCount()},
		{},
		{"Category", "Count", "Total"},
	}
	for _, c := range s.CategoryBreakdown {
		v, _ := c.Total.Float64()
		cells = append(cells, []any{string(c.Category), c.Count, v})
	}
	cells = append(cells, []any{}, []any{"Month", "Count", "Total"})
	for _, m := range s.MonthlyTrend {
		v, _ := m.Total.Float64()
		cells = append(cells, []any{fmt.Sprintf("%04d-%02d", m.Year, m.Month), m.Count, v})
	}
	for i, row := range cells {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(sh, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	return nil
}
