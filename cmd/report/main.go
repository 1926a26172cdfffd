package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/config"
	"expensetracker/pkg/expense"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/report"
	"expensetracker/pkg/store"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	Username string `descr:"User whose transactions are reported" positional:"true"`
	Month    string `descr:"Only list transactions of this month (YYYY-MM)" optional:"true"`
	Category string `descr:"Only list transactions of this category" optional:"true"`
	List     bool   `descr:"List the matching transactions below the dashboard" optional:"true"`
	Xlsx     string `descr:"Also write the matching transactions and the dashboard to this xlsx file" optional:"true"`
}

// maxRows caps the rows listed or exported in one run.
const maxRows = 50000

func main() {
	boa.NewCmdT[Params]("report").
		WithShort("Print a user's spending dashboard").
		WithLong("Prints the dashboard summary (totals, categories, recent transactions, monthly trend) for one user, optionally listing or exporting transactions of a month.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "report: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	cfg := config.Load()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	if cfg.DBDSN == "" {
		return fmt.Errorf("DB_DSN not set in environment")
	}
	q, err := query(params)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DBDSN, log)
	if err != nil {
		return err
	}
	ctx := context.Background()
	user, err := store.NewAccounts(db).UserByUsername(ctx, params.Username)
	if err != nil {
		return fmt.Errorf("user %q: %w", params.Username, err)
	}

	svc := expense.NewService(store.NewTransactions(db), expense.WithLogger(log))
	sum, err := svc.Summary(ctx, user.ID)
	if err != nil {
		return err
	}
	report.PrintSummary(os.Stdout, fmt.Sprintf("Report for %s (UTC)", user.Username), sum)

	if !params.List && params.Xlsx == "" {
		return nil
	}
	rows, err := svc.Export(ctx, user.ID, q, maxRows)
	if err != nil {
		return err
	}
	if params.List {
		fmt.Println()
		title := "All transactions"
		if params.Month != "" {
			title = "Transactions " + params.Month
		}
		report.PrintTransactions(os.Stdout, title, rows)
	}
	if params.Xlsx != "" {
		if err := report.SaveWorkbook(params.Xlsx, rows, sum); err != nil {
			return fmt.Errorf("write %s: %w", params.Xlsx, err)
		}
		fmt.Printf("\nwrote %d transactions to %s\n", len(rows), params.Xlsx)
	}
	return nil
}

// query turns the month and category flags into a filter, oldest first.
func query(params *Params) (expense.Query, error) {
	q := expense.DefaultQuery()
	q.SortOrder = expense.SortAsc
	if params.Month != "" {
		t, err := time.Parse("2006-01", params.Month)
		if err != nil {
			return q, fmt.Errorf("invalid month %q, expected YYYY-MM", params.Month)
		}
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Microsecond)
		q.From, q.To = &start, &end
	}
	if params.Category != "" {
		c, ok := models.ParseCategory(params.Category)
		if !ok {
			return q, fmt.Errorf("unknown category %q", params.Category)
		}
		q.Category = c
	}
	return q, nil
}
