package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"expensetracker/pkg/config"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/ocr"
	"expensetracker/pkg/report"
	"expensetracker/process/inbox"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	Path string `descr:"Receipt image, or a directory of receipt images" positional:"true"`
	Lang string `descr:"Tesseract languages, joined with +" default:"eng"`
	Text bool   `descr:"Also print the recognised text of each file" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("scan_receipt").
		WithShort("Read amounts, dates and merchants off receipt images").
		WithLong("Runs OCR over each file and prints what would be drafted as a transaction. Nothing is stored.").
		WithRunFunc(func(params *Params) {
			cfg := config.Load()
			log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			files, err := receiptFiles(params.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "scan_receipt: %v\n", err)
				os.Exit(1)
			}
			scanner := ocr.NewScanner(log, strings.Split(params.Lang, "+")...)
			rows := make([]report.Receipt, 0, len(files))
			failed := false
			for _, f := range files {
				res, err := scanner.Scan(ctx, f)
				if ctx.Err() != nil {
					break
				}
				if err != nil && !errors.Is(err, ocr.ErrNoAmount) {
					failed = true
				}
				rows = append(rows, receiptRow(f, res, err))
				if params.Text && res != nil {
					fmt.Printf("--- %s\n%s\n", f, strings.TrimSpace(res.Text))
				}
			}
			report.PrintReceipts(os.Stdout, rows)
			if failed {
				os.Exit(1)
			}
		}).
		Run()
}

func receiptFiles(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}
	names, err := inbox.ListImages(path)
	if err != nil {
		return nil, err
	}
	files := make([]string, len(names))
	for i, n := range names {
		files[i] = filepath.Join(path, n)
	}
	return files, nil
}

func receiptRow(file string, res *ocr.Result, err error) report.Receipt {
	row := report.Receipt{File: file, Err: err}
	if res != nil {
		row.Merchant = res.Merchant
		row.Date = res.Date
		row.Amount = res.Amount
		row.AmountRaw = res.AmountRaw
		row.Confidence = res.Confidence
	}
	return row
}
