package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"expensetracker/pkg/config"
	"expensetracker/pkg/events"
	"expensetracker/pkg/expense"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/ocr"
	"expensetracker/pkg/store"
	"expensetracker/process/inbox"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	Dir           string  `descr:"Directory holding receipt images" positional:"true"`
	Username      string  `descr:"User the transactions are created for"`
	Rules         string  `descr:"YAML file mapping merchants to titles and categories" optional:"true"`
	Watch         bool    `descr:"Keep watching the directory for new files" optional:"true"`
	Workers       int     `descr:"Worker pool size (0 = number of CPUs)" default:"0"`
	ArchiveDir    string  `descr:"Move files that produced a transaction into this directory" optional:"true"`
	MinConfidence float64 `descr:"Reject OCR readings below this confidence (0..1)" default:"0.3"`
	Lang          string  `descr:"Tesseract languages, comma separated" default:"eng"`
	RetryFailed   bool    `descr:"Retry files whose earlier attempt failed" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("receipt_inbox").
		WithShort("Turn a directory of receipt images into transactions").
		WithLong("Scans a directory of receipt images, reads each one with tesseract, and creates a transaction for the given user. Processed files are recorded per user so they are never imported twice; unreadable files are recorded as failed.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "receipt_inbox: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	cfg := config.Load()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	slog.SetDefault(log)
	if cfg.DBDSN == "" {
		return fmt.Errorf("DB_DSN not set in environment")
	}

	rules := inbox.DefaultRules()
	if params.Rules != "" {
		r, err := inbox.LoadRules(params.Rules)
		if err != nil {
			return err
		}
		rules = r
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DBDSN, log)
	if err != nil {
		return err
	}
	user, err := store.NewAccounts(db).UserByUsername(ctx, params.Username)
	if err != nil {
		return fmt.Errorf("user %q: %w", params.Username, err)
	}

	opts := []expense.Option{expense.WithLogger(log)}
	if cfg.AMQPURL != "" {
		pub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, expense.WithPublisher(pub))
	}
	svc := expense.NewService(store.NewTransactions(db), opts...)
	scanner := ocr.NewScanner(log, strings.Split(params.Lang, ",")...)

	p := inbox.NewProcessor(inbox.Config{
		Dir:             params.Dir,
		UserID:          user.ID,
		ArchiveDir:      params.ArchiveDir,
		ArchiveMaxBytes: 1_000_000,
		Workers:         params.Workers,
		MinConfidence:   params.MinConfidence,
		RetryFailed:     params.RetryFailed,
	}, rules, store.NewReceipts(db), scanner, svc, log)

	stats, err := p.Scan(ctx)
	report(stats)
	if err != nil {
		return err
	}
	if !params.Watch {
		return nil
	}
	stats, err = p.Watch(ctx)
	report(stats)
	return err
}

func report(s inbox.Stats) {
	fmt.Printf("created=%d skipped=%d failed=%d errors=%d\n", s.Created, s.Skipped, s.Failed, s.Errors)
}
