// Package inbox turns a directory of receipt images into transactions. Each
// file is OCR'd once per user; the outcome is recorded as a Receipt so
// rescans and restarts skip it.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/expense"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/ocr"
)

// Ledger records which files have been processed.
type Ledger interface {
	FindReceipt(ctx context.Context, userID uint, fileName string) (*models.Receipt, bool, error)
	SaveReceipt(ctx context.Context, r *models.Receipt) error
}

// Scanner reads a receipt image.
type Scanner interface {
	Scan(ctx context.Context, path string) (*ocr.Result, error)
}

// Creator stores the transaction drafted from a receipt.
type Creator interface {
	Create(ctx context.Context, userID uint, f expense.Fields) (*models.Transaction, error)
}

// Outcome is what happened to one file.
type Outcome int

const (
	Skipped Outcome = iota
	Created
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Failed:
		return "failed"
	}
	return "skipped"
}

type Config struct {
	Dir    string
	UserID uint
	// ArchiveDir receives files that produced a transaction. Empty leaves
	// them in place.
	ArchiveDir      string
	ArchiveMaxBytes int64
	Workers         int
	// MinConfidence rejects OCR readings scored below it.
	MinConfidence float64
	// Debounce is how long a new file must stay quiet before it is processed.
	Debounce time.Duration
	// RetryFailed reprocesses files whose earlier attempt was recorded as failed.
	RetryFailed bool
}

type Processor struct {
	cfg     Config
	rules   *Rules
	ledger  Ledger
	scanner Scanner
	creator Creator
	log     *slog.Logger
}

func NewProcessor(cfg Config, rules *Rules, ledger Ledger, scanner Scanner, creator Creator, log *slog.Logger) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Processor{
		cfg:     cfg,
		rules:   rules,
		ledger:  ledger,
		scanner: scanner,
		creator: creator,
		log:     logging.WithComponent(log, logging.ComponentInbox).With(logging.FieldUserID, cfg.UserID),
	}
}

// Process handles one file in the inbox directory. Failures to read the
// receipt are recorded and reported as Failed with a nil error; the error
// is reserved for ledger and store problems worth retrying.
func (p *Processor) Process(ctx context.Context, name string) (Outcome, error) {
	log := p.log.With(logging.FieldFile, name)
	existing, found, err := p.ledger.FindReceipt(ctx, p.cfg.UserID, name)
	if err != nil {
		return Skipped, fmt.Errorf("find receipt: %w", err)
	}
	if found && !(existing.Failed && p.cfg.RetryFailed) {
		log.DebugContext(ctx, "already processed")
		return Skipped, nil
	}

	receipt := &models.Receipt{UserID: p.cfg.UserID, FileName: name, ContentType: contentType(name)}
	if found {
		receipt = existing
		receipt.Failed, receipt.FailedReason = false, ""
	}
	fail := func(reason string) (Outcome, error) {
		receipt.Failed = true
		receipt.FailedReason = truncate(reason, 255)
		if err := p.ledger.SaveReceipt(ctx, receipt); err != nil {
			return Failed, fmt.Errorf("save receipt: %w", err)
		}
		log.WarnContext(ctx, "receipt rejected", "reason", reason)
		return Failed, nil
	}

	path := filepath.Join(p.cfg.Dir, name)
	res, err := p.scanner.Scan(ctx, path)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Skipped, err
	case errors.Is(err, ocr.ErrNoAmount):
		return fail("no amount found")
	case err != nil:
		return fail("ocr: " + err.Error())
	}
	if res.Confidence < p.cfg.MinConfidence {
		return fail(fmt.Sprintf("low confidence %.2f for amount %s", res.Confidence, res.AmountRaw))
	}

	title, category := p.rules.Apply(res.Merchant, res.Text)
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	title = truncate(title, expense.MaxTitleLength)
	cat := string(category)
	notes := "receipt " + name
	fields := expense.Fields{Title: &title, Amount: &res.Amount, Category: &cat, Date: res.Date, Notes: &notes}

	t, err := p.creator.Create(ctx, p.cfg.UserID, fields)
	var verr *expense.ValidationError
	if errors.As(err, &verr) {
		return fail(verr.Error())
	}
	if err != nil {
		return Skipped, fmt.Errorf("create transaction: %w", err)
	}
	receipt.TransactionID = &t.ID
	if err := p.ledger.SaveReceipt(ctx, receipt); err != nil {
		return Created, fmt.Errorf("save receipt: %w", err)
	}
	log.InfoContext(ctx, "transaction created from receipt",
		logging.FieldTransactionID, t.ID,
		"amount", t.Amount.StringFixed(2),
		"category", t.Category,
		"confidence", res.Confidence)

	if p.cfg.ArchiveDir != "" {
		if err := archive(path, p.cfg.ArchiveDir, p.cfg.ArchiveMaxBytes); err != nil {
			log.WarnContext(ctx, "archive failed", logging.FieldError, err)
		}
	}
	return Created, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
