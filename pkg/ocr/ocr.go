// Package ocr reads receipt images with tesseract and extracts the fields
// needed to draft a transaction.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/pkg/logging"

	"github.com/otiai10/gosseract/v2"
	"github.com/shopspring/decimal"
)

// Result is what could be read off a receipt.
type Result struct {
	Text       string          `json:"text"`
	Amount     decimal.Decimal `json:"amount"`
	AmountRaw  string          `json:"amountRaw"`
	Confidence float64         `json:"confidence"`
	Date       *time.Time      `json:"date,omitempty"`
	Merchant   string          `json:"merchant,omitempty"`
}

// Analyze extracts amount, date and merchant from OCR text. It returns
// ErrNoAmount together with the partial result when no amount was found.
func Analyze(text string) (*Result, error) {
	r := &Result{Text: text, Merchant: FindMerchant(text)}
	if d, ok := FindDate(text); ok {
		r.Date = &d
	}
	c, ok := best(candidates(text))
	if !ok {
		return r, ErrNoAmount
	}
	r.Amount = c.value
	r.AmountRaw = c.raw
	r.Confidence = confidence(c.score)
	return r, nil
}

// Scanner runs tesseract over preprocessed variants of an image and keeps
// the most confident reading.
type Scanner struct {
	Languages []string
	log       *slog.Logger
}

func NewScanner(log *slog.Logger, languages ...string) *Scanner {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Scanner{Languages: languages, log: logging.WithComponent(log, logging.ComponentOCR)}
}

// Scan reads the receipt at path. Tesseract itself cannot be interrupted, so
// ctx is checked between passes.
func (s *Scanner) Scan(ctx context.Context, path string) (*Result, error) {
	variants, cleanup, err := prepare(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(s.Languages...); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	_ = client.SetPageSegMode(gosseract.PSM_AUTO)

	var top *Result
	var texts []string
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := client.SetImage(v.path); err != nil {
			return nil, fmt.Errorf("set image: %w", err)
		}
		text, err := client.Text()
		if err != nil {
			s.log.WarnContext(ctx, "ocr pass failed", "variant", v.name, logging.FieldError, err)
			continue
		}
		texts = append(texts, text)
		r, err := Analyze(text)
		if err != nil && !errors.Is(err, ErrNoAmount) {
			return nil, err
		}
		s.log.DebugContext(ctx, "ocr pass", "variant", v.name, "amount", r.AmountRaw, "confidence", r.Confidence)
		if top == nil || r.Confidence > top.Confidence {
			top = r
		}
	}
	if top == nil {
		return nil, fmt.Errorf("ocr %s: no text recognised", path)
	}
	if top.AmountRaw == "" {
		top.Text = strings.Join(texts, "\n")
		return top, ErrNoAmount
	}
	return top, nil
}
