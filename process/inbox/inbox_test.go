package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/expense"
	"expensetracker/pkg/ocr"
	"expensetracker/pkg/store/memory"

	"github.com/shopspring/decimal"
)

type fakeScanner struct {
	mu      sync.Mutex
	results map[string]*ocr.Result
	errs    map[string]error
	calls   map[string]int
}

func (f *fakeScanner) Scan(_ context.Context, path string) (*ocr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if r, ok := f.results[name]; ok {
		return r, nil
	}
	return &ocr.Result{}, ocr.ErrNoAmount
}

const rulesYAML = `
default_category: Other
rules:
  - match: "bakery|cafe"
    title: Coffee & pastry
    category: Food
  - match: "fuel"
    category: Transport
`

func newInbox(t *testing.T, scanner Scanner, cfg Config) (*Processor, *memory.Store, *expense.Service) {
	t.Helper()
	rules, err := ParseRules([]byte(rulesYAML))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	st := memory.New()
	svc := expense.NewService(st)
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	if cfg.UserID == 0 {
		cfg.UserID = 7
	}
	return NewProcessor(cfg, rules, st, scanner, svc, nil), st, svc
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRules(t *testing.T) {
	rules, err := ParseRules([]byte(rulesYAML))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	title, cat := rules.Apply("Corner BAKERY", "")
	if title != "Coffee & pastry" || cat != models.CategoryFood {
		t.Fatalf("got %q %q", title, cat)
	}
	title, cat = rules.Apply("Shell", "FUEL 40L")
	if title != "Shell" || cat != models.CategoryTransport {
		t.Fatalf("got %q %q", title, cat)
	}
	title, cat = rules.Apply("Bookshop", "")
	if title != "Bookshop" || cat != models.CategoryOther {
		t.Fatalf("got %q %q", title, cat)
	}
}

func TestRulesRejectUnknownCategory(t *testing.T) {
	if _, err := ParseRules([]byte("rules:\n  - match: x\n    category: Gadgets\n")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseRules([]byte("rules:\n  - match: \"(\"\n")); err == nil {
		t.Fatalf("expected regexp error")
	}
}

func TestScanCreatesAndDedupes(t *testing.T) {
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	sc := &fakeScanner{
		results: map[string]*ocr.Result{
			"a.jpg": {Merchant: "Corner Bakery", Amount: decimal.RequireFromString("12.40"), AmountRaw: "12.40", Confidence: 0.9, Date: &day},
			"b.png": {Merchant: "Unknown", Amount: decimal.RequireFromString("3.00"), AmountRaw: "3.00", Confidence: 0.1},
		},
		errs: map[string]error{"c.jpg": errors.New("corrupt image")},
	}
	p, st, svc := newInbox(t, sc, Config{Workers: 2, MinConfidence: 0.3})
	touch(t, p.cfg.Dir, "a.jpg", "b.png", "c.jpg", "d.jpeg", "notes.txt")

	stats, err := p.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Created != 1 || stats.Failed != 3 || stats.Errors != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	page, err := svc.List(context.Background(), 7, expense.DefaultQuery())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d", len(page.Items))
	}
	tx := page.Items[0]
	if tx.Title != "Coffee & pastry" || tx.Category != models.CategoryFood || !tx.Date.Equal(day) {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	r, found, err := st.FindReceipt(context.Background(), 7, "a.jpg")
	if err != nil || !found || r.TransactionID == nil || *r.TransactionID != tx.ID || r.ContentType != "image/jpeg" {
		t.Fatalf("receipt a.jpg = %+v found=%v err=%v", r, found, err)
	}
	r, _, _ = st.FindReceipt(context.Background(), 7, "c.jpg")
	if r == nil || !r.Failed || !strings.Contains(r.FailedReason, "corrupt image") {
		t.Fatalf("receipt c.jpg = %+v", r)
	}
	r, _, _ = st.FindReceipt(context.Background(), 7, "b.png")
	if r == nil || !r.Failed || !strings.Contains(r.FailedReason, "low confidence") {
		t.Fatalf("receipt b.png = %+v", r)
	}

	stats, err = p.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if stats.Skipped != 4 || stats.Created != 0 {
		t.Fatalf("second stats = %+v", stats)
	}
	if sc.calls["a.jpg"] != 1 {
		t.Fatalf("a.jpg scanned %d times", sc.calls["a.jpg"])
	}
}

func TestReceiptsArePerUser(t *testing.T) {
	sc := &fakeScanner{results: map[string]*ocr.Result{
		"a.jpg": {Merchant: "Fuel station", Amount: decimal.RequireFromString("40"), AmountRaw: "40", Confidence: 1},
	}}
	dir := t.TempDir()
	touch(t, dir, "a.jpg")
	p1, st, svc := newInbox(t, sc, Config{Dir: dir, UserID: 1})
	if o, err := p1.Process(context.Background(), "a.jpg"); err != nil || o != Created {
		t.Fatalf("user 1: %v %v", o, err)
	}
	p2 := NewProcessor(Config{Dir: dir, UserID: 2}, p1.rules, st, sc, svc, nil)
	if o, err := p2.Process(context.Background(), "a.jpg"); err != nil || o != Created {
		t.Fatalf("user 2: %v %v", o, err)
	}
	if o, _ := p2.Process(context.Background(), "a.jpg"); o != Skipped {
		t.Fatalf("user 2 again: %v", o)
	}
}

func TestArchiveMovesCreatedFiles(t *testing.T) {
	sc := &fakeScanner{results: map[string]*ocr.Result{
		"a.jpg": {Merchant: "Cafe", Amount: decimal.RequireFromString("5"), AmountRaw: "5", Confidence: 1},
	}}
	archiveDir := filepath.Join(t.TempDir(), "done")
	p, _, _ := newInbox(t, sc, Config{ArchiveDir: archiveDir})
	touch(t, p.cfg.Dir, "a.jpg")
	if o, err := p.Process(context.Background(), "a.jpg"); err != nil || o != Created {
		t.Fatalf("Process: %v %v", o, err)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "a.jpg")); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(p.cfg.Dir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
}

func TestCanceledScanIsNotRecorded(t *testing.T) {
	sc := &fakeScanner{errs: map[string]error{"a.jpg": context.Canceled}}
	p, st, _ := newInbox(t, sc, Config{})
	touch(t, p.cfg.Dir, "a.jpg")
	if _, err := p.Process(context.Background(), "a.jpg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if _, found, _ := st.FindReceipt(context.Background(), 7, "a.jpg"); found {
		t.Fatalf("canceled scan must not be recorded")
	}
}

func TestWatchPicksUpNewFiles(t *testing.T) {
	sc := &fakeScanner{results: map[string]*ocr.Result{
		"new.png": {Merchant: "Cafe", Amount: decimal.RequireFromString("2.5"), AmountRaw: "2.5", Confidence: 1},
	}}
	p, st, _ := newInbox(t, sc, Config{Workers: 1, Debounce: 40 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Stats, 1)
	go func() {
		stats, _ := p.Watch(ctx)
		done <- stats
	}()
	time.Sleep(100 * time.Millisecond)
	touch(t, p.cfg.Dir, "new.png")

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, found, _ := st.FindReceipt(context.Background(), 7, "new.png"); found {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("file was not processed")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	select {
	case stats := <-done:
		if stats.Created != 1 {
			t.Fatalf("stats = %+v", stats)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Watch did not return after cancel")
	}
}

func TestRetryFailed(t *testing.T) {
	sc := &fakeScanner{errs: map[string]error{"a.jpg": errors.New("blurry")}}
	p, st, _ := newInbox(t, sc, Config{})
	touch(t, p.cfg.Dir, "a.jpg")
	if o, err := p.Process(context.Background(), "a.jpg"); err != nil || o != Failed {
		t.Fatalf("first attempt: %v %v", o, err)
	}
	first, _, _ := st.FindReceipt(context.Background(), 7, "a.jpg")

	sc.errs = nil
	sc.results = map[string]*ocr.Result{"a.jpg": {Merchant: "Cafe", Amount: decimal.RequireFromString("3.10"), AmountRaw: "3.10", Confidence: 1}}
	if o, _ := p.Process(context.Background(), "a.jpg"); o != Skipped {
		t.Fatalf("failed file retried without RetryFailed: %v", o)
	}

	p.cfg.RetryFailed = true
	if o, err := p.Process(context.Background(), "a.jpg"); err != nil || o != Created {
		t.Fatalf("retry: %v %v", o, err)
	}
	r, _, _ := st.FindReceipt(context.Background(), 7, "a.jpg")
	if r.ID != first.ID || r.Failed || r.FailedReason != "" || r.TransactionID == nil {
		t.Fatalf("receipt after retry = %+v", r)
	}
	if o, _ := p.Process(context.Background(), "a.jpg"); o != Skipped {
		t.Fatalf("created receipt retried: %v", o)
	}
}
