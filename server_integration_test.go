package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"expensetracker/pkg/config"
	"expensetracker/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// setupPostgresServer runs the router against a real database. Integration
// tests are opt-in: set DB_DSN_TEST=1 and DB_DSN.
func setupPostgresServer(t *testing.T) *gin.Engine {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	cfg := config.FromEnv()
	cfg.DataBackend = config.BackendPostgres
	cfg.DBAutoMigrate = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	r := gin.New()
	setupRoutes(r, a)
	return r
}

func TestPostgresFullFlow(t *testing.T) {
	r := setupPostgresServer(t)
	suffix := time.Now().UnixNano()
	alice := login(t, r, fmt.Sprintf("alice%d", suffix))
	bob := login(t, r, fmt.Sprintf("bob%d", suffix))

	day := time.Now().UTC().Format("2006-01-02")
	create(t, r, alice, map[string]any{"title": "Lunch", "amount": 10, "category": "Food", "date": day})
	create(t, r, alice, map[string]any{"title": "Dinner 100% beef", "amount": 20, "category": "Food", "date": day})
	rent := create(t, r, alice, map[string]any{"title": "Rent", "amount": 30, "category": "Rent", "date": day})

	rec, resp := do(t, r, http.MethodGet, "/api/transactions?search=100%25&sortBy=amount", nil, alice)
	if rec.Code != http.StatusOK || resp.Pagination.Total != 1 {
		t.Fatalf("escaped search: %d %s", rec.Code, rec.Body.String())
	}

	_, resp = do(t, r, http.MethodGet, "/api/transactions/dashboard/summary", nil, alice)
	var sum struct {
		Total     decimal.Decimal `json:"total"`
		Breakdown []struct {
			Category string `json:"category"`
			Count    int64  `json:"count"`
		} `json:"categoryBreakdown"`
		Trend []struct {
			Count int64 `json:"count"`
		} `json:"monthlyTrend"`
	}
	if err := decodeData(resp, &sum); err != nil {
		t.Fatal(err)
	}
	if !sum.Total.Equal(decimal.NewFromInt(60)) || len(sum.Breakdown) != 2 || sum.Breakdown[0].Category != "Food" {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Trend) != 1 || sum.Trend[0].Count != 3 {
		t.Fatalf("trend = %+v", sum.Trend)
	}

	path := fmt.Sprintf("/api/transactions/%d", rent.ID)
	if rec, _ := do(t, r, http.MethodGet, path, nil, bob); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign get: %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodPatch, path, map[string]any{"amount": "31.50"}, alice); rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := do(t, r, http.MethodDelete, path, nil, alice); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, path, nil, alice); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted get: %d", rec.Code)
	}

	unauth, _ := do(t, r, http.MethodGet, "/api/transactions", nil, "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	cfg := config.FromEnv()
	cfg.DataBackend = config.BackendPostgres
	if err := migrate(cfg, slog.Default()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := store.Open(cfg.DBDSN, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"users", "transactions", "refresh_tokens", "receipts"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %s missing", table)
		}
	}
}
