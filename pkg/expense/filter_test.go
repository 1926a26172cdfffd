package expense

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"expensetracker/models"
)

func TestParseFilterDefaults(t *testing.T) {
	q, err := ParseFilter(RawFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Page != 1 || q.Limit != 10 || q.SortBy != SortByDate || q.SortOrder != SortDesc {
		t.Fatalf("unexpected defaults %+v", q)
	}
	if q.Offset() != 0 {
		t.Fatalf("expected offset 0 got %d", q.Offset())
	}
	if q.Category != "" || q.From != nil || q.To != nil || q.MinAmount != nil || q.MaxAmount != nil {
		t.Fatalf("expected no optional constraints, got %+v", q)
	}
}

func TestParseFilterRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name  string
		raw   RawFilter
		field string
	}{
		{"page not a number", RawFilter{Page: "abc"}, "page"},
		{"page zero", RawFilter{Page: "0"}, "page"},
		{"page overflowing the offset", RawFilter{Page: "92233720368547760", Limit: "100"}, "page"},
		{"negative limit", RawFilter{Limit: "-5"}, "limit"},
		{"zero limit", RawFilter{Limit: "0"}, "limit"},
		{"unknown category", RawFilter{Category: "Groceries"}, "category"},
		{"lowercase category", RawFilter{Category: "food"}, "category"},
		{"bad start date", RawFilter{StartDate: "01/02/2024"}, "startDate"},
		{"bad end date", RawFilter{EndDate: "tomorrow"}, "endDate"},
		{"reversed dates", RawFilter{StartDate: "2024-03-01", EndDate: "2024-02-01"}, "endDate"},
		{"bad min amount", RawFilter{MinAmount: "ten"}, "minAmount"},
		{"negative max amount", RawFilter{MaxAmount: "-1"}, "maxAmount"},
		{"reversed amounts", RawFilter{MinAmount: "50", MaxAmount: "10"}, "maxAmount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFilter(tc.raw)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError got %v", err)
			}
			if _, ok := verr.Fields[tc.field]; !ok {
				t.Fatalf("expected error on %s, got %v", tc.field, verr.Fields)
			}
		})
	}
}

func TestParseFilterCollectsEveryField(t *testing.T) {
	_, err := ParseFilter(RawFilter{Page: "x", Limit: "y", Category: "z"})
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("expected three field errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "category: category must be one of Food") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestParseFilterValues(t *testing.T) {
	q, err := ParseFilter(RawFilter{
		Page:      "3",
		Limit:     "500",
		Search:    "  coffee ",
		Category:  "Food",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		MinAmount: "5",
		MaxAmount: "99.99",
		SortBy:    "amount",
		SortOrder: "ASC",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != MaxLimit {
		t.Fatalf("expected limit clamped to %d got %d", MaxLimit, q.Limit)
	}
	if q.Offset() != 2*MaxLimit {
		t.Fatalf("expected offset %d got %d", 2*MaxLimit, q.Offset())
	}
	if q.Search != "  coffee " || q.Category != models.CategoryFood {
		t.Fatalf("unexpected search/category %+v", q)
	}
	wantTo := time.Date(2024, 1, 31, 23, 59, 59, 999999000, time.UTC)
	if !q.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !q.To.Equal(wantTo) {
		t.Fatalf("unexpected range %v .. %v", q.From, q.To)
	}
	if q.MinAmount.String() != "5" || q.MaxAmount.String() != "99.99" {
		t.Fatalf("unexpected amounts %v %v", q.MinAmount, q.MaxAmount)
	}
	if q.SortBy != SortByAmount || q.SortOrder != SortAsc {
		t.Fatalf("unexpected sort %s %s", q.SortBy, q.SortOrder)
	}
}

func TestParseFilterFallbacks(t *testing.T) {
	q, err := ParseFilter(RawFilter{Category: "All", SortBy: "createdAt", SortOrder: "sideways", EndDate: "2024-01-31T12:00:00Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Category != "" {
		t.Fatalf("expected All to disable the category filter, got %q", q.Category)
	}
	if q.SortBy != SortByDate || q.SortOrder != SortDesc {
		t.Fatalf("expected default sort, got %s %s", q.SortBy, q.SortOrder)
	}
	if !q.To.Equal(time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp bound must be used as given, got %v", q.To)
	}
}

func TestParseFilterLargestPage(t *testing.T) {
	q, err := ParseFilter(RawFilter{Page: strconv.Itoa(MaxPage), Limit: "100"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off := q.Offset(); off < 0 || off != (MaxPage-1)*MaxLimit {
		t.Fatalf("unexpected offset %d", off)
	}
}

func TestOffsetSaturates(t *testing.T) {
	q := Query{Page: math.MaxInt, Limit: MaxLimit}
	if q.Offset() != math.MaxInt {
		t.Fatalf("expected saturated offset, got %d", q.Offset())
	}
}

func TestNewPagination(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		pages int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 100, 1},
	}
	for _, tc := range cases {
		p := NewPagination(1, tc.limit, tc.total)
		if p.Pages != tc.pages {
			t.Fatalf("total=%d limit=%d: expected %d pages got %d", tc.total, tc.limit, tc.pages, p.Pages)
		}
	}
}
