package expense

import (
	"math"
	"strconv"
	"strings"
	"time"

	"expensetracker/models"

	"github.com/shopspring/decimal"
)

// SortField is a whitelisted column transactions can be ordered by.
type SortField string

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"
	SortByTitle  SortField = "title"
)

// SortOrder is the direction of the primary sort key.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit within an int for every accepted limit.
	MaxPage = math.MaxInt / MaxLimit
	// CategoryAll disables the category filter.
	CategoryAll = "All"
)

const dateOnly = "2006-01-02"

// RawFilter is the untrusted query string of a list request.
type RawFilter struct {
	Page      string `form:"page"`
	Limit     string `form:"limit"`
	Search    string `form:"search"`
	Category  string `form:"category"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	MinAmount string `form:"minAmount"`
	MaxAmount string `form:"maxAmount"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// Query is a validated filter descriptor. Zero-valued optional members mean
// "no constraint".
type Query struct {
	Page      int
	Limit     int
	Search    string
	Category  models.Category
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	SortBy    SortField
	SortOrder SortOrder
}

// DefaultQuery is page 1, 10 per page, newest first.
func DefaultQuery() Query {
	return Query{Page: DefaultPage, Limit: DefaultLimit, SortBy: SortByDate, SortOrder: SortDesc}
}

// ParseFilter validates raw and builds a Query. Malformed page, limit,
// category, date and amount values are rejected; unknown sort keys fall back
// to the defaults; limits above MaxLimit are clamped.
func ParseFilter(raw RawFilter) (Query, error) {
	q := DefaultQuery()
	verr := &ValidationError{}

	if s := strings.TrimSpace(raw.Page); s != "" {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil || n < 1:
			verr.Add("page", "page must be a positive integer")
		case n > MaxPage:
			verr.Add("page", "page is too large")
		default:
			q.Page = n
		}
	}
	if s := strings.TrimSpace(raw.Limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			verr.Add("limit", "limit must be a positive integer")
		} else {
			q.Limit = min(n, MaxLimit)
		}
	}

	q.Search = raw.Search

	if s := strings.TrimSpace(raw.Category); s != "" && s != CategoryAll {
		c, ok := models.ParseCategory(s)
		if !ok {
			verr.Add("category", categoryMessage)
		} else {
			q.Category = c
		}
	}

	if s := strings.TrimSpace(raw.StartDate); s != "" {
		t, _, err := parseDate(s)
		if err != nil {
			verr.Add("startDate", "startDate must be YYYY-MM-DD or RFC 3339")
		} else {
			q.From = &t
		}
	}
	if s := strings.TrimSpace(raw.EndDate); s != "" {
		t, dayOnly, err := parseDate(s)
		if err != nil {
			verr.Add("endDate", "endDate must be YYYY-MM-DD or RFC 3339")
		} else {
			if dayOnly {
				t = endOfDay(t)
			}
			q.To = &t
		}
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		verr.Add("endDate", "endDate must not be before startDate")
	}

	if s := strings.TrimSpace(raw.MinAmount); s != "" {
		d, err := parseBound(s)
		if err != nil {
			verr.Add("minAmount", "minAmount "+err.Error())
		} else {
			q.MinAmount = &d
		}
	}
	if s := strings.TrimSpace(raw.MaxAmount); s != "" {
		d, err := parseBound(s)
		if err != nil {
			verr.Add("maxAmount", "maxAmount "+err.Error())
		} else {
			q.MaxAmount = &d
		}
	}
	if q.MinAmount != nil && q.MaxAmount != nil && q.MinAmount.GreaterThan(*q.MaxAmount) {
		verr.Add("maxAmount", "maxAmount must not be less than minAmount")
	}

	switch SortField(strings.TrimSpace(raw.SortBy)) {
	case SortByAmount:
		q.SortBy = SortByAmount
	case SortByTitle:
		q.SortBy = SortByTitle
	}
	if SortOrder(strings.ToLower(strings.TrimSpace(raw.SortOrder))) == SortAsc {
		q.SortOrder = SortAsc
	}

	if err := verr.OrNil(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Offset is the number of rows skipped before the requested page. It
// saturates at math.MaxInt instead of wrapping.
func (q Query) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. dayOnly is set
// for the calendar date form.
func parseDate(s string) (t time.Time, dayOnly bool, err error) {
	if t, err = time.Parse(dateOnly, s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, err
}

func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Microsecond)
}

type boundError string

func (e boundError) Error() string { return string(e) }

func parseBound(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, boundError("must be a number")
	}
	if d.IsNegative() {
		return decimal.Zero, boundError("must not be negative")
	}
	return d, nil
}
