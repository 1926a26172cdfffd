package expense

import (
	"time"

	"expensetracker/models"

	"github.com/shopspring/decimal"
)

const (
	// RecentLimit is the number of transactions on the dashboard's recent list.
	RecentLimit = 5
	// TrendMonths is how far back the monthly trend reaches.
	TrendMonths = 6
)

// CategoryTotal is the sum and count of one category's transactions.
type CategoryTotal struct {
	Category models.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// MonthTotal is the sum and count of transactions in one calendar month (UTC).
type MonthTotal struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// Summary is the dashboard view of a user's spending.
type Summary struct {
	Total             decimal.Decimal      `json:"total"`
	CategoryBreakdown []CategoryTotal      `json:"categoryBreakdown"`
	Recent            []models.Transaction `json:"recentTransactions"`
	MonthlyTrend      []MonthTotal         `json:"monthlyTrend"`
}

// TransactionCount sums the breakdown counts.
func (s *Summary) TransactionCount() int64 {
	var n int64
	for _, c := range s.CategoryBreakdown {
		n += c.Count
	}
	return n
}

// TrendStart is the inclusive lower bound of the monthly trend at now.
func TrendStart(now time.Time) time.Time {
	return now.UTC().AddDate(0, -TrendMonths, 0)
}
