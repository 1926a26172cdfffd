package expense

import "expensetracker/models"

// Pagination describes where a page sits in the filtered result set.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination computes the page count as ceil(total/limit), 0 for an empty set.
func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if total > 0 && limit > 0 {
		p.Pages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}

// Page is one page of transactions.
type Page struct {
	Items      []models.Transaction `json:"items"`
	Pagination Pagination           `json:"pagination"`
}
