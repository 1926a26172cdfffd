package expense

import (
	"strings"
	"time"
	"unicode/utf8"

	"expensetracker/models"

	"github.com/shopspring/decimal"
)

const (
	MaxTitleLength = 100
	MaxNotesLength = 500
)

var (
	maxAmount       = decimal.New(1, 12) // numeric(14,2)
	categoryMessage = "category must be one of " + categoryList()
)

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// Fields carries caller-supplied transaction attributes. A nil member was not
// supplied: create fills in defaults, update leaves the stored value alone.
type Fields struct {
	Title    *string
	Amount   *decimal.Decimal
	Category *string
	Date     *time.Time
	Notes    *string
}

// NewTransaction builds a validated transaction for userID. Title, amount and
// category are required; date defaults to now.
func (f Fields) NewTransaction(userID uint, now time.Time) (*models.Transaction, error) {
	verr := &ValidationError{}
	if f.Title == nil {
		verr.Add("title", "title is required")
	}
	if f.Amount == nil {
		verr.Add("amount", "amount is required")
	}
	if f.Category == nil {
		verr.Add("category", "category is required")
	}
	t := &models.Transaction{UserID: userID, Date: now.UTC()}
	f.apply(t, verr)
	validate(t, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return t, nil
}

// Merge returns a copy of current with the supplied fields replaced and the
// result re-validated. Ownership and identity are never touched.
func (f Fields) Merge(current models.Transaction) (*models.Transaction, error) {
	verr := &ValidationError{}
	t := current
	f.apply(&t, verr)
	validate(&t, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Empty reports whether no field was supplied.
func (f Fields) Empty() bool {
	return f.Title == nil && f.Amount == nil && f.Category == nil && f.Date == nil && f.Notes == nil
}

func (f Fields) apply(t *models.Transaction, verr *ValidationError) {
	if f.Title != nil {
		t.Title = strings.TrimSpace(*f.Title)
	}
	if f.Amount != nil {
		t.Amount = f.Amount.Round(2)
	}
	if f.Category != nil {
		c, ok := models.ParseCategory(strings.TrimSpace(*f.Category))
		if !ok {
			verr.Add("category", categoryMessage)
		}
		t.Category = c
	}
	if f.Date != nil && !f.Date.IsZero() {
		t.Date = f.Date.UTC()
	}
	if f.Notes != nil {
		t.Notes = strings.TrimSpace(*f.Notes)
	}
}

func validate(t *models.Transaction, verr *ValidationError) {
	switch {
	case t.Title == "":
		verr.Add("title", "title is required")
	case utf8.RuneCountInString(t.Title) > MaxTitleLength:
		verr.Add("title", "title must be at most 100 characters")
	}
	switch {
	case !t.Amount.IsPositive():
		verr.Add("amount", "amount must be greater than 0")
	case t.Amount.GreaterThanOrEqual(maxAmount):
		verr.Add("amount", "amount is too large")
	}
	if !t.Category.Valid() {
		verr.Add("category", categoryMessage)
	}
	if utf8.RuneCountInString(t.Notes) > MaxNotesLength {
		verr.Add("notes", "notes must be at most 500 characters")
	}
}
