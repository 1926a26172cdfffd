package expense

import (
	"cmp"
	"strings"

	"expensetracker/models"
)

// Predicate is one clause of a transaction query. Clauses are ANDed. SQL and
// Args feed a relational store; Match evaluates the same clause in memory.
type Predicate struct {
	SQL   string
	Args  []any
	Match func(t models.Transaction) bool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Predicates lists the clauses selecting the transactions of userID that
// satisfy q. Ownership is always the first clause; the rest are present only
// when the corresponding filter is set.
func (q Query) Predicates(userID uint) []Predicate {
	preds := []Predicate{{
		SQL:   "user_id = ?",
		Args:  []any{userID},
		Match: func(t models.Transaction) bool { return t.UserID == userID },
	}}

	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		preds = append(preds, Predicate{
			SQL:   `LOWER(title) LIKE ? ESCAPE '\'`,
			Args:  []any{"%" + likeEscaper.Replace(needle) + "%"},
			Match: func(t models.Transaction) bool { return strings.Contains(strings.ToLower(t.Title), needle) },
		})
	}
	if q.Category != "" {
		c := q.Category
		preds = append(preds, Predicate{
			SQL:   "category = ?",
			Args:  []any{string(c)},
			Match: func(t models.Transaction) bool { return t.Category == c },
		})
	}
	if q.From != nil {
		from := *q.From
		preds = append(preds, Predicate{
			SQL:   "date >= ?",
			Args:  []any{from},
			Match: func(t models.Transaction) bool { return !t.Date.Before(from) },
		})
	}
	if q.To != nil {
		to := *q.To
		preds = append(preds, Predicate{
			SQL:   "date <= ?",
			Args:  []any{to},
			Match: func(t models.Transaction) bool { return !t.Date.After(to) },
		})
	}
	if q.MinAmount != nil {
		lo := *q.MinAmount
		preds = append(preds, Predicate{
			SQL:   "amount >= ?",
			Args:  []any{lo},
			Match: func(t models.Transaction) bool { return t.Amount.GreaterThanOrEqual(lo) },
		})
	}
	if q.MaxAmount != nil {
		hi := *q.MaxAmount
		preds = append(preds, Predicate{
			SQL:   "amount <= ?",
			Args:  []any{hi},
			Match: func(t models.Transaction) bool { return t.Amount.LessThanOrEqual(hi) },
		})
	}
	return preds
}

// MatchAll reports whether t satisfies every predicate.
func MatchAll(preds []Predicate, t models.Transaction) bool {
	for _, p := range preds {
		if !p.Match(t) {
			return false
		}
	}
	return true
}

func (q Query) sortColumn() string {
	switch q.SortBy {
	case SortByAmount:
		return "amount"
	case SortByTitle:
		return `title COLLATE "C"`
	default:
		return "date"
	}
}

// OrderBy is the ORDER BY clause for q. The id tie-break keeps paging stable
// between identical requests.
func (q Query) OrderBy() string {
	dir := "DESC"
	if q.SortOrder == SortAsc {
		dir = "ASC"
	}
	return q.sortColumn() + " " + dir + ", id " + dir
}

// Less orders transactions the same way OrderBy does.
func (q Query) Less(a, b models.Transaction) bool {
	var c int
	switch q.SortBy {
	case SortByAmount:
		c = a.Amount.Cmp(b.Amount)
	case SortByTitle:
		c = strings.Compare(a.Title, b.Title)
	default:
		c = a.Date.Compare(b.Date)
	}
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if q.SortOrder == SortAsc {
		return c < 0
	}
	return c > 0
}
