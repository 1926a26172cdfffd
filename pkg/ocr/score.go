package ocr

import (
	"strings"

	"github.com/shopspring/decimal"
)

type candidate struct {
	raw   string
	value decimal.Decimal
	score float64
	line  int
}

var (
	totalWords    = []string{"grand total", "total due", "amount due", "balance due", "total", "amount", "jumlah", "bayar"}
	subtotalWords = []string{"subtotal", "sub total", "sub-total"}
	penaltyWords  = []string{"change", "kembali", "cash", "tunai", "tax", "vat", "ppn", "discount", "tip", "qty"}
	currencyMarks = []string{"$", "€", "£", "¥", "rp", "idr", "usd", "eur", "gbp"}
)

// maxPlausible bounds amounts read off a receipt; larger values are almost
// always phone numbers or card digits.
var maxPlausible = decimal.NewFromInt(1_000_000_000)

// candidates extracts and scores every amount token in text.
func candidates(text string) []candidate {
	lines := strings.Split(text, "\n")
	var out []candidate
	for i, line := range lines {
		lower := strings.ToLower(line)
		if looksLikeDateOrPhone(lower) {
			continue
		}
		for _, raw := range amountPattern.FindAllString(line, -1) {
			v, ok := ParseAmount(raw)
			if !ok || !v.IsPositive() || v.GreaterThan(maxPlausible) {
				continue
			}
			out = append(out, candidate{raw: strings.TrimSpace(raw), value: v, score: scoreLine(lower, raw, v), line: i})
		}
	}
	return out
}

func scoreLine(lower, raw string, v decimal.Decimal) float64 {
	score := 0.0
	switch {
	case containsAny(lower, subtotalWords):
		score += 1
	case containsAny(lower, totalWords):
		score += 4
	}
	if containsAny(lower, currencyMarks) {
		score += 1.5
	}
	if containsAny(lower, penaltyWords) {
		score -= 3
	}
	if strings.ContainsAny(raw, ".,") {
		score += 0.5
	}
	if v.IsInteger() && v.LessThan(decimal.NewFromInt(10)) {
		// quantities and line numbers
		score -= 1
	}
	return score
}

// best picks the highest scoring candidate; ties go to the larger amount.
func best(cs []candidate) (candidate, bool) {
	if len(cs) == 0 {
		return candidate{}, false
	}
	top := cs[0]
	for _, c := range cs[1:] {
		if c.score > top.score || (c.score == top.score && c.value.GreaterThan(top.value)) {
			top = c
		}
	}
	return top, true
}

// confidence maps a winning score to 0..1.
func confidence(score float64) float64 {
	c := (score + 1) / 7
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func looksLikeDateOrPhone(lower string) bool {
	if isContactLine(lower) {
		return true
	}
	_, ok := FindDate(lower)
	return ok
}

func isContactLine(lower string) bool {
	return containsAny(lower, []string{"tel:", "tel.", "telp", "phone", "fax"})
}
