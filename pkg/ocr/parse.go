package ocr

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches money-looking tokens: grouped thousands with either
// separator convention, or plain digits with an optional decimal part.
var amountPattern = regexp.MustCompile(`\d{1,3}(?:[.,']\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`)

// ParseAmount converts a printed amount to a decimal. Both "1.234,56" and
// "1,234.56" are accepted; the last separator followed by one or two digits
// is taken as the decimal mark.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "", "'", "").Replace(s)
	if s == "" {
		return decimal.Zero, false
	}
	dec := strings.LastIndexAny(s, ".,")
	var intPart, fracPart string
	if dec >= 0 && len(s)-dec-1 >= 1 && len(s)-dec-1 <= 2 {
		intPart, fracPart = s[:dec], s[dec+1:]
	} else {
		intPart = s
	}
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return decimal.Zero, false
		}
	}
	v, err := decimal.NewFromString(intPart + "." + fracPart + "0")
	if err != nil {
		return decimal.Zero, false
	}
	return v.Round(2), true
}
