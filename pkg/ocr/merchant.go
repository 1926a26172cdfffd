package ocr

import (
	"strings"
	"unicode"
)

// maxMerchantLength keeps the merchant usable as a transaction title.
const maxMerchantLength = 60

// FindMerchant guesses the merchant name: the first line near the top that
// is mostly letters and is not a receipt boilerplate line.
func FindMerchant(text string) string {
	for i, line := range strings.Split(text, "\n") {
		if i >= 8 {
			break
		}
		line = strings.Join(strings.Fields(line), " ")
		if len(line) < 3 {
			continue
		}
		lower := strings.ToLower(line)
		if isContactLine(lower) || containsAny(lower, []string{"receipt", "invoice", "struk", "www.", "http"}) {
			continue
		}
		letters, total := 0, 0
		for _, r := range line {
			if unicode.IsSpace(r) {
				continue
			}
			total++
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if total == 0 || letters*10 < total*6 {
			continue
		}
		if r := []rune(line); len(r) > maxMerchantLength {
			line = strings.TrimSpace(string(r[:maxMerchantLength]))
		}
		return line
	}
	return ""
}
