package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`),
	regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-z]{3,9})\.?\s+(\d{4})\b`),
	regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "mei": time.May, "jun": time.June, "jul": time.July,
	"aug": time.August, "agu": time.August, "agt": time.August, "sep": time.September,
	"oct": time.October, "okt": time.October, "nov": time.November, "dec": time.December,
	"des": time.December,
}

// FindDate returns the first calendar date printed in text. Numeric dates
// without a leading year are read day first.
func FindDate(text string) (time.Time, bool) {
	for i, re := range datePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			var y, d int
			var mon time.Month
			switch i {
			case 0:
				y, mon, d = atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])
			case 1:
				d, mon, y = atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])
			case 2:
				d, mon, y = atoi(m[1]), month(m[2]), atoi(m[3])
			case 3:
				mon, d, y = month(m[1]), atoi(m[2]), atoi(m[3])
			}
			if y < 100 {
				y += 2000
			}
			if t, ok := validDate(y, mon, d); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func validDate(y int, m time.Month, d int) (time.Time, bool) {
	if y < 1970 || y > 2100 || m < time.January || m > time.December || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func month(s string) time.Month {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0
	}
	return monthNames[s[:3]]
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
