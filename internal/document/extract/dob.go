package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"suiverify/internal/document/models"
)

const minBirthYear = 1920

var (
	dayFirst  = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`)
	yearFirst = regexp.MustCompile(`(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})`)

	dayFirstExact  = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})$`)
	yearFirstExact = regexp.MustCompile(`^(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})$`)
)

// NormalizeDate parses a DD/MM/YYYY or YYYY/MM/DD date with any of / . - as
// separator and returns it as DD/MM/YYYY. The year must lie in
// [1920, now.Year()] and the day must exist in that month.
func NormalizeDate(s string, now time.Time) (string, bool) {
	s = strings.TrimSpace(s)
	if m := dayFirstExact.FindStringSubmatch(s); m != nil {
		return dateParts(m[1], m[2], m[3], now)
	}
	if m := yearFirstExact.FindStringSubmatch(s); m != nil {
		return dateParts(m[3], m[2], m[1], now)
	}
	return "", false
}

func dateParts(day, month, year string, now time.Time) (string, bool) {
	d, err1 := strconv.Atoi(day)
	m, err2 := strconv.Atoi(month)
	y, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if y < minBirthYear || y > now.Year() || m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return fmt.Sprintf("%02d/%02d/%04d", d, m, y), true
}

func dobFromText(p *pool, ci int) (string, bool) {
	text := p.texts[ci]
	for _, m := range dayFirst.FindAllStringSubmatch(text, -1) {
		if v, ok := dateParts(m[1], m[2], m[3], p.now); ok {
			return v, true
		}
	}
	for _, m := range yearFirst.FindAllStringSubmatch(text, -1) {
		if v, ok := dateParts(m[3], m[2], m[1], p.now); ok {
			return v, true
		}
	}
	return "", false
}

func dobStrategies() []strategy {
	return []strategy{perCandidate(models.StrategyDate, dobFromText)}
}
