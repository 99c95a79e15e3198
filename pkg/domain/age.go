package domain

import (
	"fmt"
	"time"
)

// DateLayout is the day-first layout printed on PAN cards.
const DateLayout = "02/01/2006"

// IsOver18 reports whether someone born on birthDate has reached their 18th
// birthday at now. A 29 February birthday comes of age on 1 March in common years.
func IsOver18(birthDate, now time.Time) bool {
	return !now.UTC().Before(birthDate.UTC().AddDate(18, 0, 0))
}

// ParseBirthDate parses a DD/MM/YYYY date of birth, rejecting impossible
// calendar dates.
func ParseBirthDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse birth date %q: %w", s, err)
	}
	return t, nil
}
