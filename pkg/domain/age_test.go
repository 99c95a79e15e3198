package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOver18(t *testing.T) {
	at := func(s string) time.Time {
		d, err := time.Parse(time.DateTime, s)
		require.NoError(t, err)
		return d
	}

	cases := []struct {
		name string
		dob  string
		now  string
		want bool
	}{
		{"on the 18th birthday", "15/01/2000", "2018-01-15 00:00:00", true},
		{"last second before", "15/01/2000", "2018-01-14 23:59:59", false},
		{"seventeen", "15/06/2000", "2017-06-15 12:00:00", false},
		{"long past", "01/01/1950", "2026-10-14 00:00:00", true},
		{"leap day, 28 feb of the common year", "29/02/2000", "2018-02-28 00:00:00", false},
		{"leap day, 1 mar of the common year", "29/02/2000", "2018-03-01 00:00:00", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dob, err := ParseBirthDate(tc.dob)
			require.NoError(t, err)
			assert.Equal(t, tc.want, IsOver18(dob, at(tc.now)))
		})
	}
}

func TestIsOver18NormalizesZones(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	dob := time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)
	// 04:00 IST on the birthday is still the day before in UTC.
	assert.False(t, IsOver18(dob, time.Date(2018, 1, 15, 4, 0, 0, 0, ist)))
	assert.True(t, IsOver18(dob, time.Date(2018, 1, 15, 6, 0, 0, 0, ist)))
}

func TestParseBirthDate(t *testing.T) {
	got, err := ParseBirthDate("27/10/2004")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2004, 10, 27, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"31/04/1990", "29/02/1991", "1990-08-15", "15/8/1990", ""} {
		_, err := ParseBirthDate(bad)
		assert.Error(t, err, bad)
	}
}
