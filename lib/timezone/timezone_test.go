package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSaleDate(t *testing.T) {
	cases := []struct {
		raw    string
		expect time.Time
		ok     bool
	}{
		{raw: "10/14/2026", expect: time.Date(2026, time.October, 14, 0, 0, 0, 0, Location), ok: true},
		{raw: "01/02/2026", expect: time.Date(2026, time.January, 2, 0, 0, 0, 0, Location), ok: true},
		{raw: " 3/5/2026   2:00 PM ", expect: time.Date(2026, time.March, 5, 14, 0, 0, 0, Location), ok: true},
		{raw: "2026-11-30", expect: time.Date(2026, time.November, 30, 0, 0, 0, 0, Location), ok: true},
		{raw: "Dec 1, 2026", expect: time.Date(2026, time.December, 1, 0, 0, 0, 0, Location), ok: true},
		{raw: "adjourned", ok: false},
		{raw: "", ok: false},
	}

	for _, test := range cases {
		parsed, ok := ParseSaleDate(test.raw)
		require.Equal(t, test.ok, ok, test.raw)
		if ok {
			require.True(t, test.expect.Equal(parsed), "%s: %v != %v", test.raw, test.expect, parsed)
		}
	}
}

func TestNowIsEastern(t *testing.T) {
	require.Equal(t, Location, Now().Location())
}
