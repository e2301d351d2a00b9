package timezone

import (
	"strings"
	"time"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// sales are held at the county courthouses, so dates are always read and
// printed in eastern time no matter where the process runs.
func Now() time.Time {
	return time.Now().In(Location)
}

var saleDateLayouts = []string{
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseSaleDate reads the free text sale date shown on the sales pages.
func ParseSaleDate(raw string) (time.Time, bool) {
	raw = strings.Join(strings.Fields(raw), " ")
	for _, layout := range saleDateLayouts {
		t, err := time.ParseInLocation(layout, raw, Location)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
