package normalize

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimeZone is where the site's listing timestamps are local to.
const DefaultTimeZone = "Europe/Oslo"

// Date is the calendar breakdown of a listing timestamp.
type Date struct {
	Day   int
	Month string
	Year  int
}

// LoadZone resolves an IANA zone name, falling back to DefaultTimeZone
// when name is empty.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// DecomposeTimestamp reads epochMillis as an instant and returns its civil
// date in loc. The zone database handles DST, so dates near the spring and
// autumn transitions come out as local clocks showed them.
func DecomposeTimestamp(epochMillis int64, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(epochMillis).In(loc)
	return Date{
		Day:   t.Day(),
		Month: t.Month().String(),
		Year:  t.Year(),
	}
}
