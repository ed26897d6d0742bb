// Package normalize holds the pure field normalization routines applied to
// every scraped listing. None of them fail: bad input yields nil.
package normalize

import "strings"

// SplitLocation splits "Road, City" at the last comma. Without a comma the
// whole string is the city. A part containing '|' is an ad-slot or
// placeholder marker and comes back nil.
func SplitLocation(full string) (road, city *string) {
	idx := strings.LastIndex(full, ",")
	if idx < 0 {
		return nil, clean(full)
	}

	r := full[:idx]
	c := ""
	// skip the comma and the single space after it
	if start := idx + 2; start < len(full) {
		c = full[start:]
	}
	return clean(r), clean(c)
}

func clean(s string) *string {
	if strings.Contains(s, "|") {
		return nil
	}
	return &s
}
