package finance

import "time"

// marketLocation returns America/New_York for chart labels, falling back to fixed EST if tzdata is missing.
func marketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}
