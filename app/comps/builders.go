package comps

import (
	"regexp"
	"strconv"

	"github.com/WebsitesPages/Autoscan/app/database"
)

var yearRe = regexp.MustCompile(`(20\d{2}|19\d{2})`)

// registrationYear finds the first plausible 4-digit year in the explicit
// first-registration text, falling back to the free-text "EZ" tag.
func registrationYear(l *database.Listing) (int, bool) {
	firstReg := l.FirstReg
	if len(firstReg) > 10 {
		firstReg = firstReg[:10]
	}
	for _, candidate := range []string{firstReg, l.EzText} {
		if m := yearRe.FindString(candidate); m != "" {
			year, err := strconv.Atoi(m)
			if err == nil {
				return year, true
			}
		}
	}
	return 0, false
}

// mileageBand returns the ±10% band around the listing's mileage.
func mileageBand(l *database.Listing) (from, to int, ok bool) {
	if l.Km == nil || *l.Km <= 0 {
		return 0, 0, false
	}
	return *l.Km * 9 / 10, *l.Km * 11 / 10, true
}
