package comps

import (
	"regexp"
	"strconv"
	"strings"
)

// Plausibility bounds reject parse noise such as monthly finance rates and
// placeholder zeros.
const (
	minPlausiblePrice       = 500
	maxPlausiblePrice       = 300000
	maxPlausiblePriceMobile = 500000
)

// blockHints are case-insensitive phrases that mark a Carwow challenge
// page. The classifieds sites serve result markup even alongside these
// words, so only the Carwow provider consults them.
var blockHints = []string{
	"captcha",
	"are you human",
	"access denied",
	"temporarily blocked",
	"robot",
	"forbidden",
	"not authorized",
	"verify you are",
	"cloudflare",
}

func looksBlocked(body string) bool {
	lower := strings.ToLower(body)
	for _, hint := range blockHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

var (
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	europeanNumRe = regexp.MustCompile(`\d{1,3}(?:[.\s\x{00a0}\x{202f}\x{2009}\x{2007}]\d{3})*|\d+`)
	numSeparators = strings.NewReplacer(".", "", " ", "", " ", "", " ", "", " ", "", " ", "")
)

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, " ")
}

// parseEuropeanInt reads "10.715", "10 715" or "10715" as 10715; 0 on failure.
func parseEuropeanInt(s string) int {
	n, err := strconv.Atoi(numSeparators.Replace(strings.TrimSpace(s)))
	if err != nil {
		return 0
	}
	return n
}

// firstEuropeanInt finds the first European-formatted number in a text
// fragment.
func firstEuropeanInt(s string) (int, bool) {
	m := europeanNumRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n := parseEuropeanInt(m)
	if n == 0 {
		return 0, false
	}
	return n, true
}

func plausiblePrice(val, upper int) bool {
	return val >= minPlausiblePrice && val <= upper
}
