package comps

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/fetch"
)

var autoscoutFuelMap = map[string]string{
	"benzin":         "B",
	"benziner":       "B",
	"super":          "B",
	"diesel":         "D",
	"elektro":        "E",
	"electric":       "E",
	"bev":            "E",
	"hybrid":         "H",
	"plug-in-hybrid": "H",
	"phev":           "H",
}

// BuildAutoscoutSearchURL maps a listing to an AutoScout24 search for
// comparable private-seller cars. Empty string when brand or model is
// missing.
func BuildAutoscoutSearchURL(l *database.Listing) string {
	if strings.TrimSpace(l.Brand) == "" || strings.TrimSpace(l.Model) == "" {
		return ""
	}

	brand := slugHyphen(l.Brand)
	model := slugAutoscoutModel(l.Model)
	if brand == "" {
		return ""
	}

	path := brand
	if model != "" {
		path += "/" + model
	}

	q := url.Values{
		"atype":           {"C"},
		"cy":              {"D"},
		"custtype":        {"P"}, // private sellers only
		"damaged_listing": {"exclude"},
		"desc":            {"0"},
		"sort":            {"standard"},
		"source":          {"detailsearch"},
	}
	if year, ok := registrationYear(l); ok {
		q.Set("fregfrom", strconv.Itoa(year-1))
		q.Set("fregto", strconv.Itoa(year+1))
	}
	if kmFrom, kmTo, ok := mileageBand(l); ok {
		q.Set("kmfrom", strconv.Itoa(kmFrom))
		q.Set("kmto", strconv.Itoa(kmTo))
	}
	if fuel, ok := autoscoutFuelMap[strings.ToLower(strings.TrimSpace(l.Fuel))]; ok {
		q.Set("fuel", fuel)
	}
	if gear := gearboxCode(l.Gearbox, "A", "M"); gear != "" {
		q.Set("gear", gear)
	}

	return "https://www.autoscout24.de/lst/" + path + "?" + q.Encode()
}

// gearboxCode maps free-text gearbox descriptions to a marketplace's own
// enumeration. Unrecognized values yield "" and are omitted from the query.
func gearboxCode(gearbox, automatic, manual string) string {
	g := strings.ToLower(gearbox)
	switch {
	case strings.Contains(g, "auto"):
		return automatic
	case strings.Contains(g, "schalt"), strings.Contains(g, "man"):
		return manual
	default:
		return ""
	}
}

var (
	asCountRe = regexp.MustCompile(`(?is)<h1[^>]*data-testid="list-header-title"[^>]*>\s*([0-9]+)\s+Angebot(?:e)?\b`)
	asPriceRe = regexp.MustCompile(`(?is)<p[^>]*data-testid="regular-price"[^>]*>(.*?)</p>`)
)

var _ Provider = (*AutoscoutProvider)(nil)

// AutoscoutProvider extracts comparable stats from AutoScout24 result pages.
type AutoscoutProvider struct{}

func NewAutoscoutProvider() *AutoscoutProvider {
	return &AutoscoutProvider{}
}

func (p *AutoscoutProvider) Name() string {
	return "autoscout"
}

func (p *AutoscoutProvider) Headers() fetch.Headers {
	return fetch.Headers{
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Referer":         "https://www.autoscout24.de/",
	}
}

// The body is parsed regardless of status; a challenge page yields zero
// counts rather than an error.
func (p *AutoscoutProvider) DetectBlock(int, string) bool {
	return false
}

func (p *AutoscoutProvider) ExtractCount(body string) int {
	m := asCountRe.FindStringSubmatch(body)
	if m == nil {
		return 0
	}
	return parseEuropeanInt(m[1])
}

func (p *AutoscoutProvider) ExtractPrices(body string) []int {
	var prices []int
	for _, m := range asPriceRe.FindAllStringSubmatch(body, -1) {
		inner := stripTags(html.UnescapeString(m[1]))
		if val, ok := firstEuropeanInt(inner); ok && plausiblePrice(val, maxPlausiblePrice) {
			prices = append(prices, val)
		}
	}
	return prices
}

func (p *AutoscoutProvider) PageTwoURL(u string) string {
	separator := "?"
	if strings.Contains(u, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spage=2", u, separator)
}
