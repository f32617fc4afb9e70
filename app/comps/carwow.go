package comps

import (
	"html"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/fetch"
)

var carwowFuelMap = map[string]string{
	"benzin":         "petrol",
	"benziner":       "petrol",
	"super":          "petrol",
	"diesel":         "diesel",
	"elektro":        "electric",
	"electric":       "electric",
	"bev":            "electric",
	"hybrid":         "hybrid",
	"plug-in-hybrid": "hybrid",
	"phev":           "hybrid",
}

// BuildCarwowSearchURL maps a listing to a Carwow used-car stock search.
// Empty string when brand or model is missing.
func BuildCarwowSearchURL(l *database.Listing) string {
	brand := slugHyphen(l.Brand)
	model := slugHyphen(l.Model)
	if brand == "" || model == "" {
		return ""
	}

	q := url.Values{
		"sort":                {"recommended"},
		"vehicle_type":        {"car"},
		"deal_type_group":     {"cash"},
		"vehicle_state_group": {"used"},
		"brand_slug":          {brand},
		"model_slug":          {model},
	}
	if fuel, ok := carwowFuelMap[strings.ToLower(strings.TrimSpace(l.Fuel))]; ok {
		q.Set("vehicle_fuel_category[]", fuel)
	}
	if trans := gearboxCode(l.Gearbox, "automatic", "manual"); trans != "" {
		q.Set("vehicle_transmission_category[]", trans)
	}
	if kmFrom, kmTo, ok := mileageBand(l); ok {
		q.Set("vehicle_distance_travelled[gte]", strconv.Itoa(kmFrom))
		q.Set("vehicle_distance_travelled[lte]", strconv.Itoa(kmTo))
	}

	return "https://angebote.carwow.de/stock_cars?" + q.Encode()
}

var (
	// Primary: explicit element id; fallback: marker class; last resort: any
	// number next to "Angebot(e)".
	cwCountRe         = regexp.MustCompile(`(?is)id=["']deals-count-header["'][^>]*>\s*([0-9][0-9.\s]*)\s*(?:<!--.*?-->)*\s*Angebot(?:e)?\b`)
	cwCountFallbackRe = regexp.MustCompile(`(?is)class=["'][^"']*contains-deals-count[^"']*["'][^>]*>\s*([0-9][0-9.\s]*)\s*(?:<!--.*?-->)*\s*Angebot(?:e)?\b`)
	cwCountGenericRe  = regexp.MustCompile(`(?is)([0-9][0-9.\s]*)\s*(?:<!--.*?-->)*\s*Angebot(?:e)?\b`)

	cwPriceBlockRe = regexp.MustCompile(`(?is)<div[^>]*class=["']deal-card__price["'][^>]*>(.*?)</div>`)

	// Next.js data blobs sometimes carry the price when the DOM block is
	// absent.
	cwJSONPriceRe = regexp.MustCompile(`(?i)"(?:discounted_)?price(_in_cents)?"\s*:\s*(\d{3,9})`)
)

var _ Provider = (*CarwowProvider)(nil)

// CarwowProvider extracts comparable stats from Carwow stock pages. Carwow
// reliably answers challenges with an error status, so any status >= 400
// counts as blocked.
type CarwowProvider struct{}

func NewCarwowProvider() *CarwowProvider {
	return &CarwowProvider{}
}

func (p *CarwowProvider) Name() string {
	return "carwow"
}

func (p *CarwowProvider) Headers() fetch.Headers {
	return fetch.Headers{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Referer":         "https://angebote.carwow.de/",
	}
}

func (p *CarwowProvider) DetectBlock(statusCode int, body string) bool {
	return statusCode >= 400 || body == "" || looksBlocked(body)
}

func (p *CarwowProvider) ExtractCount(body string) int {
	m := cwCountRe.FindStringSubmatch(body)
	if m == nil {
		m = cwCountFallbackRe.FindStringSubmatch(body)
	}
	if m == nil {
		m = cwCountGenericRe.FindStringSubmatch(body)
	}
	if m == nil {
		return 0
	}
	return parseEuropeanInt(m[1])
}

func (p *CarwowProvider) ExtractPrices(body string) []int {
	var prices []int
	for _, m := range cwPriceBlockRe.FindAllStringSubmatch(body, -1) {
		inner := stripTags(html.UnescapeString(m[1]))
		if val, ok := firstEuropeanInt(inner); ok && plausiblePrice(val, maxPlausiblePrice) {
			prices = append(prices, val)
		}
	}
	if len(prices) > 0 {
		return prices
	}

	for _, m := range cwJSONPriceRe.FindAllStringSubmatch(body, -1) {
		val, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if m[1] != "" {
			val = int(math.Round(float64(val) / 100))
		}
		if plausiblePrice(val, maxPlausiblePrice) {
			prices = append(prices, val)
		}
	}
	return prices
}

// Carwow stock pages are not paginated for this use.
func (p *CarwowProvider) PageTwoURL(string) string {
	return ""
}
