package comps

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/WebsitesPages/Autoscan/app/fetch"
)

// IsMobileSearchURL reports whether the URL points at a mobile.de search
// result page. Only search URLs are accepted, not detail pages.
func IsMobileSearchURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "suchen.mobile.de/fahrzeuge/search.html") ||
		strings.Contains(lower, "m.mobile.de/auto/search.html")
}

var (
	mdCountRe       = regexp.MustCompile(`(?is)<h1[^>]*data-testid=["']srp-title["'][^>]*>\s*([0-9][0-9.\s\x{00a0}]*)\s*(?:<!--\s*-->)*\s*(?:Angebot|Treffer|Ergebnis)`)
	mdCountStickyRe = regexp.MustCompile(`(?is)data-testid=["']srp-save-search-sticky-bar["'][^>]*>.*?([0-9][0-9.\s\x{00a0}]*)\s*(?:<!--\s*-->)*\s*(?:Angebot|Treffer|Ergebnis)`)
	mdCountGeneric  = regexp.MustCompile(`(?is)([0-9][0-9.\s\x{00a0}]*)\s*(?:<!--\s*-->)*\s*(?:Angebote|Treffer|Ergebnisse)\b`)

	mdPriceSpanRe = regexp.MustCompile(`(?is)<span[^>]*data-testid=["']price-label["'][^>]*>(.*?)</span>`)
	mdPriceDivRe  = regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*main-price-label[^"']*["'][^>]*>(.*?)</div>`)
)

var _ Provider = (*MobileProvider)(nil)

// MobileProvider extracts comparable stats from a caller-supplied mobile.de
// search URL. There is no URL builder for mobile.de; search pages carry too
// many interdependent parameters to synthesize from a listing.
type MobileProvider struct{}

func NewMobileProvider() *MobileProvider {
	return &MobileProvider{}
}

func (p *MobileProvider) Name() string {
	return "mobile"
}

func (p *MobileProvider) Headers() fetch.Headers {
	return fetch.Headers{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Referer":         "https://suchen.mobile.de/",
	}
}

// The body is parsed regardless of status; an interstitial yields zero
// counts rather than an error.
func (p *MobileProvider) DetectBlock(int, string) bool {
	return false
}

func (p *MobileProvider) ExtractCount(body string) int {
	for _, re := range []*regexp.Regexp{mdCountRe, mdCountStickyRe, mdCountGeneric} {
		if m := re.FindStringSubmatch(body); m != nil {
			if n := parseEuropeanInt(m[1]); n > 0 {
				return n
			}
		}
	}
	return 0
}

// Prices on mobile.de run higher than the classifieds sites, so the upper
// plausibility bound is raised.
func (p *MobileProvider) ExtractPrices(body string) []int {
	var prices []int
	for _, re := range []*regexp.Regexp{mdPriceSpanRe, mdPriceDivRe} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			inner := strings.ReplaceAll(m[1], "<!-- -->", "")
			inner = stripTags(html.UnescapeString(inner))
			if val, ok := firstEuropeanInt(inner); ok && plausiblePrice(val, maxPlausiblePriceMobile) {
				prices = append(prices, val)
			}
		}
		if len(prices) > 0 {
			break
		}
	}
	return prices
}

func (p *MobileProvider) PageTwoURL(searchURL string) string {
	u, err := url.Parse(searchURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	if q.Get("pageNumber") == "2" {
		return ""
	}
	q.Set("pageNumber", "2")
	u.RawQuery = q.Encode()
	return u.String()
}
