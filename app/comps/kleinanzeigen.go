package comps

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/fetch"
)

// BuildSimilarSearchURL maps a listing to a Kleinanzeigen search for
// comparable cars in the configured region. Empty string when brand or
// model is missing — callers must skip the marketplace, not treat it as
// an error.
func BuildSimilarSearchURL(l *database.Listing, region Region) string {
	brand := slugUnderscore(l.Brand)
	model := slugUnderscore(l.Model)
	if brand == "" || model == "" {
		return ""
	}

	var path strings.Builder
	path.WriteString("https://www.kleinanzeigen.de/s-autos/")
	if region.AreaSlug != "" {
		path.WriteString(region.AreaSlug + "/")
	}
	path.WriteString("anzeige:angebote/")

	parts := []string{
		fmt.Sprintf("c216%sr%d", region.AreaCode, region.RadiusKM),
		"autos.marke_s:" + brand,
		"autos.model_s:" + model,
	}
	if kmFrom, kmTo, ok := mileageBand(l); ok {
		parts = append(parts, fmt.Sprintf("autos.km_i:%d,%d", kmFrom, kmTo))
	}
	if year, ok := registrationYear(l); ok {
		parts = append(parts, fmt.Sprintf("autos.ez_i:%d,%d", year-1, year+1))
	}
	if fuel := slugUnderscore(l.Fuel); fuel != "" {
		parts = append(parts, "autos.fuel_s:"+fuel)
	}
	if gear := slugUnderscore(l.Gearbox); gear != "" {
		parts = append(parts, "autos.shift_s:"+gear)
	}

	return path.String() + strings.Join(parts, "+")
}

var (
	kaCountRe = regexp.MustCompile(`(?is)<span[^>]*class=["']breadcrump-summary["'][^>]*>.*?von\s*([0-9][0-9.\s]*)\s+[A-Za-zÄÖÜäöüß]`)
	kaPriceRe = regexp.MustCompile(`(?is)<p[^>]*class=["']aditem-main--middle--price-shipping--price["'][^>]*>(.*?)</p>`)
	kaSRPRe   = regexp.MustCompile(`/s-autos/[^/]+/|/s-autos/`)
)

var _ Provider = (*KleinanzeigenProvider)(nil)

// KleinanzeigenProvider extracts comparable stats from Kleinanzeigen SRPs.
type KleinanzeigenProvider struct{}

func NewKleinanzeigenProvider() *KleinanzeigenProvider {
	return &KleinanzeigenProvider{}
}

func (p *KleinanzeigenProvider) Name() string {
	return "kleinanzeigen"
}

func (p *KleinanzeigenProvider) Headers() fetch.Headers {
	return fetch.Headers{
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Referer":         "https://www.kleinanzeigen.de/",
	}
}

// Kleinanzeigen answers challenges with a 403 whose body still carries the
// result markup when the check passes, so the body is always parsed and an
// interstitial simply yields zero counts.
func (p *KleinanzeigenProvider) DetectBlock(int, string) bool {
	return false
}

func (p *KleinanzeigenProvider) ExtractCount(body string) int {
	m := kaCountRe.FindStringSubmatch(body)
	if m == nil {
		return 0
	}
	return parseEuropeanInt(m[1])
}

func (p *KleinanzeigenProvider) ExtractPrices(body string) []int {
	var prices []int
	for _, m := range kaPriceRe.FindAllStringSubmatch(body, -1) {
		inner := stripTags(html.UnescapeString(m[1]))
		if val, ok := firstEuropeanInt(inner); ok && plausiblePrice(val, maxPlausiblePrice) {
			prices = append(prices, val)
		}
	}
	return prices
}

// PageTwoURL splices "seite:2/" after the /s-autos/<area>/ path segment.
func (p *KleinanzeigenProvider) PageTwoURL(url string) string {
	if strings.Contains(url, "/seite:") {
		return ""
	}
	loc := kaSRPRe.FindStringIndex(url)
	if loc == nil {
		return ""
	}
	return url[:loc[1]] + "seite:2/" + url[loc[1]:]
}
