// Package comps computes comparable-price statistics for a listing by
// querying third-party marketplace search pages. URL builders are pure
// functions over listing attributes; the aggregation control flow is one
// generic algorithm parameterized by per-site extraction strategies.
package comps

import (
	"github.com/WebsitesPages/Autoscan/app/fetch"
)

// Stats is the ephemeral result of one comparable-price lookup.
type Stats struct {
	OK          bool   `json:"ok"`
	Count       int    `json:"count"`
	AvgPriceEUR int    `json:"avg_price_eur"`
	URL         string `json:"url"`
	Error       string `json:"error,omitempty"`
}

// Provider is the per-marketplace capability set consumed by the generic
// aggregation algorithm.
type Provider interface {
	Name() string
	Headers() fetch.Headers

	// DetectBlock recognizes anti-bot/challenge responses where the site
	// makes that reliable; sites that serve result markup on any status
	// always report false and yield empty counts instead.
	DetectBlock(statusCode int, body string) bool

	// ExtractCount reads the announced total result count; 0 when absent.
	ExtractCount(body string) int

	// ExtractPrices returns the plausibility-filtered listing prices in
	// extraction order.
	ExtractPrices(body string) []int

	// PageTwoURL derives the second result page for the site, or "" when the
	// site is not paginated.
	PageTwoURL(url string) string
}

// Region parameterizes the Kleinanzeigen similar-search URL.
type Region struct {
	AreaSlug string
	AreaCode string
	RadiusKM int
}
