package scrape

// Platform identifies the source marketplace of crawled listings.
const Platform = "ebay-kleinanzeigen"

// BaseURL prefixes relative ad links found on search-result pages.
const BaseURL = "https://www.kleinanzeigen.de"

// Entry is one parsed search-result-page listing card. Nil means the
// corresponding markup was absent or unparseable, never an error.
type Entry struct {
	ID         string
	URL        string
	Title      *string
	PriceEUR   *int
	Km         *int
	EzText     *string
	Location   *string
	PostalCode *string
	City       *string
	PostedAt   *string
	Pics       *int
}

// Detail holds the secondary structured fields of a single ad page.
type Detail struct {
	Brand         *string
	Model         *string
	Km            *int
	FirstReg      *string
	Fuel          *string
	PowerPS       *int
	Gearbox       *string
	Doors         *string
	HuUntil       *string
	EmissionClass *string
	Color         *string
	Upholstery    *string
	Description   *string
	ImageURLs     []string
}
