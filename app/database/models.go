package database

import (
	"time"
)

// Listing is one external classified ad tracked by the system. Nullable
// numeric columns are pointers so "unknown" stays distinct from zero.
type Listing struct {
	ID            string    `json:"id"`
	Platform      string    `json:"platform"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	PriceEUR      *int      `json:"price_eur"`
	Km            *int      `json:"km"`
	EzText        string    `json:"ez_text"` // first-registration text as shown on the search result card
	Location      string    `json:"location"`
	PostalCode    string    `json:"postal_code"`
	City          string    `json:"city"`
	PostedAt      string    `json:"posted_at"` // source-local "YYYY-MM-DD HH:MM", or verbatim fallback
	Pics          *int      `json:"pics"`
	Brand         string    `json:"brand"`
	Model         string    `json:"model"`
	Fuel          string    `json:"fuel"`
	PowerPS       *int      `json:"power_ps"`
	Gearbox       string    `json:"gearbox"`
	Doors         string    `json:"doors"`
	HuUntil       string    `json:"hu_until"`
	EmissionClass string    `json:"emission_class"`
	Color         string    `json:"color"`
	Upholstery    string    `json:"upholstery"`
	FirstReg      string    `json:"first_reg"`
	Description   string    `json:"description"`
	ImageURLsJSON string    `json:"image_urls_json"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Status        string    `json:"status"`
}

// PriceObservation is one append-only price-history record.
type PriceObservation struct {
	ListingID string    `json:"listing_id"`
	SeenAt    time.Time `json:"seen_at"`
	PriceEUR  int       `json:"price_eur"`
}

// ListingPatch is a partial update for a listing. Nil means "not provided":
// the field is neither compared nor written. ID is mandatory.
type ListingPatch struct {
	ID            string
	Platform      *string
	URL           *string
	Title         *string
	PriceEUR      *int
	Km            *int
	EzText        *string
	Location      *string
	PostalCode    *string
	City          *string
	PostedAt      *string
	Pics          *int
	Brand         *string
	Model         *string
	Fuel          *string
	PowerPS       *int
	Gearbox       *string
	Doors         *string
	HuUntil       *string
	EmissionClass *string
	Color         *string
	Upholstery    *string
	FirstReg      *string
	Description   *string
	ImageURLsJSON *string
}
