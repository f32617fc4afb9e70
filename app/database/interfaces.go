package database

type ListingRepository interface {
	// Upsert inserts or updates a listing, writing only when at least one
	// provided field differs from the stored value. Returns whether a write
	// occurred. Price changes are appended to the price history.
	Upsert(patch ListingPatch) (bool, error)

	GetListing(id string) (*Listing, error)
	GetListings(limit int) ([]Listing, error)
	GetListingCount() (int, error)

	GetPriceHistory(listingID string) ([]PriceObservation, error)
	GetPriceObservationCount() (int, error)

	SetListingStatus(id string, status string) error
}
