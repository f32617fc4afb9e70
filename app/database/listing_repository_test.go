package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) (*listingRepository, *time.Time) {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewListingRepository(db).(*listingRepository)
	repo.nowFn = func() time.Time { return now }

	return repo, &now
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestUpsertInsert(t *testing.T) {
	repo, _ := newTestRepo(t)

	changed, err := repo.Upsert(ListingPatch{
		ID:       "123",
		Platform: strPtr("ebay-kleinanzeigen"),
		URL:      strPtr("https://www.kleinanzeigen.de/s-anzeige/123"),
		Title:    strPtr("VW Golf VII"),
		PriceEUR: intPtr(10000),
		Km:       intPtr(98000),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !changed {
		t.Error("Expected insert to report a write")
	}

	listing, err := repo.GetListing("123")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if listing == nil {
		t.Fatal("Expected listing to exist")
	}
	if listing.Title != "VW Golf VII" {
		t.Errorf("Expected title 'VW Golf VII', got: %s", listing.Title)
	}
	if listing.PriceEUR == nil || *listing.PriceEUR != 10000 {
		t.Errorf("Expected price 10000, got: %v", listing.PriceEUR)
	}
	if listing.Status != "active" {
		t.Errorf("Expected status 'active', got: %s", listing.Status)
	}

	// Price supplied on first insert logs one observation
	history, err := repo.GetPriceHistory("123")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 price observation, got: %d", len(history))
	}
	if history[0].PriceEUR != 10000 {
		t.Errorf("Expected observed price 10000, got: %d", history[0].PriceEUR)
	}
}

func TestUpsertMissingID(t *testing.T) {
	repo, _ := newTestRepo(t)

	if _, err := repo.Upsert(ListingPatch{}); err == nil {
		t.Error("Expected error for missing id")
	}
}

func TestUpsertIdenticalPayloadIsNoOp(t *testing.T) {
	repo, now := newTestRepo(t)

	patch := ListingPatch{
		ID:       "123",
		Platform: strPtr("ebay-kleinanzeigen"),
		Title:    strPtr("VW Golf VII"),
		PriceEUR: intPtr(10000),
	}

	changed, err := repo.Upsert(patch)
	if err != nil || !changed {
		t.Fatalf("Expected first upsert to write (changed=%v, err=%v)", changed, err)
	}

	firstSeen := *now
	*now = now.Add(10 * time.Minute)

	changed, err = repo.Upsert(patch)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if changed {
		t.Error("Expected identical payload to be a no-op")
	}

	listing, _ := repo.GetListing("123")
	if !listing.LastSeen.Equal(firstSeen) {
		t.Errorf("Expected last_seen untouched by no-op, got: %v", listing.LastSeen)
	}

	history, _ := repo.GetPriceHistory("123")
	if len(history) != 1 {
		t.Errorf("Expected no additional price observation, got: %d", len(history))
	}
}

func TestUpsertFirstPriceAfterInsertWithoutPrice(t *testing.T) {
	repo, now := newTestRepo(t)

	// Listing enters without a price (e.g. "VB" card); no observation yet.
	if _, err := repo.Upsert(ListingPatch{ID: "123", Title: strPtr("VW Golf VII")}); err != nil {
		t.Fatal(err)
	}
	history, err := repo.GetPriceHistory("123")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("Expected no observation without a price, got: %d", len(history))
	}

	// The first real price is a transition worth recording.
	*now = now.Add(time.Hour)
	changed, err := repo.Upsert(ListingPatch{ID: "123", PriceEUR: intPtr(10000)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !changed {
		t.Error("Expected first price to count as a write")
	}

	history, _ = repo.GetPriceHistory("123")
	if len(history) != 1 {
		t.Fatalf("Expected 1 observation for the first price, got: %d", len(history))
	}
	if history[0].PriceEUR != 10000 {
		t.Errorf("Expected observed price 10000, got: %d", history[0].PriceEUR)
	}
}

func TestUpsertPriceChangeAppendsObservation(t *testing.T) {
	repo, now := newTestRepo(t)

	if _, err := repo.Upsert(ListingPatch{ID: "123", PriceEUR: intPtr(10000)}); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(time.Hour)

	changed, err := repo.Upsert(ListingPatch{ID: "123", PriceEUR: intPtr(9500)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !changed {
		t.Error("Expected price change to report a write")
	}

	history, err := repo.GetPriceHistory("123")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 price observations, got: %d", len(history))
	}
	if history[1].PriceEUR != 9500 {
		t.Errorf("Expected latest observation 9500, got: %d", history[1].PriceEUR)
	}

	// Re-observing the same price must not log again
	*now = now.Add(time.Hour)
	changed, err = repo.Upsert(ListingPatch{ID: "123", PriceEUR: intPtr(9500)})
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("Expected unchanged price to be a no-op")
	}
	history, _ = repo.GetPriceHistory("123")
	if len(history) != 2 {
		t.Errorf("Expected still 2 price observations, got: %d", len(history))
	}
}

func TestUpsertPartialDetailMerge(t *testing.T) {
	repo, now := newTestRepo(t)

	// List pass supplies the core fields
	srp := ListingPatch{
		ID:       "456",
		Platform: strPtr("ebay-kleinanzeigen"),
		URL:      strPtr("https://www.kleinanzeigen.de/s-anzeige/456"),
		Title:    strPtr("BMW 320d"),
		PriceEUR: intPtr(15500),
		Km:       intPtr(120000),
		City:     strPtr("Regensburg"),
	}
	if _, err := repo.Upsert(srp); err != nil {
		t.Fatal(err)
	}

	firstSeen := *now
	*now = now.Add(time.Minute)

	// Detail pass adds secondary fields without the list-pass ones
	detail := ListingPatch{
		ID:       "456",
		Platform: strPtr("ebay-kleinanzeigen"),
		URL:      srp.URL,
		Title:    srp.Title,
		Brand:    strPtr("BMW"),
		Model:    strPtr("320"),
		Fuel:     strPtr("Diesel"),
		PowerPS:  intPtr(184),
	}
	changed, err := repo.Upsert(detail)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !changed {
		t.Error("Expected detail pass to report a write")
	}

	listing, err := repo.GetListing("456")
	if err != nil {
		t.Fatal(err)
	}
	// Merged, not replaced: list-pass fields survive the detail pass
	if listing.PriceEUR == nil || *listing.PriceEUR != 15500 {
		t.Errorf("Expected price 15500 to survive merge, got: %v", listing.PriceEUR)
	}
	if listing.City != "Regensburg" {
		t.Errorf("Expected city to survive merge, got: %s", listing.City)
	}
	if listing.Brand != "BMW" || listing.Model != "320" {
		t.Errorf("Expected detail fields merged, got brand=%s model=%s", listing.Brand, listing.Model)
	}
	if listing.PowerPS == nil || *listing.PowerPS != 184 {
		t.Errorf("Expected power 184, got: %v", listing.PowerPS)
	}

	if !listing.FirstSeen.Equal(firstSeen) {
		t.Errorf("Expected first_seen unchanged, got: %v", listing.FirstSeen)
	}
	if !listing.LastSeen.After(listing.FirstSeen) {
		t.Errorf("Expected last_seen advanced, got: %v", listing.LastSeen)
	}

	// Re-applying the detail payload converges to a no-op
	changed, err = repo.Upsert(detail)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("Expected repeated detail payload to be a no-op")
	}
}

func TestGetListingsAndCounts(t *testing.T) {
	repo, now := newTestRepo(t)

	for i, id := range []string{"a", "b", "c"} {
		*now = now.Add(time.Duration(i) * time.Minute)
		if _, err := repo.Upsert(ListingPatch{ID: id, Title: strPtr("Listing " + id), PriceEUR: intPtr(1000 * (i + 1))}); err != nil {
			t.Fatal(err)
		}
	}

	listings, err := repo.GetListings(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 3 {
		t.Fatalf("Expected 3 listings, got: %d", len(listings))
	}
	if listings[0].ID != "c" {
		t.Errorf("Expected most recently seen listing first, got: %s", listings[0].ID)
	}

	limited, err := repo.GetListings(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 listings with limit, got: %d", len(limited))
	}

	count, err := repo.GetListingCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Expected listing count 3, got: %d", count)
	}

	obsCount, err := repo.GetPriceObservationCount()
	if err != nil {
		t.Fatal(err)
	}
	if obsCount != 3 {
		t.Errorf("Expected 3 price observations, got: %d", obsCount)
	}
}

func TestSetListingStatus(t *testing.T) {
	repo, _ := newTestRepo(t)

	if _, err := repo.Upsert(ListingPatch{ID: "123", Title: strPtr("VW Golf")}); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetListingStatus("123", "inactive"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	listing, _ := repo.GetListing("123")
	if listing.Status != "inactive" {
		t.Errorf("Expected status 'inactive', got: %s", listing.Status)
	}
}
