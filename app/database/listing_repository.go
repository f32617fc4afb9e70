package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

var _ ListingRepository = (*listingRepository)(nil)

type listingRepository struct {
	db    *DB
	nowFn func() time.Time
}

func NewListingRepository(db *DB) ListingRepository {
	return &listingRepository{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// patchField pairs one provided patch value with the stored value it would
// replace. Exactly one of newText/newNum is meaningful, keyed by numeric.
type patchField struct {
	col     string
	numeric bool
	newText *string
	curText string
	newNum  *int
	curNum  *int
}

func patchFields(p ListingPatch, cur *Listing) []patchField {
	var c Listing
	if cur != nil {
		c = *cur
	}
	return []patchField{
		{col: "platform", newText: p.Platform, curText: c.Platform},
		{col: "url", newText: p.URL, curText: c.URL},
		{col: "title", newText: p.Title, curText: c.Title},
		{col: "price_eur", numeric: true, newNum: p.PriceEUR, curNum: c.PriceEUR},
		{col: "km", numeric: true, newNum: p.Km, curNum: c.Km},
		{col: "ez_text", newText: p.EzText, curText: c.EzText},
		{col: "location", newText: p.Location, curText: c.Location},
		{col: "postal_code", newText: p.PostalCode, curText: c.PostalCode},
		{col: "city", newText: p.City, curText: c.City},
		{col: "posted_at", newText: p.PostedAt, curText: c.PostedAt},
		{col: "pics", numeric: true, newNum: p.Pics, curNum: c.Pics},
		{col: "brand", newText: p.Brand, curText: c.Brand},
		{col: "model", newText: p.Model, curText: c.Model},
		{col: "fuel", newText: p.Fuel, curText: c.Fuel},
		{col: "power_ps", numeric: true, newNum: p.PowerPS, curNum: c.PowerPS},
		{col: "gearbox", newText: p.Gearbox, curText: c.Gearbox},
		{col: "doors", newText: p.Doors, curText: c.Doors},
		{col: "hu_until", newText: p.HuUntil, curText: c.HuUntil},
		{col: "emission_class", newText: p.EmissionClass, curText: c.EmissionClass},
		{col: "color", newText: p.Color, curText: c.Color},
		{col: "upholstery", newText: p.Upholstery, curText: c.Upholstery},
		{col: "first_reg", newText: p.FirstReg, curText: c.FirstReg},
		{col: "description", newText: p.Description, curText: c.Description},
		{col: "image_urls_json", newText: p.ImageURLsJSON, curText: c.ImageURLsJSON},
	}
}

func (f patchField) provided() bool {
	if f.numeric {
		return f.newNum != nil
	}
	return f.newText != nil
}

// differs reports whether the provided value changes the stored one.
// NULL compares as '' for text and -1 for numeric columns, so an absent
// stored value and an absent patch value never produce a false-positive diff.
func (f patchField) differs() bool {
	if f.numeric {
		cur := -1
		if f.curNum != nil {
			cur = *f.curNum
		}
		return *f.newNum != cur
	}
	return *f.newText != f.curText
}

func (f patchField) value() any {
	if f.numeric {
		return *f.newNum
	}
	return *f.newText
}

func (r *listingRepository) Upsert(patch ListingPatch) (bool, error) {
	if patch.ID == "" {
		return false, fmt.Errorf("upsert: listing id is required")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getListing(tx, patch.ID)
	if err != nil {
		return false, err
	}

	now := r.nowFn().Format(timeLayout)

	if existing == nil {
		cols := []string{"id", "first_seen", "last_seen"}
		args := []any{patch.ID, now, now}
		for _, f := range patchFields(patch, nil) {
			if f.provided() {
				cols = append(cols, f.col)
				args = append(args, f.value())
			}
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
		query := "INSERT INTO listings (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ")"
		if _, err := tx.Exec(query, args...); err != nil {
			return false, fmt.Errorf("failed to insert listing: %w", err)
		}

		if patch.PriceEUR != nil {
			if err := insertPriceObservation(tx, patch.ID, *patch.PriceEUR, now); err != nil {
				return false, err
			}
		}

		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit insert: %w", err)
		}
		return true, nil
	}

	var setClauses []string
	var args []any
	for _, f := range patchFields(patch, existing) {
		if f.provided() && f.differs() {
			setClauses = append(setClauses, f.col+" = ?")
			args = append(args, f.value())
		}
	}

	// No provided field differs: skip the write entirely so last_seen is not
	// bumped by a no-op sync pass.
	if len(setClauses) == 0 {
		return false, nil
	}

	setClauses = append(setClauses, "last_seen = ?")
	args = append(args, now, patch.ID)
	query := "UPDATE listings SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	if _, err := tx.Exec(query, args...); err != nil {
		return false, fmt.Errorf("failed to update listing: %w", err)
	}

	// Any provided price that differs from the stored one is logged,
	// including the first real price of a listing stored without one.
	if patch.PriceEUR != nil && (existing.PriceEUR == nil || *patch.PriceEUR != *existing.PriceEUR) {
		if err := insertPriceObservation(tx, patch.ID, *patch.PriceEUR, now); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit update: %w", err)
	}
	return true, nil
}

func insertPriceObservation(tx *sql.Tx, listingID string, priceEUR int, now string) error {
	_, err := tx.Exec(`
		INSERT INTO listing_prices (listing_id, seen_at, price_eur)
		VALUES (?, ?, ?)
	`, listingID, now, priceEUR)
	if err != nil {
		return fmt.Errorf("failed to insert price observation: %w", err)
	}
	return nil
}

const listingColumns = `id, COALESCE(platform, ''), COALESCE(url, ''), COALESCE(title, ''),
	price_eur, km, COALESCE(ez_text, ''), COALESCE(location, ''), COALESCE(postal_code, ''),
	COALESCE(city, ''), COALESCE(posted_at, ''), pics, COALESCE(brand, ''), COALESCE(model, ''),
	COALESCE(fuel, ''), power_ps, COALESCE(gearbox, ''), COALESCE(doors, ''), COALESCE(hu_until, ''),
	COALESCE(emission_class, ''), COALESCE(color, ''), COALESCE(upholstery, ''), COALESCE(first_reg, ''),
	COALESCE(description, ''), COALESCE(image_urls_json, ''), first_seen, last_seen, COALESCE(status, 'active')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*Listing, error) {
	var l Listing
	var firstSeen, lastSeen string
	err := row.Scan(
		&l.ID, &l.Platform, &l.URL, &l.Title,
		&l.PriceEUR, &l.Km, &l.EzText, &l.Location, &l.PostalCode,
		&l.City, &l.PostedAt, &l.Pics, &l.Brand, &l.Model,
		&l.Fuel, &l.PowerPS, &l.Gearbox, &l.Doors, &l.HuUntil,
		&l.EmissionClass, &l.Color, &l.Upholstery, &l.FirstReg,
		&l.Description, &l.ImageURLsJSON, &firstSeen, &lastSeen, &l.Status,
	)
	if err != nil {
		return nil, err
	}

	if l.FirstSeen, err = time.Parse(timeLayout, firstSeen); err != nil {
		return nil, fmt.Errorf("failed to parse first_seen: %w", err)
	}
	if l.LastSeen, err = time.Parse(timeLayout, lastSeen); err != nil {
		return nil, fmt.Errorf("failed to parse last_seen: %w", err)
	}

	return &l, nil
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getListing(q queryRower, id string) (*Listing, error) {
	row := q.QueryRow("SELECT "+listingColumns+" FROM listings WHERE id = ?", id)

	listing, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

func (r *listingRepository) GetListing(id string) (*Listing, error) {
	return getListing(r.db, id)
}

func (r *listingRepository) GetListings(limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited
	}

	rows, err := r.db.Query("SELECT "+listingColumns+" FROM listings ORDER BY last_seen DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}

func (r *listingRepository) GetListingCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM listings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get listing count: %w", err)
	}
	return count, nil
}

func (r *listingRepository) GetPriceHistory(listingID string) ([]PriceObservation, error) {
	rows, err := r.db.Query(`
		SELECT listing_id, seen_at, COALESCE(price_eur, 0)
		FROM listing_prices
		WHERE listing_id = ?
		ORDER BY rowid
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	var observations []PriceObservation
	for rows.Next() {
		var obs PriceObservation
		var seenAt string
		if err := rows.Scan(&obs.ListingID, &seenAt, &obs.PriceEUR); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		if obs.SeenAt, err = time.Parse(timeLayout, seenAt); err != nil {
			return nil, fmt.Errorf("failed to parse seen_at: %w", err)
		}
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	return observations, nil
}

func (r *listingRepository) GetPriceObservationCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM listing_prices").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get price observation count: %w", err)
	}
	return count, nil
}

func (r *listingRepository) SetListingStatus(id string, status string) error {
	_, err := r.db.Exec("UPDATE listings SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to set listing status: %w", err)
	}
	return nil
}
