package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/WebsitesPages/Autoscan/app/config"
	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/fetch"
	"github.com/WebsitesPages/Autoscan/app/scrape"
)

var _ Runner = (*Orchestrator)(nil)

// Runner executes one full crawl pass and reports how many listings were
// seen on the search pages and how many produced a database write.
type Runner interface {
	SyncOnce(ctx context.Context) (seen, stored int)
}

// Orchestrator walks the search-result pages of every enabled profile,
// follows each ad to its detail page and upserts the merged record. Page
// and entry failures are logged and skipped so a single broken ad never
// aborts the pass.
type Orchestrator struct {
	repo     database.ListingRepository
	fetcher  fetch.Fetcher
	profiles []config.Profile
	limiter  *rate.Limiter
	nowFn    func() time.Time
}

func NewOrchestrator(repo database.ListingRepository, fetcher fetch.Fetcher,
	profiles []config.Profile, limiter *rate.Limiter) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		fetcher:  fetcher,
		profiles: profiles,
		limiter:  limiter,
		nowFn:    time.Now,
	}
}

func searchHeaders() fetch.Headers {
	return fetch.Headers{
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Referer":         scrape.BaseURL + "/",
	}
}

func (o *Orchestrator) SyncOnce(ctx context.Context) (seen, stored int) {
	start := o.nowFn()

	for _, profile := range o.profiles {
		if !profile.IsEnabled() {
			slog.Debug("Profile disabled, skipping", "profile", profile.Name)
			continue
		}

		pages := profile.Pages
		if pages < 1 {
			pages = 1
		}

		for page := 1; page <= pages; page++ {
			pageSeen, pageStored, err := o.syncPage(ctx, profile, page)
			seen += pageSeen
			stored += pageStored
			if err != nil {
				slog.Warn("Search page sync failed", "profile", profile.Name, "page", page, "error", err)
				continue
			}
			slog.Debug("Search page synced", "profile", profile.Name, "page", page, "seen", pageSeen, "stored", pageStored)
		}
	}

	slog.Info("Sync pass completed", "seen", seen, "stored", stored, "duration", time.Since(start).Round(time.Millisecond).String())

	return seen, stored
}

func (o *Orchestrator) syncPage(ctx context.Context, profile config.Profile, page int) (seen, stored int, err error) {
	url := scrape.BuildSearchURL(profile, page)

	if err := o.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	result, err := o.fetcher.Fetch(ctx, url, searchHeaders())
	if err != nil {
		return 0, 0, fmt.Errorf("fetch search page: %w", err)
	}
	if result.StatusCode >= 400 {
		return 0, 0, fmt.Errorf("search page returned status %d", result.StatusCode)
	}

	entries, err := scrape.ParseSearchPage(result.Body, o.nowFn())
	if err != nil {
		return 0, 0, fmt.Errorf("parse search page: %w", err)
	}

	for _, entry := range entries {
		seen++
		changed, err := o.syncEntry(ctx, entry)
		if err != nil {
			slog.Warn("Listing sync failed", "id", entry.ID, "error", err)
			continue
		}
		if changed {
			stored++
		}
	}

	return seen, stored, nil
}

func (o *Orchestrator) syncEntry(ctx context.Context, entry scrape.Entry) (bool, error) {
	patch := entryPatch(entry)

	detail, err := o.fetchDetail(ctx, entry.URL)
	if err != nil {
		// The card data alone is still worth storing.
		slog.Debug("Detail fetch failed, storing card data only", "id", entry.ID, "error", err)
	} else {
		mergeDetail(&patch, detail)
	}

	return o.repo.Upsert(patch)
}

func (o *Orchestrator) fetchDetail(ctx context.Context, url string) (*scrape.Detail, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := o.fetcher.Fetch(ctx, url, searchHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	if result.StatusCode >= 400 {
		return nil, fmt.Errorf("detail page returned status %d", result.StatusCode)
	}

	return scrape.ParseDetailPage(result.Body)
}

func entryPatch(entry scrape.Entry) database.ListingPatch {
	platform := scrape.Platform
	return database.ListingPatch{
		ID:         entry.ID,
		Platform:   &platform,
		URL:        &entry.URL,
		Title:      entry.Title,
		PriceEUR:   entry.PriceEUR,
		Km:         entry.Km,
		EzText:     entry.EzText,
		Location:   entry.Location,
		PostalCode: entry.PostalCode,
		City:       entry.City,
		PostedAt:   entry.PostedAt,
		Pics:       entry.Pics,
	}
}

func mergeDetail(patch *database.ListingPatch, detail *scrape.Detail) {
	patch.Brand = detail.Brand
	patch.Model = detail.Model
	patch.FirstReg = detail.FirstReg
	patch.Fuel = detail.Fuel
	patch.PowerPS = detail.PowerPS
	patch.Gearbox = detail.Gearbox
	patch.Doors = detail.Doors
	patch.HuUntil = detail.HuUntil
	patch.EmissionClass = detail.EmissionClass
	patch.Color = detail.Color
	patch.Upholstery = detail.Upholstery
	patch.Description = detail.Description

	// The detail page's odometer value is the authoritative one.
	if detail.Km != nil {
		patch.Km = detail.Km
	}

	if len(detail.ImageURLs) > 0 {
		if encoded, err := json.Marshal(detail.ImageURLs); err == nil {
			s := string(encoded)
			patch.ImageURLsJSON = &s
		}
	}
}
