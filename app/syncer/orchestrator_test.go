package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/WebsitesPages/Autoscan/app/config"
	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/fetch"
	"github.com/WebsitesPages/Autoscan/app/scrape"
)

type fakeFetcher struct {
	pages    map[string]*fetch.Result
	requests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ fetch.Headers) (*fetch.Result, error) {
	f.requests = append(f.requests, url)
	if result, ok := f.pages[url]; ok {
		return result, nil
	}
	return &fetch.Result{Body: "not found", StatusCode: 404}, nil
}

func newTestRepo(t *testing.T) database.ListingRepository {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return database.NewListingRepository(db)
}

func srpArticle(id, title, price string) string {
	return fmt.Sprintf(`<article class="aditem" data-adid="%s" data-href="/s-anzeige/x/%s">
  <h2><a class="ellipsis" href="/s-anzeige/x/%s">%s</a></h2>
  <p class="aditem-main--middle--price-shipping--price">%s</p>
</article>`, id, id, id, title, price)
}

func detailPage(brand, model string) string {
	return fmt.Sprintf(`<html><body><div id="viewad-details"><ul>
  <li class="addetailslist--detail">Marke<span class="addetailslist--detail--value">%s</span></li>
  <li class="addetailslist--detail">Modell<span class="addetailslist--detail--value">%s</span></li>
</ul></div></body></html>`, brand, model)
}

func testProfile() config.Profile {
	return config.Profile{
		Name:     "test",
		AreaSlug: "bayern",
		AreaCode: "l5510",
		RadiusKM: 100,
		Pages:    1,
	}
}

func testOrchestrator(repo database.ListingRepository, fetcher fetch.Fetcher, profiles ...config.Profile) *Orchestrator {
	return NewOrchestrator(repo, fetcher, profiles, rate.NewLimiter(rate.Inf, 1))
}

func TestSyncOnce(t *testing.T) {
	repo := newTestRepo(t)
	profile := testProfile()
	searchURL := scrape.BuildSearchURL(profile, 1)

	srp := "<html><body>" +
		srpArticle("1001", "VW Golf 1.6 TDI", "9.500 €") +
		srpArticle("1002", "Opel Corsa", "4.200 €") +
		"</body></html>"

	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		searchURL: {StatusCode: 200, Body: srp},
		scrape.BaseURL + "/s-anzeige/x/1001": {StatusCode: 200, Body: detailPage("Volkswagen", "Golf")},
		scrape.BaseURL + "/s-anzeige/x/1002": {StatusCode: 200, Body: detailPage("Opel", "Corsa")},
	}}

	seen, stored := testOrchestrator(repo, fetcher, profile).SyncOnce(context.Background())

	if seen != 2 || stored != 2 {
		t.Fatalf("SyncOnce = (%d, %d), want (2, 2)", seen, stored)
	}

	l, err := repo.GetListing("1001")
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if l == nil {
		t.Fatal("listing 1001 not stored")
	}
	if l.Title != "VW Golf 1.6 TDI" {
		t.Errorf("title = %q", l.Title)
	}
	if l.PriceEUR == nil || *l.PriceEUR != 9500 {
		t.Errorf("price = %v, want 9500", l.PriceEUR)
	}
	if l.Brand != "Volkswagen" || l.Model != "Golf" {
		t.Errorf("detail fields = (%q, %q), want (Volkswagen, Golf)", l.Brand, l.Model)
	}
}

func TestSyncOnceCountsOnlyChanges(t *testing.T) {
	repo := newTestRepo(t)
	profile := testProfile()
	searchURL := scrape.BuildSearchURL(profile, 1)

	srp := func(golfPrice string) string {
		return "<html><body>" +
			srpArticle("1001", "VW Golf", golfPrice) +
			srpArticle("1002", "Opel Corsa", "4.200 €") +
			"</body></html>"
	}
	detail1 := detailPage("Volkswagen", "Golf")
	detail2 := detailPage("Opel", "Corsa")

	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		searchURL: {StatusCode: 200, Body: srp("9.500 €")},
		scrape.BaseURL + "/s-anzeige/x/1001": {StatusCode: 200, Body: detail1},
		scrape.BaseURL + "/s-anzeige/x/1002": {StatusCode: 200, Body: detail2},
	}}
	orchestrator := testOrchestrator(repo, fetcher, profile)

	if seen, stored := orchestrator.SyncOnce(context.Background()); seen != 2 || stored != 2 {
		t.Fatalf("first pass = (%d, %d), want (2, 2)", seen, stored)
	}

	// Second pass: identical data writes nothing.
	if seen, stored := orchestrator.SyncOnce(context.Background()); seen != 2 || stored != 0 {
		t.Errorf("identical pass = (%d, %d), want (2, 0)", seen, stored)
	}

	// Third pass: one price drops, that listing alone counts as stored and
	// gains a second price observation.
	fetcher.pages[searchURL] = &fetch.Result{StatusCode: 200, Body: srp("8.900 €")}
	if seen, stored := orchestrator.SyncOnce(context.Background()); seen != 2 || stored != 1 {
		t.Errorf("price-change pass = (%d, %d), want (2, 1)", seen, stored)
	}

	history, err := repo.GetPriceHistory("1001")
	if err != nil {
		t.Fatalf("GetPriceHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 price observations, got %d", len(history))
	}
	if history[len(history)-1].PriceEUR != 8900 {
		t.Errorf("latest observation = %d, want 8900", history[len(history)-1].PriceEUR)
	}
}

func TestSyncOnceTwoPageScenario(t *testing.T) {
	repo := newTestRepo(t)
	profile := testProfile()
	profile.Pages = 2

	pageOneURL := scrape.BuildSearchURL(profile, 1)
	pageTwoURL := scrape.BuildSearchURL(profile, 2)

	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		pageOneURL: {StatusCode: 200, Body: "<html><body>" +
			srpArticle("1001", "VW Golf", "9.500 €") +
			srpArticle("1002", "Opel Corsa", "4.200 €") +
			"</body></html>"},
		pageTwoURL: {StatusCode: 200, Body: "<html></html>"},
		scrape.BaseURL + "/s-anzeige/x/1001": {StatusCode: 200, Body: detailPage("Volkswagen", "Golf")},
		scrape.BaseURL + "/s-anzeige/x/1002": {StatusCode: 200, Body: detailPage("Opel", "Corsa")},
		scrape.BaseURL + "/s-anzeige/x/1003": {StatusCode: 200, Body: detailPage("Ford", "Focus")},
		scrape.BaseURL + "/s-anzeige/x/1004": {StatusCode: 200, Body: detailPage("Seat", "Leon")},
	}}
	orchestrator := testOrchestrator(repo, fetcher, profile)

	if seen, stored := orchestrator.SyncOnce(context.Background()); seen != 2 || stored != 2 {
		t.Fatalf("seed pass = (%d, %d), want (2, 2)", seen, stored)
	}

	// Next pass: page 1 repeats one unchanged ad and drops one price, page 2
	// brings two unseen ads.
	fetcher.pages[pageOneURL] = &fetch.Result{StatusCode: 200, Body: "<html><body>" +
		srpArticle("1001", "VW Golf", "9.500 €") +
		srpArticle("1002", "Opel Corsa", "3.900 €") +
		"</body></html>"}
	fetcher.pages[pageTwoURL] = &fetch.Result{StatusCode: 200, Body: "<html><body>" +
		srpArticle("1003", "Ford Focus", "7.800 €") +
		srpArticle("1004", "Seat Leon", "10.300 €") +
		"</body></html>"}

	seen, stored := orchestrator.SyncOnce(context.Background())
	if seen != 4 {
		t.Errorf("seen = %d, want 4", seen)
	}
	if stored != 3 {
		t.Errorf("stored = %d, want 3", stored)
	}

	// The price drop appended exactly one observation on top of the insert one.
	history, err := repo.GetPriceHistory("1002")
	if err != nil {
		t.Fatalf("GetPriceHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 price observations for 1002, got %d", len(history))
	}
	if history[1].PriceEUR != 3900 {
		t.Errorf("latest observation = %d, want 3900", history[1].PriceEUR)
	}

	// The unchanged ad stays at its single insert observation.
	if history, _ := repo.GetPriceHistory("1001"); len(history) != 1 {
		t.Errorf("expected 1 price observation for 1001, got %d", len(history))
	}

	if count, err := repo.GetListingCount(); err != nil || count != 4 {
		t.Errorf("listing count = %d (err %v), want 4", count, err)
	}
}

func TestSyncOnceSurvivesDetailFailure(t *testing.T) {
	repo := newTestRepo(t)
	profile := testProfile()
	searchURL := scrape.BuildSearchURL(profile, 1)

	srp := "<html><body>" + srpArticle("1001", "VW Golf", "9.500 €") + "</body></html>"

	// No detail page registered: the fetch returns 404 and only the card
	// data is stored.
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		searchURL: {StatusCode: 200, Body: srp},
	}}

	seen, stored := testOrchestrator(repo, fetcher, profile).SyncOnce(context.Background())

	if seen != 1 || stored != 1 {
		t.Fatalf("SyncOnce = (%d, %d), want (1, 1)", seen, stored)
	}

	l, err := repo.GetListing("1001")
	if err != nil || l == nil {
		t.Fatalf("GetListing: %v, %v", l, err)
	}
	if l.Title != "VW Golf" || l.Brand != "" {
		t.Errorf("card-only listing = (%q, %q), want title set and brand empty", l.Title, l.Brand)
	}
}

func TestSyncOnceSurvivesSearchPageFailure(t *testing.T) {
	repo := newTestRepo(t)
	profile := testProfile()
	profile.Pages = 2

	pageOne := scrape.BuildSearchURL(profile, 1)
	srp := "<html><body>" + srpArticle("1001", "VW Golf", "9.500 €") + "</body></html>"

	// Page 2 is not registered and fails with 404; page 1 results survive.
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		pageOne: {StatusCode: 200, Body: srp},
		scrape.BaseURL + "/s-anzeige/x/1001": {StatusCode: 200, Body: detailPage("Volkswagen", "Golf")},
	}}

	seen, stored := testOrchestrator(repo, fetcher, profile).SyncOnce(context.Background())

	if seen != 1 || stored != 1 {
		t.Errorf("SyncOnce = (%d, %d), want (1, 1)", seen, stored)
	}
}

func TestSyncOnceSkipsDisabledProfiles(t *testing.T) {
	repo := newTestRepo(t)
	disabled := testProfile()
	off := false
	disabled.Enabled = &off

	fetcher := &fakeFetcher{}

	seen, stored := testOrchestrator(repo, fetcher, disabled).SyncOnce(context.Background())

	if seen != 0 || stored != 0 {
		t.Errorf("SyncOnce = (%d, %d), want (0, 0)", seen, stored)
	}
	if len(fetcher.requests) != 0 {
		t.Errorf("disabled profile must not be fetched, got %v", fetcher.requests)
	}
}

func TestGuardCooldown(t *testing.T) {
	repo := newTestRepo(t)
	fetcher := &fakeFetcher{}
	orchestrator := testOrchestrator(repo, fetcher, testProfile())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	guard := NewGuard(orchestrator, 8*time.Second)
	guard.nowFn = func() time.Time { return now }

	if result := guard.Run(context.Background()); result.Reason != "" {
		t.Fatalf("first run suppressed: %s", result.Reason)
	}
	requestsAfterFirst := len(fetcher.requests)

	// Within the cooldown window the trigger is a benign no-op: ok with
	// zero counts, and no network fetch.
	now = now.Add(3 * time.Second)
	result := guard.Run(context.Background())
	if !result.OK || result.Changed || result.Seen != 0 || result.Stored != 0 {
		t.Fatalf("cooldown run = %+v, want ok with zero counts", result)
	}
	if result.Reason != "cooldown" {
		t.Errorf("reason = %q, want %q", result.Reason, "cooldown")
	}
	if len(fetcher.requests) != requestsAfterFirst {
		t.Error("cooldown run performed network fetches")
	}

	now = now.Add(10 * time.Second)
	if result := guard.Run(context.Background()); result.Reason != "" {
		t.Errorf("run after cooldown suppressed: %s", result.Reason)
	}
}

func TestGuardConcurrentTrigger(t *testing.T) {
	repo := newTestRepo(t)
	fetcher := &fakeFetcher{}
	guard := NewGuard(testOrchestrator(repo, fetcher, testProfile()), 0)

	guard.mu.Lock()
	defer guard.mu.Unlock()

	result := guard.Run(context.Background())
	if !result.OK || result.Changed || result.Seen != 0 || result.Stored != 0 {
		t.Fatalf("concurrent trigger = %+v, want ok with zero counts", result)
	}
	if len(fetcher.requests) != 0 {
		t.Error("suppressed trigger performed network fetches")
	}
}

func TestGuardChangedFlag(t *testing.T) {
	repo := newTestRepo(t)
	profile := testProfile()
	searchURL := scrape.BuildSearchURL(profile, 1)

	srp := "<html><body>" + srpArticle("1001", "VW Golf", "9.500 €") + "</body></html>"
	fetcher := &fakeFetcher{pages: map[string]*fetch.Result{
		searchURL: {StatusCode: 200, Body: srp},
	}}

	guard := NewGuard(testOrchestrator(repo, fetcher, profile), 0)

	result := guard.Run(context.Background())
	if !result.OK || !result.Changed || result.Stored != 1 {
		t.Fatalf("first run = %+v, want ok, changed, stored 1", result)
	}

	result = guard.Run(context.Background())
	if !result.OK || result.Changed || result.Stored != 0 {
		t.Errorf("identical run = %+v, want ok, unchanged, stored 0", result)
	}
}
