package scrape

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/WebsitesPages/Autoscan/app/config"
)

// ParseSearchPage extracts the listing cards from a search-result page.
// Missing or drifted markup yields absent fields or a shorter result, never
// an error; only unparseable HTML fails.
func ParseSearchPage(html string, now time.Time) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var entries []Entry
	doc.Find("article.aditem[data-adid]").Each(func(_ int, article *goquery.Selection) {
		if entry := parseArticle(article, now); entry != nil {
			entries = append(entries, *entry)
		}
	})

	return entries, nil
}

func parseArticle(article *goquery.Selection, now time.Time) *Entry {
	adID, ok := article.Attr("data-adid")
	if !ok || adID == "" {
		return nil
	}

	entry := &Entry{ID: adID}

	titleLink := article.Find("h2 a.ellipsis").First()
	if title := strings.TrimSpace(titleLink.Text()); title != "" {
		entry.Title = &title
	}

	href, _ := titleLink.Attr("href")
	if href == "" {
		href, _ = article.Attr("data-href")
	}
	if strings.HasPrefix(href, "/") {
		entry.URL = BaseURL + href
	} else {
		entry.URL = href
	}

	if priceEl := article.Find(".aditem-main--middle--price-shipping--price").First(); priceEl.Length() > 0 {
		entry.PriceEUR = NormInt(priceEl.Text())
	}

	tags := article.Find(".aditem-main--bottom .simpletag")
	if tags.Length() > 0 {
		entry.Km = NormInt(tags.Eq(0).Text())
	}
	if tags.Length() > 1 {
		if ez := strings.TrimSpace(tags.Eq(1).Text()); ez != "" {
			entry.EzText = &ez
		}
	}

	if locEl := article.Find(".aditem-main--top--left").First(); locEl.Length() > 0 {
		if location := collapseSpace(locEl.Text()); location != "" {
			entry.Location = &location
			entry.PostalCode, entry.City = SplitPostalCity(location)
		}
	}

	if timeEl := article.Find(".aditem-main--top--right").First(); timeEl.Length() > 0 {
		entry.PostedAt = ParsePostedAt(collapseSpace(timeEl.Text()), now)
	}

	if picsEl := article.Find(".galleryimage--counter").First(); picsEl.Length() > 0 {
		entry.Pics = NormInt(picsEl.Text())
	}

	return entry
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BuildSearchURL assembles the crawl SRP URL for one search profile:
// https://www.kleinanzeigen.de/s-autos/<area>/anzeige:angebote/[preis:min:max/]
// [seite:2/]c216<code>r<radius>[+autos.km_i:%2C<max>]
func BuildSearchURL(profile config.Profile, page int) string {
	var path strings.Builder
	path.WriteString(BaseURL + "/s-autos/")
	if profile.AreaSlug != "" {
		path.WriteString(profile.AreaSlug + "/")
	}
	path.WriteString("anzeige:angebote/")

	if profile.PriceMin != "" || profile.PriceMax != "" {
		path.WriteString(fmt.Sprintf("preis:%s:%s/", profile.PriceMin, profile.PriceMax))
	}

	if page >= 2 {
		path.WriteString(fmt.Sprintf("seite:%d/", page))
	}

	parts := []string{fmt.Sprintf("c216%sr%d", profile.AreaCode, profile.RadiusKM)}
	if profile.KmMax != "" {
		// upper bound only
		parts = append(parts, "autos.km_i:%2C"+profile.KmMax)
	}

	return path.String() + strings.Join(parts, "+")
}
