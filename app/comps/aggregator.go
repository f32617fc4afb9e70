package comps

import (
	"context"
	"log/slog"
	"math"

	"github.com/WebsitesPages/Autoscan/app/fetch"
)

// Aggregator runs the marketplace-independent stats algorithm:
// fetch → block check → announced count → prices → conditional page 2 →
// truncate to announced count → count + arithmetic mean.
type Aggregator struct {
	fetcher fetch.Fetcher
}

func NewAggregator(fetcher fetch.Fetcher) *Aggregator {
	return &Aggregator{fetcher: fetcher}
}

func (a *Aggregator) FetchStats(ctx context.Context, provider Provider, url string) Stats {
	result, err := a.fetcher.Fetch(ctx, url, provider.Headers())
	if err != nil {
		slog.Warn("Stats fetch failed", "provider", provider.Name(), "url", url, "error", err)
		return Stats{OK: false, URL: url, Error: "network error"}
	}

	if provider.DetectBlock(result.StatusCode, result.Body) {
		slog.Warn("Stats fetch blocked", "provider", provider.Name(), "url", url, "status", result.StatusCode)
		return Stats{OK: false, URL: url, Error: "blocked"}
	}

	announced := provider.ExtractCount(result.Body)
	prices := provider.ExtractPrices(result.Body)

	// The first page under-reports relative to the announced count: fetch the
	// second page where the site paginates.
	if announced > 0 && len(prices) < announced {
		if pageTwo := provider.PageTwoURL(url); pageTwo != "" {
			result2, err := a.fetcher.Fetch(ctx, pageTwo, provider.Headers())
			if err != nil {
				slog.Warn("Stats page-2 fetch failed", "provider", provider.Name(), "url", pageTwo, "error", err)
			} else if !provider.DetectBlock(result2.StatusCode, result2.Body) {
				prices = append(prices, provider.ExtractPrices(result2.Body)...)
			}
		}
	}

	// Duplicate or overlapping entries across pages must not skew the mean.
	if announced > 0 && len(prices) > announced {
		prices = prices[:announced]
	}

	stats := Stats{OK: true, Count: len(prices), URL: url}
	if len(prices) > 0 {
		sum := 0
		for _, p := range prices {
			sum += p
		}
		stats.AvgPriceEUR = int(math.Round(float64(sum) / float64(len(prices))))
	}

	slog.Debug("Stats computed", "provider", provider.Name(), "announced", announced, "count", stats.Count, "avg", stats.AvgPriceEUR)

	return stats
}
