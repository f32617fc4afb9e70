package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/WebsitesPages/Autoscan/app/comps"
	"github.com/WebsitesPages/Autoscan/app/database"
)

func NewHandler(repo database.ListingRepository, guard SyncTrigger,
	aggregator *comps.Aggregator, region comps.Region) *Handler {
	return &Handler{
		repo:          repo,
		guard:         guard,
		aggregator:    aggregator,
		region:        region,
		kleinanzeigen: comps.NewKleinanzeigenProvider(),
		autoscout:     comps.NewAutoscoutProvider(),
		carwow:        comps.NewCarwowProvider(),
		mobile:        comps.NewMobileProvider(),
	}
}

func (h *Handler) TriggerSync(c *gin.Context) {
	result := h.guard.Run(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListListings(c *gin.Context) {
	limit := 200
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	listings, err := h.repo.GetListings(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_listings", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(listings), "listings": listings})
}

func (h *Handler) GetListingByID(c *gin.Context) {
	listing, ok := h.loadListing(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) GetListingPrices(c *gin.Context) {
	listing, ok := h.loadListing(c)
	if !ok {
		return
	}

	history, err := h.repo.GetPriceHistory(listing.ID)
	if err != nil {
		slog.Error("Database error", "operation", "get_price_history", "id", listing.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": listing.ID, "prices": history})
}

// GetSimilarStats computes comparable-price stats on Kleinanzeigen for the
// region the crawler itself searches in.
func (h *Handler) GetSimilarStats(c *gin.Context) {
	listing, ok := h.requireListing(c)
	if !ok {
		return
	}
	h.respondStats(c, h.kleinanzeigen, comps.BuildSimilarSearchURL(listing, h.region))
}

func (h *Handler) GetAutoscoutStats(c *gin.Context) {
	listing, ok := h.requireListing(c)
	if !ok {
		return
	}
	h.respondStats(c, h.autoscout, comps.BuildAutoscoutSearchURL(listing))
}

func (h *Handler) GetCarwowStats(c *gin.Context) {
	listing, ok := h.requireListing(c)
	if !ok {
		return
	}
	h.respondStats(c, h.carwow, comps.BuildCarwowSearchURL(listing))
}

// GetCarwowStatsByURL computes stats for a caller-provided Carwow stock URL,
// bypassing the listing-derived search.
func (h *Handler) GetCarwowStatsByURL(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}
	// Wrong-site URLs answer 200 with a structured error so clients can
	// render the message instead of handling a transport failure.
	if !strings.Contains(strings.ToLower(url), "carwow.de") {
		c.JSON(http.StatusOK, comps.Stats{OK: false, URL: url, Error: "not a carwow.de url"})
		return
	}

	c.JSON(http.StatusOK, h.aggregator.FetchStats(c.Request.Context(), h.carwow, url))
}

func (h *Handler) GetMobileStats(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}
	if !comps.IsMobileSearchURL(url) {
		c.JSON(http.StatusOK, comps.Stats{OK: false, URL: url, Error: "not a mobile.de search url"})
		return
	}

	c.JSON(http.StatusOK, h.aggregator.FetchStats(c.Request.Context(), h.mobile, url))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.repo.GetListingCount(); err == nil {
		health["listings"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if count, err := h.repo.GetListingCount(); err == nil {
		stats["listings"] = count
	}
	if count, err := h.repo.GetPriceObservationCount(); err == nil {
		stats["price_observations"] = count
	}

	c.JSON(http.StatusOK, stats)
}

// loadListing resolves the :id path parameter; requireListing resolves the
// ?id= query parameter the stats endpoints use.
func (h *Handler) loadListing(c *gin.Context) (*database.Listing, bool) {
	return h.fetchListing(c, c.Param("id"))
}

func (h *Handler) requireListing(c *gin.Context) (*database.Listing, bool) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return nil, false
	}
	return h.fetchListing(c, id)
}

func (h *Handler) fetchListing(c *gin.Context, id string) (*database.Listing, bool) {
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return nil, false
	}

	listing, err := h.repo.GetListing(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return nil, false
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return nil, false
	}

	return listing, true
}

// respondStats runs the aggregation for a built search URL. An empty URL
// means the listing lacks brand or model: that is an empty result, not an
// error.
func (h *Handler) respondStats(c *gin.Context, provider comps.Provider, url string) {
	if url == "" {
		c.JSON(http.StatusOK, comps.Stats{OK: true})
		return
	}
	c.JSON(http.StatusOK, h.aggregator.FetchStats(c.Request.Context(), provider, url))
}
