package scrape

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// detailFieldMap translates the German attribute labels of an ad detail page
// to listing fields. Unknown labels are skipped.
var detailFieldMap = map[string]string{
	"marke":                    "brand",
	"modell":                   "model",
	"kilometerstand":           "km",
	"erstzulassung":            "first_reg",
	"kraftstoffart":            "fuel",
	"leistung":                 "power_ps",
	"getriebe":                 "gearbox",
	"anzahl türen":             "doors",
	"hu bis":                   "hu_until",
	"schadstoffklasse":         "emission_class",
	"außenfarbe":               "color",
	"material innenausstattung": "upholstery",
}

var (
	powerPSRe = regexp.MustCompile(`(?i)(\d{2,3})\s*ps`)
	powerKWRe = regexp.MustCompile(`(?i)(\d{2,3})\s*kW`)
)

// ParseDetailPage extracts the secondary structured fields, the free-text
// description and the image gallery from a single ad page.
func ParseDetailPage(html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page: %w", err)
	}

	detail := &Detail{}

	doc.Find("#viewad-details li.addetailslist--detail").Each(func(_ int, li *goquery.Selection) {
		valueEl := li.Find(".addetailslist--detail--value").First()
		value := collapseSpace(valueEl.Text())
		label := strings.ToLower(collapseSpace(li.Contents().Not(".addetailslist--detail--value").Text()))

		key, ok := detailFieldMap[label]
		if !ok {
			return
		}
		detail.setField(key, value)
	})

	if description := collapseDescription(doc); description != "" {
		detail.Description = &description
	} else if extracted := extractDescription(html); extracted != "" {
		detail.Description = &extracted
	}

	detail.ImageURLs = extractImageURLs(doc)

	return detail, nil
}

func (d *Detail) setField(key, value string) {
	switch key {
	case "km":
		d.Km = NormInt(value)
	case "power_ps":
		d.PowerPS = parsePower(value)
	case "brand":
		d.Brand = optional(value)
	case "model":
		d.Model = optional(value)
	case "first_reg":
		d.FirstReg = optional(value)
	case "fuel":
		d.Fuel = optional(value)
	case "gearbox":
		d.Gearbox = optional(value)
	case "doors":
		d.Doors = optional(value)
	case "hu_until":
		d.HuUntil = optional(value)
	case "emission_class":
		d.EmissionClass = optional(value)
	case "color":
		d.Color = optional(value)
	case "upholstery":
		d.Upholstery = optional(value)
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// parsePower reads "184 PS" directly, or converts "100 kW" at 1.3596 PS/kW.
func parsePower(value string) *int {
	if m := powerPSRe.FindStringSubmatch(value); m != nil {
		ps, _ := strconv.Atoi(m[1])
		return &ps
	}
	if m := powerKWRe.FindStringSubmatch(value); m != nil {
		kw, _ := strconv.Atoi(m[1])
		ps := int(math.Round(float64(kw) * 1.3596))
		return &ps
	}
	return nil
}

func collapseDescription(doc *goquery.Document) string {
	el := doc.Find("#viewad-description-text").First()
	if el.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// extractDescription is the fallback when the known description container is
// missing: run a readability pass over the whole page.
func extractDescription(html string) string {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		slog.Debug("Readability extraction failed", "error", err)
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

func extractImageURLs(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var urls []string

	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	}

	doc.Find(".galleryimage-element img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			add(src)
		} else if src, ok := img.Attr("data-imgsrc"); ok {
			add(src)
		}
	})

	if len(urls) == 0 {
		if src, ok := doc.Find("#viewad-image").First().Attr("src"); ok {
			add(src)
		}
	}

	return urls
}
