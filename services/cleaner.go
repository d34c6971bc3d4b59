package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"laptop-intelligence/models"
	"laptop-intelligence/utils"
)

var (
	// moneyRegexp captures a numeric price value, commas stripped first
	moneyRegexp = regexp.MustCompile(`[0-9][0-9]*(?:\.[0-9]{1,2})?`)
	// outOfFiveRegexp captures "4.5 out of 5" style ratings
	outOfFiveRegexp = regexp.MustCompile(`(?i)([0-5](?:\.\d{1,2})?)\s*out of\s*5`)
	// bareRatingRegexp captures a lone numeric rating in the 0.0–5.0 range
	bareRatingRegexp = regexp.MustCompile(`\b([0-5](?:\.\d{1,2})?)\b`)
)

// availableStates maps scraped availability codes to an in-stock flag.
// Anything not listed is treated as not available rather than guessed.
var availableStates = map[string]bool{
	"instock":             true,
	"in_stock":            true,
	"customizable":        true,
	"preorder":            true,
	"limitedavailability": true,
}

// Cleaner normalizes raw live-data records into store rows. It never invents
// values: a record without a usable price or rating is dropped, not zeroed.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// NormalizeOffer converts a scraped offer into an Offer row. ok is false
// when no price could be parsed, the missing-offer condition.
func (c *Cleaner) NormalizeOffer(laptopID int64, raw models.LiveOffer, fallbackSeller string) (*models.Offer, bool) {
	price, ok := c.ParseMoney(raw.PriceText)
	if !ok {
		c.logger.Warn("[cleaner] Offer from %s has no parsable price (%q) — dropped",
			raw.SourceURL, raw.PriceText)
		return nil, false
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = c.ParseCurrency(raw.PriceText)
	}
	if currency == "" {
		currency = "USD"
	}

	seller := normalizeText(raw.Seller)
	if seller == "" {
		seller = fallbackSeller
	}

	return &models.Offer{
		LaptopID:    laptopID,
		Price:       price,
		Currency:    currency,
		IsAvailable: c.ParseAvailability(raw.Availability),
		ShippingETA: normalizeText(raw.ShippingETA),
		Promotions:  normalizeList(raw.PromoBadges),
		Seller:      seller,
		ObservedAt:  c.ParseTimestamp(raw.FetchedAt),
	}, true
}

// NormalizeReview converts a scraped review card into a Review row. ok is
// false when no valid rating is present; a zero rating is never synthesized.
func (c *Cleaner) NormalizeReview(laptopID int64, raw models.LiveReview) (*models.Review, bool) {
	rating, ok := c.ParseRating(raw.Rating)
	if !ok {
		return nil, false
	}

	text := normalizeText(raw.Body)
	if title := normalizeText(raw.Title); title != "" && text != "" {
		text = title + " — " + text
	} else if title := normalizeText(raw.Title); title != "" {
		text = title
	}

	observed := c.ParseTimestamp(raw.Date)
	if observed.IsZero() {
		observed = c.ParseTimestamp(raw.FetchedAt)
	}

	author := normalizeText(raw.Author)
	if author == "" {
		author = "Anonymous"
	}

	return &models.Review{
		LaptopID:   laptopID,
		Rating:     rating,
		Text:       text,
		Author:     author,
		ObservedAt: observed,
	}, true
}

// NormalizeQnA converts a scraped question/answer pair into a QnA row. ok is
// false when the question text is empty.
func (c *Cleaner) NormalizeQnA(laptopID int64, raw models.LiveQnA) (*models.QnA, bool) {
	question := normalizeText(raw.Question)
	if question == "" {
		return nil, false
	}

	return &models.QnA{
		LaptopID:   laptopID,
		Question:   question,
		Answer:     normalizeText(raw.Answer),
		ObservedAt: c.ParseTimestamp(raw.FetchedAt),
	}, true
}

// ParseMoney extracts a price from text like "$1,299.99" or "USD 949".
func (c *Cleaner) ParseMoney(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := moneyRegexp.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil || val <= 0 {
		return 0, false
	}
	return val, true
}

// ParseCurrency recognizes currency markers in raw price text.
func (c *Cleaner) ParseCurrency(raw string) string {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(raw, "$") || strings.Contains(upper, "USD"):
		return "USD"
	case strings.Contains(raw, "€") || strings.Contains(upper, "EUR"):
		return "EUR"
	case strings.Contains(raw, "£") || strings.Contains(upper, "GBP"):
		return "GBP"
	}
	return ""
}

// ParseRating extracts a rating from "4.5 out of 5" or a bare "4.5".
// Ratings of zero or outside (0, 5] are rejected.
func (c *Cleaner) ParseRating(raw string) (float64, bool) {
	match := outOfFiveRegexp.FindStringSubmatch(raw)
	if match == nil {
		match = bareRatingRegexp.FindStringSubmatch(raw)
	}
	if len(match) < 2 {
		return 0, false
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil || val <= 0 || val > 5 {
		return 0, false
	}
	return val, true
}

// ParseAvailability maps scraped availability text to an in-stock flag.
func (c *Cleaner) ParseAvailability(raw string) bool {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "-", "")
	return availableStates[key]
}

// ParseTimestamp parses observation timestamps, preferring RFC 3339. An
// unparsable value yields the zero time for the caller to backfill.
func (c *Cleaner) ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"January 2, 2006",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// normalizeText strips leading/trailing whitespace and collapses internal
// whitespace.
func normalizeText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := normalizeText(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
