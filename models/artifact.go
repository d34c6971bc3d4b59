package models

import "time"

// SpecDocument is the persisted output of parsing one spec-sheet PDF.
type SpecDocument struct {
	ModelKey   string    `json:"model_key"`
	SourcePDF  string    `json:"source_pdf"`
	Specs      SpecMap   `json:"specifications"`
	TextLength int       `json:"text_length"`
	ParsedAt   time.Time `json:"parsed_at"`
}

// LiveOffer is a raw price/availability observation as scraped from a PDP,
// before normalization. Price and rating fields stay textual here; a missing
// price is an empty string, never a fabricated zero.
type LiveOffer struct {
	SourceURL        string   `json:"source_url"`
	PriceText        string   `json:"price,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	Availability     string   `json:"availability,omitempty"`
	ShippingETA      string   `json:"shipping_eta,omitempty"`
	PromoBadges      []string `json:"promo_badges,omitempty"`
	Seller           string   `json:"seller,omitempty"`
	AggregateRating  string   `json:"aggregate_rating,omitempty"`
	AggregateReviews string   `json:"aggregate_review_count,omitempty"`
	FetchedAt        string   `json:"fetched_at"`
}

// LiveReview is one scraped review card.
type LiveReview struct {
	SourceURL string `json:"source_url"`
	Rating    string `json:"rating,omitempty"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	Author    string `json:"author,omitempty"`
	Date      string `json:"date,omitempty"`
	FetchedAt string `json:"fetched_at"`
}

// LiveQnA is one scraped question/answer pair.
type LiveQnA struct {
	SourceURL string `json:"source_url"`
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer,omitempty"`
	FetchedAt string `json:"fetched_at"`
}

// CategoryStatus classifies the outcome of collecting one data category for
// one model, so downstream code can tell "nothing there" from "broke".
type CategoryStatus string

const (
	StatusOK     CategoryStatus = "ok"
	StatusEmpty  CategoryStatus = "empty"
	StatusFailed CategoryStatus = "failed"
)

// CategoryResult carries the per-category collection outcome alongside any
// partial data that survived.
type CategoryResult struct {
	Status CategoryStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
}

// Failed reports whether the category collection failed outright.
func (r CategoryResult) Failed() bool { return r.Status == StatusFailed }

// LiveStatus is the persisted per-category outcome for one model, written
// alongside the live data files so ingestion can tell an empty category from
// a failed one.
type LiveStatus struct {
	Offer   CategoryResult `json:"offer"`
	Reviews CategoryResult `json:"reviews"`
	QnA     CategoryResult `json:"qna"`
}

// CollectResult is everything the live collector produced for one model.
type CollectResult struct {
	ModelKey string `json:"model_key"`

	Offer       *LiveOffer     `json:"offer,omitempty"`
	OfferStatus CategoryResult `json:"offer_status"`

	Reviews      []LiveReview   `json:"reviews,omitempty"`
	ReviewStatus CategoryResult `json:"review_status"`

	QnA       []LiveQnA      `json:"qna,omitempty"`
	QnAStatus CategoryResult `json:"qna_status"`
}

// IngestReport summarizes one reconciliation run.
type IngestReport struct {
	LaptopsUpserted   int
	OffersInserted    int
	ReviewsInserted   int
	QnAInserted       int
	SkippedCategories int
	FailedCategories  int
	IdentityConflicts []string
}
