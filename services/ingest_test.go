package services

import (
	"testing"
	"time"

	"laptop-intelligence/config"
	"laptop-intelligence/models"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

func testTargets() []config.Target {
	return []config.Target{
		{
			ModelKey:  "lenovo_e14_intel",
			Brand:     "Lenovo",
			ModelName: "ThinkPad E14 Gen 5 (Intel)",
			Seller:    "Lenovo",
		},
		{
			ModelKey:  "hp_probook_440",
			Brand:     "HP",
			ModelName: "ProBook 440 G11",
			Seller:    "HP",
		},
	}
}

func newTestPipeline(t *testing.T) (*Ingestor, *storage.ArtifactStore, *storage.MemoryStore) {
	t.Helper()

	dir := t.TempDir()
	artifacts, err := storage.NewArtifactStore(dir+"/specs", dir+"/live")
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	store := storage.NewMemoryStore()
	return NewIngestor(store, artifacts, utils.NewLogger()), artifacts, store
}

func seedSpec(t *testing.T, artifacts *storage.ArtifactStore, modelKey string) {
	t.Helper()

	doc := &models.SpecDocument{
		ModelKey:  modelKey,
		SourcePDF: modelKey + ".pdf",
		Specs: models.SpecMap{
			CPU: []string{"Intel Core i5-1335U"},
			RAM: []string{"16 GB DDR4"},
		},
		ParsedAt: time.Now().UTC(),
	}
	if err := artifacts.SaveSpec(doc); err != nil {
		t.Fatalf("SaveSpec(%s): %v", modelKey, err)
	}
}

func liveResult(modelKey, price, fetchedAt string) *models.CollectResult {
	return &models.CollectResult{
		ModelKey: modelKey,
		Offer: &models.LiveOffer{
			SourceURL:    "https://example.com/" + modelKey,
			PriceText:    price,
			Availability: "InStock",
			FetchedAt:    fetchedAt,
		},
		OfferStatus: models.CategoryResult{Status: models.StatusOK},
		Reviews: []models.LiveReview{
			{
				Rating:    "4.0 out of 5",
				Body:      "Solid machine for the price.",
				Author:    "sam",
				Date:      "2025-06-15",
				FetchedAt: fetchedAt,
			},
		},
		ReviewStatus: models.CategoryResult{Status: models.StatusOK},
		QnA: []models.LiveQnA{
			{
				Question:  "Does it ship with Windows 11 Pro?",
				Answer:    "Yes.",
				FetchedAt: fetchedAt,
			},
		},
		QnAStatus: models.CategoryResult{Status: models.StatusOK},
	}
}

func TestRunIngestsAllCategories(t *testing.T) {
	ing, artifacts, store := newTestPipeline(t)
	targets := testTargets()

	seedSpec(t, artifacts, "lenovo_e14_intel")
	if err := artifacts.SaveLive(map[string]*models.CollectResult{
		"lenovo_e14_intel": liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z"),
	}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.LaptopsUpserted != 1 {
		t.Errorf("LaptopsUpserted = %d, want 1", report.LaptopsUpserted)
	}
	if report.OffersInserted != 1 {
		t.Errorf("OffersInserted = %d, want 1", report.OffersInserted)
	}
	if report.ReviewsInserted != 1 {
		t.Errorf("ReviewsInserted = %d, want 1", report.ReviewsInserted)
	}
	if report.QnAInserted != 1 {
		t.Errorf("QnAInserted = %d, want 1", report.QnAInserted)
	}

	laptop, err := store.LaptopByIdentity("Lenovo", "ThinkPad E14 Gen 5 (Intel)")
	if err != nil {
		t.Fatalf("LaptopByIdentity: %v", err)
	}
	offer, err := store.LatestOffer(laptop.ID)
	if err != nil || offer == nil {
		t.Fatalf("LatestOffer: %v, %v", offer, err)
	}
	if offer.Price != 949.99 {
		t.Errorf("offer price = %v, want 949.99", offer.Price)
	}
	if offer.Seller != "Lenovo" {
		t.Errorf("offer seller = %q, want fallback Lenovo", offer.Seller)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ing, artifacts, store := newTestPipeline(t)
	targets := testTargets()

	seedSpec(t, artifacts, "lenovo_e14_intel")
	if err := artifacts.SaveLive(map[string]*models.CollectResult{
		"lenovo_e14_intel": liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z"),
	}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	if _, err := ing.Run(targets); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Same artifacts again: identity is re-upserted, no new facts appear.
	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.OffersInserted != 0 {
		t.Errorf("second run OffersInserted = %d, want 0", report.OffersInserted)
	}
	if report.ReviewsInserted != 0 {
		t.Errorf("second run ReviewsInserted = %d, want 0", report.ReviewsInserted)
	}
	if report.QnAInserted != 0 {
		t.Errorf("second run QnAInserted = %d, want 0", report.QnAInserted)
	}

	laptops, _ := store.ListLaptops(storage.LaptopFilter{})
	if len(laptops) != 1 {
		t.Fatalf("laptop count after two runs = %d, want 1", len(laptops))
	}
	offers, _ := store.OffersFor(laptops[0].ID)
	if len(offers) != 1 {
		t.Errorf("offer count after two runs = %d, want 1", len(offers))
	}
}

func TestRunAppendsOnlyNewObservations(t *testing.T) {
	ing, artifacts, store := newTestPipeline(t)
	targets := testTargets()

	seedSpec(t, artifacts, "lenovo_e14_intel")
	if err := artifacts.SaveLive(map[string]*models.CollectResult{
		"lenovo_e14_intel": liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z"),
	}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}
	if _, err := ing.Run(targets); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// A later observation of the same model at a new price.
	if err := artifacts.SaveLive(map[string]*models.CollectResult{
		"lenovo_e14_intel": liveResult("lenovo_e14_intel", "$899.99", "2025-11-03T10:30:00Z"),
	}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.OffersInserted != 1 {
		t.Errorf("OffersInserted = %d, want exactly the new observation", report.OffersInserted)
	}

	laptop, _ := store.LaptopByIdentity("Lenovo", "ThinkPad E14 Gen 5 (Intel)")
	offers, _ := store.OffersFor(laptop.ID)
	if len(offers) != 2 {
		t.Fatalf("offer history length = %d, want 2", len(offers))
	}
	if offers[0].Price != 899.99 {
		t.Errorf("latest offer price = %v, want 899.99", offers[0].Price)
	}
}

func TestRunKeepsDistinctAnonymousReviews(t *testing.T) {
	ing, artifacts, store := newTestPipeline(t)
	targets := testTargets()

	seedSpec(t, artifacts, "lenovo_e14_intel")

	// Two distinct reviews from one page scrape: no author, relative dates
	// the cleaner cannot parse, so both fall back to the page's fetch time.
	res := liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z")
	res.Reviews = []models.LiveReview{
		{Rating: "5", Body: "Battery life is superb.", Date: "2 months ago", FetchedAt: "2025-11-02T10:30:00Z"},
		{Rating: "2", Body: "Screen flickers at low brightness.", Date: "3 weeks ago", FetchedAt: "2025-11-02T10:30:00Z"},
	}
	if err := artifacts.SaveLive(map[string]*models.CollectResult{"lenovo_e14_intel": res}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ReviewsInserted != 2 {
		t.Errorf("ReviewsInserted = %d, want 2 distinct observations", report.ReviewsInserted)
	}

	laptop, _ := store.LaptopByIdentity("Lenovo", "ThinkPad E14 Gen 5 (Intel)")
	reviews, _ := store.ReviewsFor(laptop.ID)
	if len(reviews) != 2 {
		t.Fatalf("stored reviews = %d, want 2", len(reviews))
	}

	// Re-running the same artifact is still a no-op.
	report, err = ing.Run(targets)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.ReviewsInserted != 0 {
		t.Errorf("second run ReviewsInserted = %d, want 0", report.ReviewsInserted)
	}
}

func TestRunSkipsEmptyCategories(t *testing.T) {
	ing, artifacts, _ := newTestPipeline(t)
	targets := testTargets()

	seedSpec(t, artifacts, "lenovo_e14_intel")

	res := liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z")
	res.Reviews = nil
	res.ReviewStatus = models.CategoryResult{Status: models.StatusEmpty}
	if err := artifacts.SaveLive(map[string]*models.CollectResult{"lenovo_e14_intel": res}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ReviewsInserted != 0 {
		t.Errorf("ReviewsInserted = %d, want 0", report.ReviewsInserted)
	}
	if report.SkippedCategories == 0 {
		t.Error("empty review category should be counted as skipped")
	}
	if report.OffersInserted != 1 {
		t.Errorf("OffersInserted = %d, want 1 despite missing reviews", report.OffersInserted)
	}
}

func TestRunCountsFailedCategories(t *testing.T) {
	ing, artifacts, _ := newTestPipeline(t)
	targets := testTargets()

	seedSpec(t, artifacts, "lenovo_e14_intel")

	// Review collection broke outright; offers and Q&A came through.
	res := liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z")
	res.Reviews = nil
	res.ReviewStatus = models.CategoryResult{Status: models.StatusFailed, Reason: "all sources failed"}
	if err := artifacts.SaveLive(map[string]*models.CollectResult{"lenovo_e14_intel": res}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FailedCategories != 1 {
		t.Errorf("FailedCategories = %d, want 1", report.FailedCategories)
	}
	if report.SkippedCategories != 0 {
		t.Errorf("SkippedCategories = %d, want 0 — a failed category is not an empty one", report.SkippedCategories)
	}
	if report.OffersInserted != 1 || report.QnAInserted != 1 {
		t.Errorf("offers=%d qna=%d, want the surviving categories ingested",
			report.OffersInserted, report.QnAInserted)
	}
}

func TestRunReportsIdentityConflictOnce(t *testing.T) {
	ing, artifacts, store := newTestPipeline(t)
	targets := testTargets()

	// Live data for a model whose spec never parsed: no laptop row exists.
	if err := artifacts.SaveLive(map[string]*models.CollectResult{
		"lenovo_e14_intel": liveResult("lenovo_e14_intel", "$949.99", "2025-11-02T10:30:00Z"),
	}); err != nil {
		t.Fatalf("SaveLive: %v", err)
	}

	report, err := ing.Run(targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.IdentityConflicts) != 1 || report.IdentityConflicts[0] != "lenovo_e14_intel" {
		t.Errorf("IdentityConflicts = %v, want exactly one entry for lenovo_e14_intel",
			report.IdentityConflicts)
	}
	if report.OffersInserted != 0 || report.ReviewsInserted != 0 || report.QnAInserted != 0 {
		t.Error("conflicting live data must not be ingested")
	}

	laptops, _ := store.ListLaptops(storage.LaptopFilter{})
	if len(laptops) != 0 {
		t.Errorf("laptop count = %d, want 0 — no placeholder rows", len(laptops))
	}
}
