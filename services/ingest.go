package services

import (
	"fmt"
	"time"

	"laptop-intelligence/config"
	"laptop-intelligence/models"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

// Ingestor reconciles persisted spec and live-data artifacts into the store.
// Laptop identity is upserted; time-series facts are appended. Re-running
// with unchanged artifacts changes nothing.
type Ingestor struct {
	store     storage.Store
	artifacts *storage.ArtifactStore
	cleaner   *Cleaner
	logger    *utils.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(store storage.Store, artifacts *storage.ArtifactStore, logger *utils.Logger) *Ingestor {
	return &Ingestor{
		store:     store,
		artifacts: artifacts,
		cleaner:   NewCleaner(logger),
		logger:    logger,
	}
}

// Run executes one full reconciliation pass over the given targets: specs
// first (so every fact has a laptop to reference), then live offers, reviews
// and Q&A. Per-category problems are logged and skipped; only artifact-store
// failures abort the run.
func (ing *Ingestor) Run(targets []config.Target) (*models.IngestReport, error) {
	report := &models.IngestReport{}

	statuses, err := ing.artifacts.LoadLiveStatus()
	if err != nil {
		return nil, fmt.Errorf("ingest: load status artifact: %w", err)
	}

	laptopIDs, err := ing.ingestSpecs(targets, report)
	if err != nil {
		return nil, err
	}

	if err := ing.ingestOffers(targets, laptopIDs, statuses, report); err != nil {
		return nil, err
	}
	if err := ing.ingestReviews(laptopIDs, statuses, report); err != nil {
		return nil, err
	}
	if err := ing.ingestQnA(laptopIDs, statuses, report); err != nil {
		return nil, err
	}

	return report, nil
}

// skipEmpty classifies an empty category for one model using its recorded
// collection status: a failed collection counts against FailedCategories, a
// genuinely empty one against SkippedCategories.
func (ing *Ingestor) skipEmpty(modelKey, category string, status models.CategoryResult, report *models.IngestReport) {
	if status.Failed() {
		report.FailedCategories++
		ing.logger.Warn("[ingest] %s collection failed for %s: %s", category, modelKey, status.Reason)
		return
	}
	report.SkippedCategories++
}

// ingestSpecs upserts one laptop per target that has a spec artifact and
// returns the model key → laptop id mapping for the live-data passes.
func (ing *Ingestor) ingestSpecs(targets []config.Target, report *models.IngestReport) (map[string]int64, error) {
	laptopIDs := make(map[string]int64)

	for _, t := range targets {
		doc, ok, err := ing.artifacts.LoadSpec(t.ModelKey)
		if err != nil {
			return nil, fmt.Errorf("ingest: load spec artifact for %s: %w", t.ModelKey, err)
		}
		if !ok {
			ing.logger.Warn("[ingest] No spec artifact for %s — model skipped this run", t.ModelKey)
			continue
		}

		laptop := &models.Laptop{
			Brand:     t.Brand,
			ModelName: t.ModelName,
			Specs:     doc.Specs,
		}
		id, err := ing.store.UpsertLaptop(laptop)
		if err != nil {
			return nil, fmt.Errorf("ingest: upsert %s %s: %w", t.Brand, t.ModelName, err)
		}

		laptopIDs[t.ModelKey] = id
		report.LaptopsUpserted++
		ing.logger.Info("[ingest] Upserted laptop %s %s (id %d)", t.Brand, t.ModelName, id)
	}

	return laptopIDs, nil
}

func (ing *Ingestor) ingestOffers(targets []config.Target, laptopIDs map[string]int64, statuses map[string]models.LiveStatus, report *models.IngestReport) error {
	offersByModel, err := ing.artifacts.LoadLiveOffers()
	if err != nil {
		return fmt.Errorf("ingest: load offers artifact: %w", err)
	}

	for modelKey, rawOffers := range offersByModel {
		if len(rawOffers) == 0 {
			ing.skipEmpty(modelKey, "offer", statuses[modelKey].Offer, report)
			continue
		}
		laptopID, ok := laptopIDs[modelKey]
		if !ok {
			ing.reportConflict(modelKey, report)
			continue
		}

		target, _ := config.TargetByKey(targets, modelKey)
		var rows []*models.Offer
		for _, raw := range rawOffers {
			offer, ok := ing.cleaner.NormalizeOffer(laptopID, raw, target.Seller)
			if !ok {
				continue
			}
			if offer.ObservedAt.IsZero() {
				offer.ObservedAt = time.Now().UTC().Truncate(time.Second)
			}
			rows = append(rows, offer)
		}
		if len(rows) == 0 {
			report.SkippedCategories++
			continue
		}

		n, err := ing.store.InsertOffers(rows)
		if err != nil {
			return fmt.Errorf("ingest: insert offers for %s: %w", modelKey, err)
		}
		report.OffersInserted += n
	}

	return nil
}

func (ing *Ingestor) ingestReviews(laptopIDs map[string]int64, statuses map[string]models.LiveStatus, report *models.IngestReport) error {
	reviewsByModel, err := ing.artifacts.LoadLiveReviews()
	if err != nil {
		return fmt.Errorf("ingest: load reviews artifact: %w", err)
	}

	for modelKey, rawReviews := range reviewsByModel {
		if len(rawReviews) == 0 {
			ing.skipEmpty(modelKey, "review", statuses[modelKey].Reviews, report)
			continue
		}
		laptopID, ok := laptopIDs[modelKey]
		if !ok {
			ing.reportConflict(modelKey, report)
			continue
		}

		var rows []*models.Review
		for _, raw := range rawReviews {
			review, ok := ing.cleaner.NormalizeReview(laptopID, raw)
			if !ok {
				continue
			}
			if review.ObservedAt.IsZero() {
				review.ObservedAt = time.Now().UTC().Truncate(time.Second)
			}
			rows = append(rows, review)
		}
		if len(rows) == 0 {
			report.SkippedCategories++
			continue
		}

		n, err := ing.store.InsertReviews(rows)
		if err != nil {
			return fmt.Errorf("ingest: insert reviews for %s: %w", modelKey, err)
		}
		report.ReviewsInserted += n
	}

	return nil
}

func (ing *Ingestor) ingestQnA(laptopIDs map[string]int64, statuses map[string]models.LiveStatus, report *models.IngestReport) error {
	qnaByModel, err := ing.artifacts.LoadLiveQnA()
	if err != nil {
		return fmt.Errorf("ingest: load qna artifact: %w", err)
	}

	for modelKey, rawItems := range qnaByModel {
		if len(rawItems) == 0 {
			ing.skipEmpty(modelKey, "q&a", statuses[modelKey].QnA, report)
			continue
		}
		laptopID, ok := laptopIDs[modelKey]
		if !ok {
			ing.reportConflict(modelKey, report)
			continue
		}

		var rows []*models.QnA
		for _, raw := range rawItems {
			item, ok := ing.cleaner.NormalizeQnA(laptopID, raw)
			if !ok {
				continue
			}
			if item.ObservedAt.IsZero() {
				item.ObservedAt = time.Now().UTC().Truncate(time.Second)
			}
			rows = append(rows, item)
		}
		if len(rows) == 0 {
			report.SkippedCategories++
			continue
		}

		n, err := ing.store.InsertQnA(rows)
		if err != nil {
			return fmt.Errorf("ingest: insert qna for %s: %w", modelKey, err)
		}
		report.QnAInserted += n
	}

	return nil
}

// reportConflict records live data that references a model with no
// spec-derived laptop. The data is reported and dropped, never fabricated
// into a placeholder laptop, and at most once per model per run.
func (ing *Ingestor) reportConflict(modelKey string, report *models.IngestReport) {
	for _, existing := range report.IdentityConflicts {
		if existing == modelKey {
			return
		}
	}
	report.IdentityConflicts = append(report.IdentityConflicts, modelKey)
	ing.logger.Error("[ingest] Identity conflict: live data for %q has no spec-derived laptop — not ingested", modelKey)
}
