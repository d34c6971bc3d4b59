package main

import (
	"errors"
	"os"

	"laptop-intelligence/config"
	"laptop-intelligence/parser"
	"laptop-intelligence/scraper/retailer"
	"laptop-intelligence/services"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger()

	logger.Info("=== Laptop Intelligence — ingestion run ===")

	targets := config.Targets(cfg.PDFDir)

	artifacts, err := storage.NewArtifactStore(cfg.SpecsDir, cfg.LiveDataDir)
	if err != nil {
		logger.Error("Failed to prepare artifact directories: %v", err)
		os.Exit(1)
	}

	// Stage 1: spec extraction. A missing or unreadable PDF skips that
	// model's spec refresh; the run continues.
	pdfParser := parser.New(logger)
	parsed := 0
	for _, t := range targets {
		doc, err := pdfParser.Parse(t.PDF, t.ModelKey)
		if err != nil {
			var perr *parser.ParseError
			if errors.As(err, &perr) {
				logger.Warn("Spec extraction skipped for %s: %s", t.ModelKey, perr.Reason)
			} else {
				logger.Warn("Spec extraction skipped for %s: %v", t.ModelKey, err)
			}
			continue
		}
		if err := artifacts.SaveSpec(doc); err != nil {
			logger.Error("Failed to save spec artifact for %s: %v", t.ModelKey, err)
			continue
		}
		parsed++
	}
	logger.Info("Spec extraction done: %d/%d models parsed", parsed, len(targets))

	// Stage 2: live collection.
	collector := retailer.New(cfg, logger)
	live := collector.Collect(targets)
	if err := artifacts.SaveLive(live); err != nil {
		logger.Error("Failed to save live artifacts: %v", err)
		os.Exit(1)
	}
	for key, res := range live {
		if res.OfferStatus.Failed() {
			logger.Warn("Collection failed for %s: %s", key, res.OfferStatus.Reason)
			continue
		}
		logger.Info("Collected %s: offer=%s reviews=%s (%d) qna=%s (%d)",
			key, res.OfferStatus.Status, res.ReviewStatus.Status, len(res.Reviews),
			res.QnAStatus.Status, len(res.QnA))
	}

	// Stage 3: reconciliation into Postgres.
	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ingestor := services.NewIngestor(store, artifacts, logger)
	report, err := ingestor.Run(targets)
	if err != nil {
		logger.Error("Ingestion failed: %v", err)
		os.Exit(1)
	}

	services.NewInsightService(logger).PrintRunSummary(report)
}
