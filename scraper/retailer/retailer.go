package retailer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"laptop-intelligence/config"
	"laptop-intelligence/models"
	"laptop-intelligence/utils"
)

// Collector drives one headless browser session per target PDP/review page
// and emits raw live-data records. Offer extraction failures are fatal for
// that model's run; review/Q&A failures degrade to partial results.
type Collector struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Collector.
func New(cfg *config.Config, logger *utils.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			MaxDelay:    15 * time.Second,
			Logger:      logger,
		},
	}
}

// Collect runs all targets with bounded parallelism. A fault in one target's
// session never aborts the others; every target gets a result with explicit
// per-category status.
func (c *Collector) Collect(targets []config.Target) map[string]*models.CollectResult {
	chromeBin := findChromeBinary(c.cfg.ChromeBin)
	c.logger.Info("[retailer] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	results := make(map[string]*models.CollectResult, len(targets))
	var mu sync.Mutex

	for _, target := range targets {
		t := target
		c.pool.Submit(func() {
			res := c.collectTarget(allocCtx, t)
			mu.Lock()
			results[t.ModelKey] = res
			mu.Unlock()
		})
	}
	c.pool.Wait()

	return results
}

// collectTarget gathers the offer plus best-effort reviews/Q&A for one model.
func (c *Collector) collectTarget(allocCtx context.Context, t config.Target) *models.CollectResult {
	res := &models.CollectResult{ModelKey: t.ModelKey}

	offer, err := c.scrapePDP(allocCtx, t)
	if err != nil {
		c.logger.Error("[retailer] %s: offer extraction failed: %v", t.ModelKey, err)
		reason := fmt.Sprintf("offer extraction failed: %v", err)
		res.OfferStatus = models.CategoryResult{Status: models.StatusFailed, Reason: reason}
		res.ReviewStatus = models.CategoryResult{Status: models.StatusFailed, Reason: "model run aborted after offer failure"}
		res.QnAStatus = models.CategoryResult{Status: models.StatusFailed, Reason: "model run aborted after offer failure"}
		return res
	}
	res.Offer = offer
	res.OfferStatus = models.CategoryResult{Status: models.StatusOK}
	c.logger.Info("[retailer] %s: offer collected (price %q, availability %q)",
		t.ModelKey, offer.PriceText, offer.Availability)

	res.Reviews, res.QnA, res.ReviewStatus, res.QnAStatus = c.collectReviewPages(allocCtx, t)
	return res
}

// collectReviewPages walks every configured review and Q&A page for a
// target, keeping whatever partial data each page yields.
func (c *Collector) collectReviewPages(allocCtx context.Context, t config.Target) (
	[]models.LiveReview, []models.LiveQnA, models.CategoryResult, models.CategoryResult) {

	seenReviews := utils.NewStringSet()
	seenQnA := utils.NewStringSet()

	var reviews []models.LiveReview
	var qna []models.LiveQnA
	var reviewFailures, qnaFailures int

	for _, page := range pagePlan(t) {
		pageReviews, pageQnA, err := c.scrapeReviewPage(allocCtx, page.url)
		if err != nil {
			if page.reviews {
				reviewFailures++
			}
			if page.qna {
				qnaFailures++
			}
			c.logger.Warn("[retailer] %s: community page %s failed: %v — keeping partial results",
				t.ModelKey, page.url, err)
			continue
		}
		if page.reviews {
			for _, r := range pageReviews {
				if seenReviews.Add(reviewKey(r)) {
					reviews = append(reviews, r)
				}
			}
		}
		if page.qna {
			for _, q := range pageQnA {
				if seenQnA.Add(q.Question + "|" + q.Answer) {
					qna = append(qna, q)
				}
			}
		}
	}

	reviewStatus := categoryOutcome(len(reviews), reviewFailures, len(t.ReviewURLs))
	if len(t.ReviewURLs) == 0 {
		reviewStatus = models.CategoryResult{Status: models.StatusEmpty, Reason: "no review sources configured"}
	}
	qnaStatus := categoryOutcome(len(qna), qnaFailures, len(t.QnAURLs))
	if len(t.QnAURLs) == 0 {
		qnaStatus = models.CategoryResult{Status: models.StatusEmpty, Reason: "no q&a sources configured"}
	}
	return reviews, qna, reviewStatus, qnaStatus
}

// pageSource is one community page to scrape and which categories it feeds.
// Review and Q&A source lists usually overlap; an overlapping URL is visited
// once and feeds both.
type pageSource struct {
	url     string
	reviews bool
	qna     bool
}

func pagePlan(t config.Target) []pageSource {
	index := make(map[string]int)
	var plan []pageSource

	add := func(url string, reviews, qna bool) {
		if i, ok := index[url]; ok {
			plan[i].reviews = plan[i].reviews || reviews
			plan[i].qna = plan[i].qna || qna
			return
		}
		index[url] = len(plan)
		plan = append(plan, pageSource{url: url, reviews: reviews, qna: qna})
	}

	for _, url := range t.ReviewURLs {
		add(url, true, false)
	}
	for _, url := range t.QnAURLs {
		add(url, false, true)
	}
	return plan
}

func reviewKey(r models.LiveReview) string {
	body := r.Body
	if len(body) > 40 {
		body = body[:40]
	}
	return r.Author + "|" + r.Date + "|" + body
}

func categoryOutcome(collected, failures, sources int) models.CategoryResult {
	switch {
	case collected > 0 && failures > 0:
		return models.CategoryResult{Status: models.StatusOK,
			Reason: fmt.Sprintf("partial: %d of %d sources failed", failures, sources)}
	case collected > 0:
		return models.CategoryResult{Status: models.StatusOK}
	case failures == sources:
		return models.CategoryResult{Status: models.StatusFailed,
			Reason: "all sources failed"}
	default:
		return models.CategoryResult{Status: models.StatusEmpty}
	}
}

// pdpData mirrors the JS extraction result for a product detail page.
type pdpData struct {
	Price        string   `json:"price"`
	Currency     string   `json:"currency"`
	Availability string   `json:"availability"`
	ShippingETA  string   `json:"shipping_eta"`
	Promos       []string `json:"promos"`
	AggRating    string   `json:"agg_rating"`
	AggCount     string   `json:"agg_count"`
}

// scrapePDP extracts the current offer from a product detail page. JSON-LD
// product metadata is preferred; DOM selectors are the fallback. A page with
// no price signal is an error; the price is never defaulted.
func (c *Collector) scrapePDP(allocCtx context.Context, t config.Target) (*models.LiveOffer, error) {
	var data pdpData

	err := c.retry.Do(fmt.Sprintf("pdp-%s", t.ModelKey), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(c.cfg.NavTimeoutSec)*time.Second)
		defer cancelTimeout()

		err := chromedp.Run(ctx,
			chromedp.Navigate(t.PDPURL),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(pdpExtractJS, &data),
		)
		if err != nil {
			return fmt.Errorf("chromedp pdp extract: %w", err)
		}
		if data.Price == "" {
			return fmt.Errorf("no price signal on page")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.LiveOffer{
		SourceURL:        t.PDPURL,
		PriceText:        data.Price,
		Currency:         data.Currency,
		Availability:     data.Availability,
		ShippingETA:      data.ShippingETA,
		PromoBadges:      data.Promos,
		Seller:           t.Seller,
		AggregateRating:  data.AggRating,
		AggregateReviews: data.AggCount,
		FetchedAt:        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// reviewCard mirrors the JS extraction result for one review entry.
type reviewCard struct {
	Rating string `json:"rating"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author string `json:"author"`
	Date   string `json:"date"`
}

// qnaCard mirrors the JS extraction result for one question block.
type qnaCard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// scrapeReviewPage loads a reviews page and pages through its "load more"
// affordance, extracting review cards and Q&A blocks.
func (c *Collector) scrapeReviewPage(allocCtx context.Context, url string) ([]models.LiveReview, []models.LiveQnA, error) {
	var reviews []models.LiveReview
	var qna []models.LiveQnA

	err := c.retry.Do("review-page", func() error {
		reviews = reviews[:0]
		qna = qna[:0]

		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(c.cfg.NavTimeoutSec)*time.Second)
		defer cancelTimeout()

		if err := chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, 1200)`, nil),
			chromedp.Sleep(2*time.Second),
		); err != nil {
			return fmt.Errorf("chromedp navigate reviews: %w", err)
		}

		// Expand pagination before extracting: click "load more" until it
		// disappears or the page budget runs out.
		for page := 0; page < c.cfg.MaxReviewPages; page++ {
			var clicked bool
			if err := chromedp.Run(ctx,
				chromedp.Evaluate(loadMoreJS, &clicked),
			); err != nil || !clicked {
				break
			}
			if err := chromedp.Run(ctx, chromedp.Sleep(2*time.Second)); err != nil {
				break
			}
		}

		var cards []reviewCard
		var qnaBlocks []qnaCard
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(reviewExtractJS, &cards),
			chromedp.Evaluate(qnaExtractJS, &qnaBlocks),
		); err != nil {
			return fmt.Errorf("chromedp review extract: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339)
		for _, card := range cards {
			if card.Rating == "" && card.Body == "" && card.Title == "" {
				continue
			}
			reviews = append(reviews, models.LiveReview{
				SourceURL: url,
				Rating:    card.Rating,
				Title:     card.Title,
				Body:      card.Body,
				Author:    card.Author,
				Date:      card.Date,
				FetchedAt: now,
			})
		}
		for _, block := range qnaBlocks {
			if block.Question == "" && block.Answer == "" {
				continue
			}
			qna = append(qna, models.LiveQnA{
				SourceURL: url,
				Question:  block.Question,
				Answer:    block.Answer,
				FetchedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return reviews, qna, nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
