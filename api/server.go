package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"laptop-intelligence/models"
	"laptop-intelligence/services"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

// Assistant is the conversational surface the API forwards chat and
// recommendation requests to.
type Assistant interface {
	Chat(ctx context.Context, message, conversationID string) services.ChatResult
	Recommend(ctx context.Context, req services.RecommendationRequest) services.RecommendationResult
}

// Handler wires the HTTP routes to the store and services.
type Handler struct {
	store     storage.Store
	assistant Assistant
	insights  *services.InsightService
	logger    *utils.Logger
}

// NewHandler creates the API handler.
func NewHandler(store storage.Store, assistant Assistant, insights *services.InsightService, logger *utils.Logger) *Handler {
	return &Handler{
		store:     store,
		assistant: assistant,
		insights:  insights,
		logger:    logger,
	}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/laptops", h.ListLaptops)
		v1.GET("/laptops/:id", h.LaptopDetail)
		v1.GET("/laptops/:id/offers", h.LaptopOffers)
		v1.GET("/laptops/:id/reviews", h.LaptopReviews)
		v1.GET("/laptops/:id/qna", h.LaptopQnA)
		v1.GET("/laptops/:id/reviews/insights", h.ReviewInsights)
		v1.POST("/chat", h.Chat)
		v1.POST("/recommend", h.Recommend)
	}

	return r
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// laptopSummary is one row of the catalog listing, with the latest offer
// facts flattened in. Offer fields stay null when no offer has been seen.
type laptopSummary struct {
	ID           int64          `json:"id"`
	Brand        string         `json:"brand"`
	ModelName    string         `json:"model_name"`
	Specs        models.SpecMap `json:"specifications"`
	LatestPrice  *float64       `json:"latest_price"`
	Currency     string         `json:"currency,omitempty"`
	IsAvailable  *bool          `json:"is_available"`
	Seller       string         `json:"seller,omitempty"`
	LastObserved *time.Time     `json:"last_observed"`
}

// ListLaptops returns the catalog filtered by brand, price band, availability
// and free-text search. All filters are conjunctive; price and availability
// are judged against each laptop's most recent offer.
func (h *Handler) ListLaptops(c *gin.Context) {
	filter := storage.LaptopFilter{
		Brand:  c.Query("brand"),
		Search: c.Query("search"),
	}

	minPrice, ok := parseOptionalFloat(c, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := parseOptionalFloat(c, "max_price")
	if !ok {
		return
	}
	availableOnly := c.Query("available_only") == "true"

	laptops, err := h.store.ListLaptops(filter)
	if err != nil {
		h.logger.Error("[api] list laptops: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list laptops"})
		return
	}

	results := make([]laptopSummary, 0, len(laptops))
	for _, l := range laptops {
		summary := laptopSummary{
			ID:        l.ID,
			Brand:     l.Brand,
			ModelName: l.ModelName,
			Specs:     l.Specs,
		}

		offer, err := h.store.LatestOffer(l.ID)
		if err != nil {
			h.logger.Error("[api] latest offer for laptop %d: %v", l.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list laptops"})
			return
		}
		if offer != nil {
			summary.LatestPrice = &offer.Price
			summary.Currency = offer.Currency
			summary.IsAvailable = &offer.IsAvailable
			summary.Seller = offer.Seller
			observed := offer.ObservedAt
			summary.LastObserved = &observed
		}

		// Price and availability predicates require an offer: a laptop with
		// no observed offer never matches them.
		if minPrice != nil && (offer == nil || offer.Price < *minPrice) {
			continue
		}
		if maxPrice != nil && (offer == nil || offer.Price > *maxPrice) {
			continue
		}
		if availableOnly && (offer == nil || !offer.IsAvailable) {
			continue
		}

		results = append(results, summary)
	}

	c.JSON(http.StatusOK, gin.H{
		"laptops": results,
		"count":   len(results),
	})
}

// LaptopDetail returns one laptop with its latest offer and review summary.
func (h *Handler) LaptopDetail(c *gin.Context) {
	laptop, ok := h.lookupLaptop(c)
	if !ok {
		return
	}

	offer, err := h.store.LatestOffer(laptop.ID)
	if err != nil {
		h.logger.Error("[api] latest offer for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load laptop"})
		return
	}
	reviews, err := h.store.ReviewsFor(laptop.ID)
	if err != nil {
		h.logger.Error("[api] reviews for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load laptop"})
		return
	}
	qna, err := h.store.QnAFor(laptop.ID)
	if err != nil {
		h.logger.Error("[api] qna for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load laptop"})
		return
	}

	c.JSON(http.StatusOK, h.detailPayload(laptop, offer, reviews, qna))
}

func (h *Handler) detailPayload(laptop *models.Laptop, offer *models.Offer,
	reviews []*models.Review, qna []*models.QnA) gin.H {

	payload := gin.H{
		"id":             laptop.ID,
		"brand":          laptop.Brand,
		"model_name":     laptop.ModelName,
		"specifications": laptop.Specs,
		"review_summary": h.insights.Summarize(reviews),
		"total_reviews":  len(reviews),
		"total_qna":      len(qna),
	}
	if offer != nil {
		payload["latest_offer"] = offer
	} else {
		payload["latest_offer"] = nil
	}
	return payload
}

// LaptopOffers returns the full price/availability history for one laptop,
// newest first.
func (h *Handler) LaptopOffers(c *gin.Context) {
	laptop, ok := h.lookupLaptop(c)
	if !ok {
		return
	}

	offers, err := h.store.OffersFor(laptop.ID)
	if err != nil {
		h.logger.Error("[api] offers for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load offers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"laptop_id": laptop.ID,
		"offers":    offers,
		"count":     len(offers),
	})
}

// LaptopReviews returns all retained reviews for one laptop.
func (h *Handler) LaptopReviews(c *gin.Context) {
	laptop, ok := h.lookupLaptop(c)
	if !ok {
		return
	}

	reviews, err := h.store.ReviewsFor(laptop.ID)
	if err != nil {
		h.logger.Error("[api] reviews for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"laptop_id": laptop.ID,
		"reviews":   reviews,
		"summary":   h.insights.Summarize(reviews),
		"count":     len(reviews),
	})
}

// LaptopQnA returns all retained Q&A entries for one laptop.
func (h *Handler) LaptopQnA(c *gin.Context) {
	laptop, ok := h.lookupLaptop(c)
	if !ok {
		return
	}

	qna, err := h.store.QnAFor(laptop.ID)
	if err != nil {
		h.logger.Error("[api] qna for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load qna"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"laptop_id": laptop.ID,
		"qna":       qna,
		"count":     len(qna),
	})
}

// ReviewInsights returns aspect buckets and monthly trends for one laptop.
func (h *Handler) ReviewInsights(c *gin.Context) {
	laptop, ok := h.lookupLaptop(c)
	if !ok {
		return
	}

	reviews, err := h.store.ReviewsFor(laptop.ID)
	if err != nil {
		h.logger.Error("[api] reviews for laptop %d: %v", laptop.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load insights"})
		return
	}

	c.JSON(http.StatusOK, h.insights.Insights(laptop.ID, reviews))
}

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// Chat forwards one user message to the assistant. Assistant failures never
// surface as HTTP errors; the gateway degrades to an apology and this
// endpoint stays 200.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	result := h.assistant.Chat(c.Request.Context(), req.Message, req.ConversationID)

	c.JSON(http.StatusOK, gin.H{
		"response":        result.Response,
		"sources":         result.Sources,
		"conversation_id": result.ConversationID,
	})
}

type recommendRequest struct {
	BudgetMin      *float64 `json:"budget_min"`
	BudgetMax      *float64 `json:"budget_max"`
	PreferredBrand string   `json:"preferred_brand"`
	UseCase        string   `json:"use_case"`
}

// Recommend pre-filters candidates deterministically and returns them with a
// generated rationale.
func (h *Handler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result := h.assistant.Recommend(c.Request.Context(), services.RecommendationRequest{
		BudgetMin:      req.BudgetMin,
		BudgetMax:      req.BudgetMax,
		PreferredBrand: req.PreferredBrand,
		UseCase:        req.UseCase,
	})

	recommendations := make([]gin.H, 0, len(result.LaptopIDs))
	for _, id := range result.LaptopIDs {
		laptop, err := h.store.LaptopByID(id)
		if err != nil {
			continue
		}
		offer, err := h.store.LatestOffer(id)
		if err != nil {
			h.logger.Error("[api] latest offer for laptop %d: %v", id, err)
			continue
		}
		reviews, err := h.store.ReviewsFor(id)
		if err != nil {
			h.logger.Error("[api] reviews for laptop %d: %v", id, err)
			continue
		}
		qna, err := h.store.QnAFor(id)
		if err != nil {
			h.logger.Error("[api] qna for laptop %d: %v", id, err)
			continue
		}
		recommendations = append(recommendations, h.detailPayload(laptop, offer, reviews, qna))
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recommendations,
		"rationale":       result.Rationale,
		"sources":         result.Sources,
		"count":           len(recommendations),
	})
}

// lookupLaptop resolves the :id path parameter to a laptop, writing the
// error response itself when the lookup fails.
func (h *Handler) lookupLaptop(c *gin.Context) (*models.Laptop, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid laptop id"})
		return nil, false
	}

	laptop, err := h.store.LaptopByID(id)
	if errors.Is(err, storage.ErrLaptopNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "laptop not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("[api] laptop %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load laptop"})
		return nil, false
	}
	return laptop, true
}

// parseOptionalFloat reads an optional float query parameter, writing a 400
// response on malformed input.
func parseOptionalFloat(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &v, true
}
