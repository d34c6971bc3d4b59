package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"laptop-intelligence/models"
	"laptop-intelligence/services"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

type failingCompleter struct{}

func (failingCompleter) Complete(context.Context, string) (string, error) {
	return "", errors.New("upstream unavailable")
}

func newTestServer(t *testing.T, completer services.Completer) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	logger := utils.NewLogger()
	gateway := services.NewGateway(store, nil, completer, logger)
	handler := NewHandler(store, gateway, services.NewInsightService(logger), logger)

	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedLaptop(t *testing.T, store *storage.MemoryStore, brand, modelName string, price float64, available bool) int64 {
	t.Helper()

	id, err := store.UpsertLaptop(&models.Laptop{
		Brand:     brand,
		ModelName: modelName,
		Specs:     models.SpecMap{CPU: []string{"Intel Core i5"}},
	})
	if err != nil {
		t.Fatalf("UpsertLaptop: %v", err)
	}
	if _, err := store.InsertOffers([]*models.Offer{{
		LaptopID:    id,
		Price:       price,
		Currency:    "USD",
		IsAvailable: available,
		Seller:      brand,
		ObservedAt:  time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC),
	}}); err != nil {
		t.Fatalf("InsertOffers: %v", err)
	}
	return id
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body map[string]interface{}
	if code := getJSON(t, srv.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("health status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("health body = %v", body)
	}
}

func TestListLaptopsFilters(t *testing.T) {
	srv, store := newTestServer(t, nil)

	lenovoID := seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)
	seedLaptop(t, store, "HP", "ProBook 450 G10", 1200, true)

	var body struct {
		Laptops []struct {
			ID    int64  `json:"id"`
			Brand string `json:"brand"`
		} `json:"laptops"`
		Count int `json:"count"`
	}

	url := srv.URL + "/api/v1/laptops?brand=lenovo&max_price=1000"
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 1 || len(body.Laptops) != 1 {
		t.Fatalf("count = %d, laptops = %v — want exactly the Lenovo under $1000", body.Count, body.Laptops)
	}
	if body.Laptops[0].ID != lenovoID {
		t.Errorf("returned laptop id = %d, want %d", body.Laptops[0].ID, lenovoID)
	}
}

func TestListLaptopsAvailableOnly(t *testing.T) {
	srv, store := newTestServer(t, nil)

	seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)
	seedLaptop(t, store, "HP", "ProBook 450 G10", 1200, false)

	var body struct {
		Count int `json:"count"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/laptops?available_only=true", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1 available laptop", body.Count)
	}
}

func TestListLaptopsSearch(t *testing.T) {
	srv, store := newTestServer(t, nil)

	seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)
	seedLaptop(t, store, "HP", "ProBook 450 G10", 1200, true)

	var body struct {
		Count int `json:"count"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/laptops?search=probook", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1 for search=probook", body.Count)
	}
}

func TestListLaptopsRejectsBadPrice(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if code := getJSON(t, srv.URL+"/api/v1/laptops?min_price=abc", nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestLaptopDetailAggregates(t *testing.T) {
	srv, store := newTestServer(t, nil)

	id := seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)

	observed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	reviews := []*models.Review{
		{LaptopID: id, Rating: 5, Text: "great", Author: "a", ObservedAt: observed},
		{LaptopID: id, Rating: 4, Text: "good", Author: "b", ObservedAt: observed},
		{LaptopID: id, Rating: 5, Text: "excellent", Author: "c", ObservedAt: observed},
	}
	if _, err := store.InsertReviews(reviews); err != nil {
		t.Fatalf("InsertReviews: %v", err)
	}
	if _, err := store.InsertQnA([]*models.QnA{
		{LaptopID: id, Question: "Backlit keyboard?", Answer: "Yes", ObservedAt: observed},
	}); err != nil {
		t.Fatalf("InsertQnA: %v", err)
	}

	var body struct {
		ID            int64 `json:"id"`
		ReviewSummary struct {
			AverageRating      float64        `json:"average_rating"`
			TotalReviews       int            `json:"total_reviews"`
			RatingDistribution map[string]int `json:"rating_distribution"`
		} `json:"review_summary"`
		TotalReviews int `json:"total_reviews"`
		TotalQnA     int `json:"total_qna"`
		LatestOffer  *struct {
			Price float64 `json:"price"`
		} `json:"latest_offer"`
	}

	url := fmt.Sprintf("%s/api/v1/laptops/%d", srv.URL, id)
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.ReviewSummary.AverageRating != 4.67 {
		t.Errorf("average rating = %v, want 4.67", body.ReviewSummary.AverageRating)
	}
	if body.ReviewSummary.RatingDistribution["5"] != 2 || body.ReviewSummary.RatingDistribution["4"] != 1 {
		t.Errorf("rating distribution = %v", body.ReviewSummary.RatingDistribution)
	}
	if body.TotalReviews != 3 || body.TotalQnA != 1 {
		t.Errorf("totals = %d reviews, %d qna", body.TotalReviews, body.TotalQnA)
	}
	if body.LatestOffer == nil || body.LatestOffer.Price != 950 {
		t.Errorf("latest offer = %v", body.LatestOffer)
	}
}

func TestLaptopDetailNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/api/v1/laptops/999", &body); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if body["error"] == "" {
		t.Error("expected an error message")
	}

	if code := getJSON(t, srv.URL+"/api/v1/laptops/notanid", nil); code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", code)
	}
}

func TestLaptopOffersHistory(t *testing.T) {
	srv, store := newTestServer(t, nil)

	id := seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)
	if _, err := store.InsertOffers([]*models.Offer{{
		LaptopID:    id,
		Price:       899,
		Currency:    "USD",
		IsAvailable: true,
		Seller:      "Lenovo",
		ObservedAt:  time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC),
	}}); err != nil {
		t.Fatalf("InsertOffers: %v", err)
	}

	var body struct {
		Offers []struct {
			Price float64 `json:"price"`
		} `json:"offers"`
		Count int `json:"count"`
	}
	url := fmt.Sprintf("%s/api/v1/laptops/%d/offers", srv.URL, id)
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}
	if body.Offers[0].Price != 899 {
		t.Errorf("newest offer price = %v, want 899", body.Offers[0].Price)
	}
}

func TestReviewInsightsEndpoint(t *testing.T) {
	srv, store := newTestServer(t, nil)

	id := seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)
	if _, err := store.InsertReviews([]*models.Review{
		{LaptopID: id, Rating: 5, Text: "Battery lasts forever", Author: "a",
			ObservedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}); err != nil {
		t.Fatalf("InsertReviews: %v", err)
	}

	var body struct {
		LaptopID int64 `json:"laptop_id"`
		Aspects  []struct {
			Name string `json:"name"`
		} `json:"aspects"`
	}
	url := fmt.Sprintf("%s/api/v1/laptops/%d/reviews/insights", srv.URL, id)
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.LaptopID != id {
		t.Errorf("laptop_id = %d, want %d", body.LaptopID, id)
	}
	if len(body.Aspects) == 0 || body.Aspects[0].Name != "battery" {
		t.Errorf("aspects = %v, want battery first", body.Aspects)
	}
}

func TestChatStaysOKWhenAssistantFails(t *testing.T) {
	srv, store := newTestServer(t, failingCompleter{})
	seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)

	var body struct {
		Response       string `json:"response"`
		ConversationID string `json:"conversation_id"`
	}
	code := postJSON(t, srv.URL+"/api/v1/chat", map[string]string{"message": "Which laptop is best?"}, &body)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when the assistant is down", code)
	}
	if body.Response != services.ApologyMessage {
		t.Errorf("response = %q, want the apology message", body.Response)
	}
	if body.ConversationID == "" {
		t.Error("expected a conversation id")
	}
}

func TestChatRequiresMessage(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if code := postJSON(t, srv.URL+"/api/v1/chat", map[string]string{}, nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing message", code)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	srv, store := newTestServer(t, nil)

	seedLaptop(t, store, "Lenovo", "ThinkPad E14 Gen 5 (Intel)", 950, true)
	seedLaptop(t, store, "HP", "ProBook 450 G10", 1200, true)

	var body struct {
		Recommendations []struct {
			Brand string `json:"brand"`
		} `json:"recommendations"`
		Rationale string `json:"rationale"`
		Count     int    `json:"count"`
	}
	code := postJSON(t, srv.URL+"/api/v1/recommend", map[string]interface{}{
		"budget_max": 1000,
	}, &body)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 1 || len(body.Recommendations) != 1 {
		t.Fatalf("count = %d, want 1 laptop under budget", body.Count)
	}
	if body.Recommendations[0].Brand != "Lenovo" {
		t.Errorf("recommended brand = %q, want Lenovo", body.Recommendations[0].Brand)
	}
	if body.Rationale == "" {
		t.Error("expected a rationale")
	}
}
