package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"laptop-intelligence/config"
	"laptop-intelligence/models"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func seedCatalog(t *testing.T, store *storage.MemoryStore) (int64, int64) {
	t.Helper()

	lenovoID, err := store.UpsertLaptop(&models.Laptop{
		Brand:     "Lenovo",
		ModelName: "ThinkPad E14 Gen 5 (Intel)",
		Specs:     models.SpecMap{CPU: []string{"Intel Core i5-1335U"}},
	})
	if err != nil {
		t.Fatalf("UpsertLaptop: %v", err)
	}
	hpID, err := store.UpsertLaptop(&models.Laptop{
		Brand:     "HP",
		ModelName: "ProBook 450 G10",
		Specs:     models.SpecMap{CPU: []string{"Intel Core i7-1355U"}},
	})
	if err != nil {
		t.Fatalf("UpsertLaptop: %v", err)
	}

	observed := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	if _, err := store.InsertOffers([]*models.Offer{
		{LaptopID: lenovoID, Price: 950, Currency: "USD", IsAvailable: true, Seller: "Lenovo", ObservedAt: observed},
		{LaptopID: hpID, Price: 1200, Currency: "USD", IsAvailable: true, Seller: "HP", ObservedAt: observed},
	}); err != nil {
		t.Fatalf("InsertOffers: %v", err)
	}
	return lenovoID, hpID
}

func TestChatDegradesToApology(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(t, store)

	completer := &stubCompleter{err: errors.New("upstream timeout")}
	g := NewGateway(store, nil, completer, utils.NewLogger())

	result := g.Chat(context.Background(), "What laptop should I buy?", "")
	if result.Response != ApologyMessage {
		t.Errorf("Response = %q, want apology", result.Response)
	}
	if result.ConversationID == "" {
		t.Error("expected a conversation id even on failure")
	}

	// The failed exchange must not pollute the conversation history.
	if turns := g.history(result.ConversationID); len(turns) != 0 {
		t.Errorf("history after failed exchange = %d turns, want 0", len(turns))
	}
}

func TestChatKeepsConversationHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(t, store)

	completer := &stubCompleter{response: "The ThinkPad E14 is a solid choice."}
	g := NewGateway(store, nil, completer, utils.NewLogger())

	first := g.Chat(context.Background(), "Tell me about the ThinkPad E14", "")
	if first.Response != completer.response {
		t.Errorf("Response = %q", first.Response)
	}

	second := g.Chat(context.Background(), "How much does it cost?", first.ConversationID)
	if second.ConversationID != first.ConversationID {
		t.Error("conversation id should be stable across turns")
	}
	if len(completer.prompts) != 2 {
		t.Fatalf("prompts sent = %d, want 2", len(completer.prompts))
	}
	if !strings.Contains(completer.prompts[1], "Tell me about the ThinkPad E14") {
		t.Error("second prompt should carry the earlier exchange")
	}
}

func TestChatFallbackMode(t *testing.T) {
	store := storage.NewMemoryStore()
	g := NewGateway(store, nil, nil, utils.NewLogger())

	result := g.Chat(context.Background(), "Can you compare the E14 vs the ProBook?", "")
	if !strings.Contains(strings.ToLower(result.Response), "compare") {
		t.Errorf("fallback response = %q, want the comparison route", result.Response)
	}
	if result.Response == ApologyMessage {
		t.Error("fallback mode is not a failure and should not apologize")
	}
}

func TestRecommendFiltersByBudgetAndBrand(t *testing.T) {
	store := storage.NewMemoryStore()
	lenovoID, _ := seedCatalog(t, store)

	g := NewGateway(store, nil, nil, utils.NewLogger())

	max := 1000.0
	result := g.Recommend(context.Background(), RecommendationRequest{BudgetMax: &max})
	if len(result.LaptopIDs) != 1 || result.LaptopIDs[0] != lenovoID {
		t.Errorf("LaptopIDs = %v, want only the laptop under budget", result.LaptopIDs)
	}
	if result.Rationale == "" {
		t.Error("expected a deterministic rationale in fallback mode")
	}

	result = g.Recommend(context.Background(), RecommendationRequest{PreferredBrand: "HP"})
	if len(result.LaptopIDs) != 1 {
		t.Errorf("brand filter LaptopIDs = %v, want one HP laptop", result.LaptopIDs)
	}
}

func TestRecommendRationaleFromCompleter(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(t, store)

	completer := &stubCompleter{response: "Both offer strong value for business use."}
	g := NewGateway(store, nil, completer, utils.NewLogger())

	result := g.Recommend(context.Background(), RecommendationRequest{UseCase: "business"})
	if result.Rationale != completer.response {
		t.Errorf("Rationale = %q, want completer output", result.Rationale)
	}

	// Rationale failures keep the deterministic candidate list.
	completer.err = errors.New("quota exceeded")
	result = g.Recommend(context.Background(), RecommendationRequest{UseCase: "business"})
	if len(result.LaptopIDs) != 2 {
		t.Errorf("LaptopIDs = %v, want both candidates despite rationale failure", result.LaptopIDs)
	}
	if result.Rationale == "" {
		t.Error("expected deterministic rationale after completion failure")
	}
}

func TestGatewaySourcesFromTargets(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(t, store)

	targets := []config.Target{
		{
			ModelKey:  "lenovo_e14_intel",
			Brand:     "Lenovo",
			ModelName: "ThinkPad E14 Gen 5 (Intel)",
			PDF:       "data/pdfs/lenovo_e14_intel.pdf",
			PDPURL:    "https://www.lenovo.com/e14",
		},
	}
	completer := &stubCompleter{response: "ok"}
	g := NewGateway(store, targets, completer, utils.NewLogger())

	result := g.Chat(context.Background(), "specs please", "")
	found := false
	for _, src := range result.Sources {
		if src == "lenovo_e14_intel.pdf" || src == "https://www.lenovo.com/e14" {
			found = true
		}
	}
	if !found {
		t.Errorf("Sources = %v, want the target's pdf or pdp url", result.Sources)
	}
}
