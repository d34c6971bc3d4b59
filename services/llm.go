package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"laptop-intelligence/config"
	"laptop-intelligence/models"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

// ApologyMessage is the fixed user-facing response when the completion
// service is unreachable or errors. Raw errors never reach the user.
const ApologyMessage = "Sorry, I'm having trouble reaching the assistant right now. Please try again in a few minutes."

const (
	maxContextLaptops = 8
	maxHistoryTurns   = 5
)

// Completer is the external text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatResult is one chat exchange's outcome.
type ChatResult struct {
	Response       string
	Sources        []string
	ConversationID string
}

// RecommendationRequest carries the deterministic pre-selection criteria.
type RecommendationRequest struct {
	BudgetMin      *float64
	BudgetMax      *float64
	PreferredBrand string
	UseCase        string
}

// RecommendationResult is the filtered candidate set plus generated rationale.
type RecommendationResult struct {
	LaptopIDs []int64
	Rationale string
	Sources   []string
}

type chatTurn struct {
	role    string
	content string
}

// Gateway assembles context bundles from the store and forwards chat and
// recommendation prompts to the completion service. Conversation history
// lives here, in memory, keyed by an opaque conversation id.
type Gateway struct {
	store     storage.Store
	targets   []config.Target
	completer Completer
	logger    *utils.Logger

	mu            sync.Mutex
	conversations map[string][]chatTurn
}

// NewGateway creates a Gateway. A nil completer puts the gateway in fallback
// mode: deterministic keyword-routed responses, no external calls.
func NewGateway(store storage.Store, targets []config.Target, completer Completer, logger *utils.Logger) *Gateway {
	return &Gateway{
		store:         store,
		targets:       targets,
		completer:     completer,
		logger:        logger,
		conversations: make(map[string][]chatTurn),
	}
}

// Chat answers one user message with catalog context. It always returns a
// usable result: completion failures degrade to the apology message.
func (g *Gateway) Chat(ctx context.Context, message, conversationID string) ChatResult {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if g.completer == nil {
		return ChatResult{
			Response:       g.fallbackResponse(message),
			Sources:        []string{},
			ConversationID: conversationID,
		}
	}

	bundle, sources := g.buildContext(nil)
	prompt := g.chatPrompt(message, bundle, g.history(conversationID))

	response, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		g.logger.Error("[llm] Completion failed: %v", err)
		return ChatResult{
			Response:       ApologyMessage,
			Sources:        []string{},
			ConversationID: conversationID,
		}
	}

	g.appendHistory(conversationID, message, response)
	return ChatResult{
		Response:       response,
		Sources:        sources,
		ConversationID: conversationID,
	}
}

// Recommend filters candidates deterministically (brand, latest-offer budget
// window), then asks the completion service only for ranking rationale.
func (g *Gateway) Recommend(ctx context.Context, req RecommendationRequest) RecommendationResult {
	laptops, err := g.store.ListLaptops(storage.LaptopFilter{Brand: req.PreferredBrand})
	if err != nil {
		g.logger.Error("[llm] Recommend: list laptops: %v", err)
		return RecommendationResult{LaptopIDs: []int64{}, Rationale: ApologyMessage, Sources: []string{}}
	}

	var candidates []*models.Laptop
	for _, l := range laptops {
		offer, err := g.store.LatestOffer(l.ID)
		if err != nil {
			g.logger.Warn("[llm] Recommend: latest offer for %d: %v", l.ID, err)
			continue
		}
		if offer != nil {
			if req.BudgetMin != nil && offer.Price < *req.BudgetMin {
				continue
			}
			if req.BudgetMax != nil && offer.Price > *req.BudgetMax {
				continue
			}
		}
		candidates = append(candidates, l)
	}
	if len(candidates) > maxContextLaptops {
		candidates = candidates[:maxContextLaptops]
	}

	ids := make([]int64, 0, len(candidates))
	for _, l := range candidates {
		ids = append(ids, l.ID)
	}

	criteria := g.criteriaText(req)
	bundle, sources := g.buildContext(candidates)

	rationale := fmt.Sprintf("Here are the laptops matching your criteria (%s).", criteria)
	if g.completer != nil && len(candidates) > 0 {
		prompt := fmt.Sprintf(`Based on the following laptop data, provide recommendations for %s.

Available Laptops:
%s

Provide a clear rationale explaining why these laptops are good matches for the criteria. Be specific about features, value, and trade-offs.`, criteria, bundle)

		text, err := g.completer.Complete(ctx, prompt)
		if err != nil {
			g.logger.Error("[llm] Recommendation rationale failed: %v", err)
		} else {
			rationale = text
		}
	}

	return RecommendationResult{LaptopIDs: ids, Rationale: rationale, Sources: sources}
}

// buildContext renders the context bundle for the given laptops (all stored
// laptops when nil) and returns the source labels of everything bundled.
func (g *Gateway) buildContext(laptops []*models.Laptop) (string, []string) {
	if laptops == nil {
		all, err := g.store.ListLaptops(storage.LaptopFilter{})
		if err != nil {
			g.logger.Error("[llm] Context: list laptops: %v", err)
			return "", []string{}
		}
		laptops = all
		if len(laptops) > maxContextLaptops {
			laptops = laptops[:maxContextLaptops]
		}
	}

	var parts []string
	sourceSet := make(map[string]struct{})

	for _, l := range laptops {
		parts = append(parts, fmt.Sprintf("Laptop: %s %s", l.Brand, l.ModelName))

		offer, err := g.store.LatestOffer(l.ID)
		if err == nil && offer != nil {
			parts = append(parts, fmt.Sprintf("Price: %.2f %s", offer.Price, offer.Currency))
			parts = append(parts, fmt.Sprintf("Available: %t", offer.IsAvailable))
		} else {
			parts = append(parts, "Price: not available")
		}

		reviews, err := g.store.ReviewsFor(l.ID)
		if err == nil && len(reviews) > 0 {
			var total float64
			for _, r := range reviews {
				total += r.Rating
			}
			parts = append(parts, fmt.Sprintf("Rating: %.1f/5 (%d reviews)",
				total/float64(len(reviews)), len(reviews)))
		}

		if specsJSON, err := json.Marshal(l.Specs); err == nil {
			parts = append(parts, "Specifications: "+string(specsJSON))
		}
		parts = append(parts, "---")

		if t, ok := g.targetFor(l); ok {
			sourceSet[filepath.Base(t.PDF)] = struct{}{}
			sourceSet[t.PDPURL] = struct{}{}
		}
	}

	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	return strings.Join(parts, "\n"), sources
}

func (g *Gateway) targetFor(l *models.Laptop) (config.Target, bool) {
	for _, t := range g.targets {
		if t.Brand == l.Brand && t.ModelName == l.ModelName {
			return t, true
		}
	}
	return config.Target{}, false
}

func (g *Gateway) chatPrompt(message, bundle string, history []chatTurn) string {
	var historyText string
	if len(history) > 0 {
		var lines []string
		for _, turn := range history {
			role := strings.ToUpper(turn.role[:1]) + turn.role[1:]
			lines = append(lines, fmt.Sprintf("%s: %s", role, turn.content))
		}
		historyText = "Conversation History:\n" + strings.Join(lines, "\n") + "\n"
	}

	return fmt.Sprintf(`You are a helpful laptop shopping assistant. You have access to current laptop data including specifications, prices, and reviews.

Available Laptop Data:
%s

Guidelines:
- Provide helpful, accurate information based on the available data
- Compare laptops when asked
- Explain technical specifications in user-friendly terms
- Mention specific prices and availability when relevant
- If you don't have specific information, say so clearly
- Keep responses concise but informative

%s
User: %s`, bundle, historyText, message)
}

func (g *Gateway) history(conversationID string) []chatTurn {
	g.mu.Lock()
	defer g.mu.Unlock()

	history := g.conversations[conversationID]
	if len(history) > maxHistoryTurns*2 {
		history = history[len(history)-maxHistoryTurns*2:]
	}
	return history
}

func (g *Gateway) appendHistory(conversationID, userMessage, response string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.conversations[conversationID] = append(g.conversations[conversationID],
		chatTurn{role: "user", content: userMessage},
		chatTurn{role: "assistant", content: response},
	)
}

func (g *Gateway) criteriaText(req RecommendationRequest) string {
	var parts []string
	if req.BudgetMin != nil || req.BudgetMax != nil {
		min, max := "0", "unlimited"
		if req.BudgetMin != nil {
			min = fmt.Sprintf("%.0f", *req.BudgetMin)
		}
		if req.BudgetMax != nil {
			max = fmt.Sprintf("%.0f", *req.BudgetMax)
		}
		parts = append(parts, fmt.Sprintf("Budget: $%s-$%s", min, max))
	}
	if req.PreferredBrand != "" {
		parts = append(parts, "Brand: "+req.PreferredBrand)
	}
	if req.UseCase != "" {
		parts = append(parts, "Use case: "+req.UseCase)
	}
	if len(parts) == 0 {
		return "general use"
	}
	return strings.Join(parts, ", ")
}

// fallbackResponse routes a message by keyword when no completion service is
// configured.
func (g *Gateway) fallbackResponse(message string) string {
	lower := strings.ToLower(message)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("compare", "difference", "vs"):
		return "I'd be happy to help you compare laptops! Please specify which models you'd like to compare, and I'll provide details about their specifications, pricing, and features."
	case containsAny("recommend", "suggest", "best"):
		return "I can help recommend laptops based on your needs! Please let me know your budget, preferred brand, and intended use (business, gaming, student, etc.)."
	case containsAny("price", "cost", "budget"):
		return "I have current pricing information for all laptops in our database. You can browse the available models or ask about specific ones."
	case containsAny("spec", "specification", "feature"):
		return "I can provide detailed specifications for any laptop in our database, including CPU, RAM, storage, display, and more."
	}
	return "I'm here to help with laptop shopping! I can compare models, provide recommendations, check current prices, and explain specifications. What would you like to know?"
}

// geminiEndpoint is the REST completion endpoint template: model name, then
// the API key as a query parameter.
const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiCompleter calls the hosted Gemini generateContent API.
type GeminiCompleter struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewGeminiCompleter returns nil when no API key is configured, which puts
// the gateway into fallback mode.
func NewGeminiCompleter(cfg *config.Config) *GeminiCompleter {
	if cfg.GeminiAPIKey == "" {
		return nil
	}
	return &GeminiCompleter{
		client: resty.New().SetTimeout(geminiTimeout),
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.GeminiModel,
	}
}

const geminiTimeout = 30 * time.Second

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete sends one prompt and returns the generated text.
func (gc *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var out geminiResponse

	resp, err := gc.client.R().
		SetContext(ctx).
		SetQueryParam("key", gc.apiKey).
		SetBody(geminiRequest{
			Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		}).
		SetResult(&out).
		Post(fmt.Sprintf(geminiEndpoint, gc.model))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty completion")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
