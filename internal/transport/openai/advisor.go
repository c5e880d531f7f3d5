// Package openai writes recommendation narratives with an OpenAI-compatible chat API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
)

// DefaultSystemPrompt frames the advisor as a used-car buyer's assistant.
const DefaultSystemPrompt = "You help a buyer choose a used car in Indonesia. " +
	"Prices are in millions of rupiah (juta). Given ranked candidates with predicted " +
	"price and recommendation score, explain in one short paragraph why the first " +
	"candidate is the best pick and mention one alternative. Do not invent facts."

// maxCandidates limits how many ranked items go into the prompt.
const maxCandidates = 5

// Advisor produces a short explanation of the top recommendation.
type Advisor struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
	user         string
}

// Config holds the advisor provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	User         string
}

// NewAdvisor creates an OpenAI-compatible advisor.
func NewAdvisor(cfg *Config) *Advisor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &Advisor{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		systemPrompt: prompt,
		maxTokens:    cfg.MaxTokens,
		user:         cfg.User,
	}
}

// Advise asks the chat model about the ranked items of res.
func (a *Advisor) Advise(ctx context.Context, res *result.Result) (domain.Advice, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(res)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: 0.2,
		User:        a.user,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Advice{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.Advice{}, fmt.Errorf("empty chat completion response: %w", domain.ErrAdvisor)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return domain.Advice{}, fmt.Errorf("blank chat completion: %w", domain.ErrAdvisor)
	}
	return domain.Advice{
		Text:         text,
		Model:        resp.Model,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (a *Advisor) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// BuildPrompt renders the budget and the top ranked items, one per line.
func BuildPrompt(res *result.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Budget: %.0f juta. Candidates within budget: %d of %d matching listings.\n",
		res.Budget(), res.WithinBudget(), res.Matched())
	for i, r := range res.Items() {
		if i == maxCandidates {
			break
		}
		l := r.Listing
		fmt.Fprintf(&b, "%d. %s %s %d, %s, %s, %d km, %s, owners %d, predicted price %.1f juta, score %.1f\n",
			r.Rank, l.Make, l.Model, l.Year, l.Transmission, l.Fuel, l.Odometer, l.City,
			l.Owners, r.PredictedPrice, r.PredictedScore)
	}
	return b.String()
}

// parseAPIError extracts a readable message; every error wraps domain.ErrAdvisor.
func parseAPIError(err error) error {
	wrap := domain.ErrAdvisor

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat request: %w", err)
	}
	return fmt.Errorf("chat request failed: %v: %w", err, wrap)
}

// extractDetail reads the "detail" field of a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
