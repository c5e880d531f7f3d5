package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
)

func sampleResult() *result.Result {
	avanza := listing.Listing{ID: "1", Features: listing.Features{
		Make: "Toyota", Model: "Avanza", Year: 2019, Odometer: 60000,
		Transmission: "Manual", Fuel: "Bensin", City: "Jakarta", Owners: 1,
	}}
	r := result.New([]result.Recommendation{
		{Listing: avanza, PredictedPrice: 175.5, PredictedScore: 82, Rank: 1},
	}, 200, 4, 2)
	return &r
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestAdvisor_Advise(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		if !strings.Contains(req.Messages[1].Content, "Toyota Avanza 2019") {
			t.Errorf("prompt missing top pick: %q", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "  The Avanza fits your budget.  "},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 90, "completion_tokens": 10, "total_tokens": 100},
		})
	}))
	defer server.Close()

	adv := NewAdvisor(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	got, err := adv.Advise(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "The Avanza fits your budget." {
		t.Errorf("Text = %q", got.Text)
	}
	if got.PromptTokens != 90 || got.TotalTokens != 100 {
		t.Errorf("usage = %d/%d", got.PromptTokens, got.TotalTokens)
	}
}

func TestAdvisor_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
	}))
	defer server.Close()

	adv := NewAdvisor(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	if _, err := adv.Advise(context.Background(), sampleResult()); !errors.Is(err, domain.ErrAdvisor) {
		t.Fatalf("expected ErrAdvisor, got %v", err)
	}
}

func TestAdvisor_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer server.Close()

	adv := NewAdvisor(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := adv.Advise(context.Background(), sampleResult())
	if !errors.Is(err, domain.ErrAdvisor) {
		t.Fatalf("expected ErrAdvisor, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestBuildPrompt_LimitsCandidates(t *testing.T) {
	items := make([]result.Recommendation, 8)
	for i := range items {
		items[i] = result.Recommendation{
			Listing: listing.Listing{Features: listing.Features{Make: "Honda", Model: "Jazz"}},
			Rank:    i + 1,
		}
	}
	r := result.New(items, 150, 20, 8)

	prompt := BuildPrompt(&r)
	if !strings.HasPrefix(prompt, "Budget: 150 juta.") {
		t.Errorf("unexpected header: %q", prompt)
	}
	if n := strings.Count(prompt, "Honda Jazz"); n != maxCandidates {
		t.Errorf("expected %d candidates, got %d", maxCandidates, n)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("expected empty detail, got %q", got)
	}
}
