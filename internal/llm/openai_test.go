package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func newClient(baseURL string) *openai.Client {
	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = baseURL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestGenerateSendsPersonaAndTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected system+user messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != TravelGuidePersona {
			t.Errorf("system message does not carry the persona")
		}
		if req.Messages[1].Role != "user" || req.Messages[1].Content != "best pizza?" {
			t.Errorf("user message does not carry the transcript")
		}
		if math.Abs(float64(req.Temperature)-0.7) > 1e-6 {
			t.Errorf("unexpected temperature %v", req.Temperature)
		}
		if req.MaxTokens != maxReplyTokens {
			t.Errorf("unexpected max tokens %d", req.MaxTokens)
		}

		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "Go to Di Fara in Midwood."}},
			},
		})
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(newClient(srv.URL))
	reply, err := g.Generate(context.Background(), "best pizza?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Go to Di Fara in Midwood." {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestGenerateSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(newClient(srv.URL))
	if _, err := g.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected error from non-success upstream response")
	}
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(newClient(srv.URL))
	if _, err := g.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected error when upstream returns no choices")
	}
}
