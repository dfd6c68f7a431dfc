package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doccast/doccast/internal/utils"
)

func newAzureOpenAIServer(t *testing.T, handler http.HandlerFunc) *AzureOpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := NewAzureOpenAI(AzureOpenAIConfig{
		Endpoint:   srv.URL,
		APIKey:     "key",
		Deployment: "gpt-4o",
	})
	if err != nil {
		t.Fatalf("NewAzureOpenAI: %v", err)
	}
	return a
}

func completionResponse(content string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestCompleteSendsMessages(t *testing.T) {
	var gotPath, gotKey string
	var gotReq struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}
	a := newAzureOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		completionResponse("the answer")(w, r)
	})

	out, err := a.Complete(context.Background(), "you are a test", "say something")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "the answer" {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(gotPath, "/openai/deployments/gpt-4o/chat/completions") {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "key" {
		t.Errorf("api key = %q", gotKey)
	}
	if len(gotReq.Messages) != 2 ||
		gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "you are a test" ||
		gotReq.Messages[1].Role != "user" || gotReq.Messages[1].Content != "say something" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 16384 {
		t.Errorf("max_tokens = %d", gotReq.MaxTokens)
	}
}

func TestCompleteOmitsEmptySystemMessage(t *testing.T) {
	var gotReq struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	a := newAzureOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		completionResponse("ok")(w, r)
	})

	if _, err := a.Complete(context.Background(), "", "just a prompt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestCompleteStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   utils.Code
	}{
		{http.StatusUnauthorized, utils.CodeConfiguration},
		{http.StatusTooManyRequests, utils.CodeTransient},
		{http.StatusInternalServerError, utils.CodeTransient},
		{http.StatusBadRequest, utils.CodeInternal},
	}
	for _, tc := range cases {
		status := tc.status
		a := newAzureOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := a.Complete(context.Background(), "", "prompt")
		if !utils.IsCode(err, tc.code) {
			t.Errorf("status %d: err = %v, want %s", tc.status, err, tc.code)
		}
	}
}

func TestCompleteNoChoicesIsTransient(t *testing.T) {
	a := newAzureOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err := a.Complete(context.Background(), "", "prompt")
	if !utils.IsCode(err, utils.CodeTransient) {
		t.Fatalf("err = %v, want TRANSIENT", err)
	}
}

func TestNewAzureOpenAIRequiresConfig(t *testing.T) {
	if _, err := NewAzureOpenAI(AzureOpenAIConfig{Endpoint: "https://x"}); !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("err = %v, want CONFIGURATION", err)
	}
}
