package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/doccast/doccast/internal/utils"
)

// AzureOpenAI drives the Azure OpenAI chat completions API over plain HTTP.
type AzureOpenAI struct {
	endpoint   string
	apiKey     string
	apiVersion string
	deployment string
	maxTokens  int
	client     *http.Client
}

type AzureOpenAIConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
	MaxTokens  int
}

// AzureOpenAIConfigFromEnv reads the same variables the deployment scripts set.
func AzureOpenAIConfigFromEnv() AzureOpenAIConfig {
	return AzureOpenAIConfig{
		Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		APIVersion: os.Getenv("API_VERSION"),
		Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
	}
}

func NewAzureOpenAI(cfg AzureOpenAIConfig) (*AzureOpenAI, error) {
	const op = "llm.NewAzureOpenAI"
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" {
		return nil, utils.E(utils.CodeConfiguration, op,
			"AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT are required", nil)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 16384
	}
	return &AzureOpenAI{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		deployment: cfg.Deployment,
		maxTokens:  cfg.MaxTokens,
		client:     &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *AzureOpenAI) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *AzureOpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	const op = "AzureOpenAI.Complete"

	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(map[string]any{
		"messages":    msgs,
		"temperature": 0.7,
		"max_tokens":  a.maxTokens,
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "encoding request", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.endpoint, a.deployment, a.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", utils.E(utils.CodeTransient, op, "completion request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("completion failed (status %d): %s", resp.StatusCode, respBody)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", utils.E(utils.CodeConfiguration, op, msg, nil)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return "", utils.E(utils.CodeTransient, op, msg, nil)
		default:
			return "", utils.E(utils.CodeInternal, op, msg, nil)
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", utils.E(utils.CodeInternal, op, "decoding completion", err)
	}
	if len(result.Choices) == 0 {
		return "", utils.E(utils.CodeTransient, op, "completion returned no choices", nil)
	}
	return result.Choices[0].Message.Content, nil
}
