package moderation

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

// Severity at or above which a category blocks the text. Azure Content Safety
// reports severities 0-7; 4 is the "high" boundary.
const blockSeverity = 4

// AzureContentSafety calls the Azure AI Content Safety text:analyze endpoint.
type AzureContentSafety struct {
	endpoint   string
	apiKey     string
	apiVersion string
	client     *http.Client
}

type AzureContentSafetyConfig struct {
	Endpoint string
	APIKey   string
}

func AzureContentSafetyConfigFromEnv() AzureContentSafetyConfig {
	return AzureContentSafetyConfig{
		Endpoint: os.Getenv("CONTENT_SAFETY_ENDPOINT"),
		APIKey:   os.Getenv("CONTENT_SAFETY_KEY"),
	}
}

func NewAzureContentSafety(cfg AzureContentSafetyConfig) (*AzureContentSafety, error) {
	const op = "moderation.NewAzureContentSafety"
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, utils.E(utils.CodeConfiguration, op,
			"CONTENT_SAFETY_ENDPOINT and CONTENT_SAFETY_KEY are required", nil)
	}
	return &AzureContentSafety{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		apiVersion: "2024-09-01",
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *AzureContentSafety) Close() error { return nil }

func (a *AzureContentSafety) Analyze(ctx context.Context, text string) (Verdict, error) {
	const op = "AzureContentSafety.Analyze"

	body, err := json.Marshal(map[string]any{"text": text})
	if err != nil {
		return Verdict{}, utils.E(utils.CodeInternal, op, "encoding request", err)
	}

	url := fmt.Sprintf("%s/contentsafety/text:analyze?api-version=%s", a.endpoint, a.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, utils.E(utils.CodeInternal, op, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return Verdict{}, utils.E(utils.CodeTransient, op, "analyze request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("analyze failed (status %d): %s", resp.StatusCode, respBody)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return Verdict{}, utils.E(utils.CodeConfiguration, op, msg, nil)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return Verdict{}, utils.E(utils.CodeTransient, op, msg, nil)
		default:
			return Verdict{}, utils.E(utils.CodeInternal, op, msg, nil)
		}
	}

	var result struct {
		CategoriesAnalysis []struct {
			Category string `json:"category"`
			Severity int    `json:"severity"`
		} `json:"categoriesAnalysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Verdict{}, utils.E(utils.CodeInternal, op, "decoding analyze response", err)
	}

	verdict := Verdict{Allowed: true}
	for _, cat := range result.CategoriesAnalysis {
		if cat.Severity >= blockSeverity {
			verdict.Allowed = false
			verdict.Categories = append(verdict.Categories, cat.Category)
		}
	}
	return verdict, nil
}
