package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/doccast/doccast/internal/utils"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabs calls the ElevenLabs text-to-speech REST API. Output is MP3.
type ElevenLabs struct {
	baseURL string
	apiKey  string
	modelID string
	client  *http.Client
}

type ElevenLabsConfig struct {
	APIKey  string
	ModelID string
	BaseURL string // override for tests
}

func ElevenLabsConfigFromEnv() ElevenLabsConfig {
	return ElevenLabsConfig{
		APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ModelID: os.Getenv("ELEVENLABS_MODEL_ID"),
	}
}

func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	const op = "tts.NewElevenLabs"
	if cfg.APIKey == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "ELEVENLABS_API_KEY is required", nil)
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	return &ElevenLabs{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Close() error { return nil }

func (e *ElevenLabs) Synthesize(ctx context.Context, text, voice string) (*Segment, error) {
	const op = "ElevenLabs.Synthesize"

	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty text for synthesis", nil)
	}

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": e.modelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "encoding request", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeTransient, op, "synthesis request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("synthesis failed (status %d): %s", resp.StatusCode, respBody)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, utils.E(utils.CodeConfiguration, op, msg, nil)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, utils.E(utils.CodeTransient, op, msg, nil)
		default:
			return nil, utils.E(utils.CodeInternal, op, msg, nil)
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.E(utils.CodeTransient, op, "reading audio", err)
	}
	if len(audio) == 0 {
		return nil, utils.E(utils.CodeTransient, op, "empty audio response", nil)
	}

	return &Segment{Audio: audio, Format: "mp3"}, nil
}
