package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/doccast/doccast/internal/utils"
)

// AzureSpeech calls the Azure Cognitive Services TTS REST endpoint. Output is
// riff PCM WAV so segments can be stitched with native frame math.
type AzureSpeech struct {
	endpoint string // override for tests; derived from region when empty
	apiKey   string
	client   *http.Client
}

type AzureSpeechConfig struct {
	APIKey   string
	Region   string
	Endpoint string // optional, full URL of the v1 synthesis endpoint
}

func AzureSpeechConfigFromEnv() AzureSpeechConfig {
	return AzureSpeechConfig{
		APIKey: os.Getenv("AZURE_SPEECH_API_KEY"),
		Region: os.Getenv("AZURE_SPEECH_REGION"),
	}
}

func NewAzureSpeech(cfg AzureSpeechConfig) (*AzureSpeech, error) {
	const op = "tts.NewAzureSpeech"
	if cfg.APIKey == "" || (cfg.Region == "" && cfg.Endpoint == "") {
		return nil, utils.E(utils.CodeConfiguration, op,
			"AZURE_SPEECH_API_KEY and AZURE_SPEECH_REGION are required", nil)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	return &AzureSpeech{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *AzureSpeech) Name() string { return "azure" }

func (a *AzureSpeech) Close() error { return nil }

func (a *AzureSpeech) Synthesize(ctx context.Context, text, voice string) (*Segment, error) {
	const op = "AzureSpeech.Synthesize"

	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty text for synthesis", nil)
	}

	// Locale is the first two voice name parts, e.g. "en-US" of "en-US-JennyNeural".
	locale := voice
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		locale = parts[0] + "-" + parts[1]
	}

	ssml := fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
		locale, voice, escapeSSML(text),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "creating request", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "riff-24khz-16bit-mono-pcm")

	resp, err := a.client.Do(req)
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

	return &Segment{Audio: audio, Format: "wav", SampleRate: 24000}, nil
}

var ssmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeSSML(s string) string { return ssmlReplacer.Replace(s) }
