package podcast

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/providers/tts"
	"github.com/doccast/doccast/internal/utils"
)

func newTestRenderer(providers ...tts.Provider) *Renderer {
	return NewRenderer(providers, DefaultVoiceMap(), fastRetry(), 3, testLogger().WithField("component", "renderer"))
}

func scriptOf(n int) *models.DialogueScript {
	personas := DefaultPersonaPair()
	script := &models.DialogueScript{}
	for i := 0; i < n; i++ {
		speaker := personas.First.Role
		if i%2 == 1 {
			speaker = personas.Second.Role
		}
		script.Turns = append(script.Turns, models.Turn{
			Speaker: speaker,
			Text:    fmt.Sprintf("turn-%02d", i),
		})
	}
	return script
}

func trackPayload(t *testing.T, track *models.AudioTrack) string {
	t.Helper()
	if track.Format != "wav" || len(track.Audio) < 44 {
		t.Fatalf("unexpected track: format=%q len=%d", track.Format, len(track.Audio))
	}
	return string(track.Audio[44:])
}

func TestRenderKeepsScriptOrder(t *testing.T) {
	azure := newFakeTTS("azure")
	azure.jitter = true
	r := newTestRenderer(azure)

	script := scriptOf(12)
	track, results, err := r.Render(context.Background(), script, DefaultPersonaPair(), RenderOptions{Provider: "azure"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if track.SegmentCount != 12 {
		t.Errorf("segment count = %d, want 12", track.SegmentCount)
	}

	var want strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&want, "turn-%02d", i)
	}
	if got := trackPayload(t, track); got != want.String() {
		t.Errorf("payload order wrong:\n got %q\nwant %q", got, want.String())
	}

	for i, res := range results {
		if res.Index != i || res.Err != nil || res.Attempts != 1 {
			t.Errorf("result %d = %+v", i, res)
		}
	}
}

func TestRenderRetriesTransientTurn(t *testing.T) {
	azure := newFakeTTS("azure")
	azure.failText["turn-01"] = 2
	r := newTestRenderer(azure)

	track, results, err := r.Render(context.Background(), scriptOf(3), DefaultPersonaPair(), RenderOptions{Provider: "azure"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := trackPayload(t, track); got != "turn-00turn-01turn-02" {
		t.Errorf("payload = %q", got)
	}
	if results[1].Attempts != 3 {
		t.Errorf("turn 1 attempts = %d, want 3", results[1].Attempts)
	}
	if results[0].Attempts != 1 || results[2].Attempts != 1 {
		t.Errorf("healthy turns retried: %+v", results)
	}
}

func TestRenderReportsLowestFailingTurn(t *testing.T) {
	azure := newFakeTTS("azure")
	azure.failText["turn-04"] = 10
	azure.failText["turn-02"] = 10
	r := newTestRenderer(azure)

	_, results, err := r.Render(context.Background(), scriptOf(6), DefaultPersonaPair(), RenderOptions{Provider: "azure"})
	if !utils.IsCode(err, utils.CodeTTSProvider) {
		t.Fatalf("err = %v, want TTS_PROVIDER", err)
	}
	if !strings.Contains(err.Error(), "turn 2") {
		t.Errorf("error does not name the lowest failing turn: %v", err)
	}
	if results[2].Err == nil || results[4].Err == nil {
		t.Errorf("failing turns not reported: %+v", results)
	}
}

func TestRenderFallsBackToAlternateProvider(t *testing.T) {
	azure := newFakeTTS("azure")
	azure.failText["turn-01"] = 10
	eleven := newFakeTTS("elevenlabs")
	r := newTestRenderer(azure, eleven)

	opts := RenderOptions{Provider: "azure", AllowFallback: true}
	track, results, err := r.Render(context.Background(), scriptOf(3), DefaultPersonaPair(), opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// every segment comes from the alternate; formats never mix
	if eleven.Calls() != 3 {
		t.Errorf("fallback provider calls = %d, want 3", eleven.Calls())
	}
	if got := trackPayload(t, track); got != "turn-00turn-01turn-02" {
		t.Errorf("payload = %q", got)
	}

	// both passes appear in the results for the stage history
	var azureResults, elevenResults int
	for _, res := range results {
		switch res.Provider {
		case "azure":
			azureResults++
		case "elevenlabs":
			elevenResults++
		}
	}
	if azureResults != 3 || elevenResults != 3 {
		t.Errorf("results per provider = %d azure, %d elevenlabs, want 3 each", azureResults, elevenResults)
	}
}

func TestRenderNoFallbackWithoutOptIn(t *testing.T) {
	azure := newFakeTTS("azure")
	azure.failText["turn-00"] = 10
	eleven := newFakeTTS("elevenlabs")
	r := newTestRenderer(azure, eleven)

	_, _, err := r.Render(context.Background(), scriptOf(2), DefaultPersonaPair(), RenderOptions{Provider: "azure"})
	if !utils.IsCode(err, utils.CodeTTSProvider) {
		t.Fatalf("err = %v, want TTS_PROVIDER", err)
	}
	if eleven.Calls() != 0 {
		t.Errorf("alternate provider was called %d times without opt-in", eleven.Calls())
	}
}

func TestRenderUnmappedVoiceFailsBeforeDispatch(t *testing.T) {
	azure := newFakeTTS("azure")
	r := newTestRenderer(azure)

	personas := DefaultPersonaPair()
	personas.Second.VoiceID = "narrator" // not in the voice map

	script := scriptOf(4)
	_, results, err := r.Render(context.Background(), script, personas, RenderOptions{Provider: "azure"})
	if !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("err = %v, want CONFIGURATION", err)
	}
	// no worker may be in flight when voice resolution fails
	if azure.Calls() != 0 {
		t.Errorf("synthesis dispatched %d times despite unmapped voice", azure.Calls())
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
}

func TestRenderUnknownProvider(t *testing.T) {
	r := newTestRenderer(newFakeTTS("azure"))
	_, _, err := r.Render(context.Background(), scriptOf(2), DefaultPersonaPair(), RenderOptions{Provider: "polly"})
	if !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("err = %v, want CONFIGURATION", err)
	}
}

func TestRenderCancelledMidScript(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	azure := newFakeTTS("azure")
	r := newTestRenderer(azure)
	_, _, err := r.Render(ctx, scriptOf(4), DefaultPersonaPair(), RenderOptions{Provider: "azure", AllowFallback: true})
	if !utils.IsCode(err, utils.CodeCancelled) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}
	if azure.Calls() != 0 {
		t.Errorf("turns dispatched after cancellation: %d", azure.Calls())
	}
}
