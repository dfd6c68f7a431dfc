package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doccast/doccast/internal/utils"
)

func newElevenLabsServer(t *testing.T, handler http.HandlerFunc) *ElevenLabs {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e, err := NewElevenLabs(ElevenLabsConfig{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	return e
}

func TestElevenLabsSynthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotReq struct {
		Text    string `json:"text"`
		ModelID string `json:"model_id"`
	}
	e := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte("mp3data"))
	})

	seg, err := e.Synthesize(context.Background(), "Hello there", "voice-123")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if seg.Format != "mp3" || string(seg.Audio) != "mp3data" {
		t.Errorf("segment = %+v", seg)
	}
	if gotPath != "/text-to-speech/voice-123" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "key" {
		t.Errorf("api key = %q", gotKey)
	}
	if gotReq.Text != "Hello there" || gotReq.ModelID != "eleven_multilingual_v2" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestElevenLabsStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   utils.Code
	}{
		{http.StatusUnauthorized, utils.CodeConfiguration},
		{http.StatusTooManyRequests, utils.CodeTransient},
		{http.StatusInternalServerError, utils.CodeTransient},
		{http.StatusUnprocessableEntity, utils.CodeInternal},
	}
	for _, tc := range cases {
		status := tc.status
		e := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := e.Synthesize(context.Background(), "hi", "v")
		if !utils.IsCode(err, tc.code) {
			t.Errorf("status %d: err = %v, want %s", tc.status, err, tc.code)
		}
	}
}

func TestNewElevenLabsRequiresKey(t *testing.T) {
	if _, err := NewElevenLabs(ElevenLabsConfig{}); !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("err = %v, want CONFIGURATION", err)
	}
}
