package podcast

import (
	"testing"

	"github.com/doccast/doccast/internal/utils"
)

func TestResolveKnownVoices(t *testing.T) {
	m := DefaultVoiceMap()

	v, err := m.Resolve("professor", "azure")
	if err != nil || v != "pl-PL-MarekNeural" {
		t.Errorf("professor/azure = %q, %v", v, err)
	}
	v, err = m.Resolve("student", "elevenlabs")
	if err != nil || v == "" {
		t.Errorf("student/elevenlabs = %q, %v", v, err)
	}
}

func TestResolveUnknownVoiceOrProvider(t *testing.T) {
	m := DefaultVoiceMap()

	if _, err := m.Resolve("narrator", "azure"); !utils.IsCode(err, utils.CodeConfiguration) {
		t.Errorf("unknown voice: err = %v", err)
	}
	if _, err := m.Resolve("professor", "polly"); !utils.IsCode(err, utils.CodeConfiguration) {
		t.Errorf("unknown provider: err = %v", err)
	}
}

func TestResolveMissingProviderVoice(t *testing.T) {
	m := VoiceMap{"narrator": {Azure: "en-US-GuyNeural"}}
	if _, err := m.Resolve("narrator", "elevenlabs"); !utils.IsCode(err, utils.CodeConfiguration) {
		t.Errorf("err = %v, want CONFIGURATION", err)
	}
}
