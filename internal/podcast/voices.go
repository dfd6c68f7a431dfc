package podcast

import (
	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/utils"
)

// VoiceProfile maps one logical voice to each provider's voice identifier.
type VoiceProfile struct {
	Azure      string // neural voice name
	ElevenLabs string // voice id
}

// VoiceMap is the shared, read-only mapping from a persona's voice id to a
// synthesis voice profile.
type VoiceMap map[string]VoiceProfile

// DefaultVoiceMap carries the stock professor/student voices.
func DefaultVoiceMap() VoiceMap {
	return VoiceMap{
		"professor": {Azure: "pl-PL-MarekNeural", ElevenLabs: "o2xdfKUpc1Bwq7RchZuW"},
		"student":   {Azure: "pl-PL-ZofiaNeural", ElevenLabs: "CLuTGacrAhcIhaJslbXt"},
	}
}

// Resolve returns the provider-specific voice for a logical voice id.
func (m VoiceMap) Resolve(voiceID, provider string) (string, error) {
	const op = "VoiceMap.Resolve"

	profile, ok := m[voiceID]
	if !ok {
		return "", utils.E(utils.CodeConfiguration, op, "unknown voice id "+voiceID, nil)
	}

	var v string
	switch provider {
	case "azure":
		v = profile.Azure
	case "elevenlabs":
		v = profile.ElevenLabs
	default:
		return "", utils.E(utils.CodeConfiguration, op, "unknown provider "+provider, nil)
	}
	if v == "" {
		return "", utils.E(utils.CodeConfiguration, op, "voice id "+voiceID+" has no "+provider+" voice", nil)
	}
	return v, nil
}

// DefaultPersonaPair is the professor/student pairing the original templates
// are written for. The professor always opens.
func DefaultPersonaPair() models.PersonaPair {
	return models.PersonaPair{
		First: models.Persona{
			Role:        "Professor",
			Tag:         "P",
			Description: "a patient lecturer who explains concepts clearly and asks guiding questions",
			VoiceID:     "professor",
		},
		Second: models.Persona{
			Role:        "Student",
			Tag:         "S",
			Description: "a curious student who asks follow-up questions and summarizes what was learned",
			VoiceID:     "student",
		},
	}
}
