package models

import "strings"

// ExtractedContent is the normalized output of the external document
// extractor: plain text plus ordered references to embedded assets. The
// engine never mutates it.
type ExtractedContent struct {
	Text   string     `bson:"text" json:"text"`
	Assets []AssetRef `bson:"assets,omitempty" json:"assets,omitempty"`
}

// AssetRef points at an image or table embedded in the source document.
type AssetRef struct {
	Kind string `bson:"kind" json:"kind"` // image|table
	Ref  string `bson:"ref" json:"ref"`
}

// TopicPlan is the ordered list of topics the dialogue must cover.
type TopicPlan []string

// Persona is one of the two dialogue roles.
type Persona struct {
	Role        string `bson:"role" json:"role"` // e.g. "Professor"
	Tag         string `bson:"tag" json:"tag"`   // role tag in generated text, e.g. "P"
	Description string `bson:"description" json:"description"`
	VoiceID     string `bson:"voice_id" json:"voice_id"` // key into the voice map
}

// PersonaPair is the fixed pair of roles in a dialogue. The first persona
// always opens the conversation.
type PersonaPair struct {
	First  Persona `bson:"first" json:"first"`
	Second Persona `bson:"second" json:"second"`
}

// ByTag returns the persona matching the role tag.
func (p PersonaPair) ByTag(tag string) (Persona, bool) {
	switch tag {
	case p.First.Tag:
		return p.First, true
	case p.Second.Tag:
		return p.Second, true
	}
	return Persona{}, false
}

// Turn is one utterance by one persona.
type Turn struct {
	Speaker string `bson:"speaker" json:"speaker"` // persona role
	Text    string `bson:"text" json:"text"`
}

// DialogueScript is the ordered, strictly alternating turn sequence produced
// by the script generator.
type DialogueScript struct {
	Turns []Turn `bson:"turns" json:"turns"`
}

// Text flattens the script for the post-generation safety check.
func (s DialogueScript) Text() string {
	var b strings.Builder
	for _, t := range s.Turns {
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
