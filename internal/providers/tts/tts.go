// Package tts defines the interface for text-to-speech synthesis.
//
// Each dialogue turn becomes exactly one synthesis request; the renderer
// stitches the resulting segments back together in turn order.
package tts

import "context"

// Segment is the synthesized audio for one request.
type Segment struct {
	Audio      []byte
	Format     string // "wav" or "mp3"
	SampleRate int    // 0 when the container carries its own header
}

type Provider interface {
	// Name identifies the provider ("azure" or "elevenlabs") and selects
	// which column of the voice map applies.
	Name() string

	// Synthesize converts one turn's text using the given provider voice.
	Synthesize(ctx context.Context, text, voice string) (*Segment, error)

	Close() error
}
