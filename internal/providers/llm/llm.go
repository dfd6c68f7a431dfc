package llm

import "context"

type Provider interface {
	// Complete sends a single generation request and returns the full text.
	Complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
}
