package moderation

import "context"

// Verdict is the moderation outcome for one piece of text. A blocked verdict
// is a normal result, not an error; errors mean the check itself failed.
type Verdict struct {
	Allowed    bool
	Categories []string
}

type Provider interface {
	Analyze(ctx context.Context, text string) (Verdict, error)
	Close() error
}
