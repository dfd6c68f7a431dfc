package podcast

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/providers/moderation"
)

// moderationChunkSize is the largest text slice sent in one moderation
// request, matching the service-side request limit.
const moderationChunkSize = 10000

// SafetyGate submits text to the moderation provider. It is stateless across
// calls; the engine invokes it once on the raw input and once on the
// generated script. Retry and fail-closed classification live in the engine
// so the backoff policy stays uniform across all external calls.
type SafetyGate struct {
	mod moderation.Provider
	log *logrus.Entry
}

func NewSafetyGate(mod moderation.Provider, log *logrus.Entry) *SafetyGate {
	return &SafetyGate{mod: mod, log: log}
}

// Check analyzes the text chunk by chunk. A blocked verdict is a normal
// outcome; an error means the check could not be completed.
func (g *SafetyGate) Check(ctx context.Context, text string) (moderation.Verdict, error) {
	verdict := moderation.Verdict{Allowed: true}

	runes := []rune(text)
	for start := 0; start < len(runes); start += moderationChunkSize {
		end := start + moderationChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		v, err := g.mod.Analyze(ctx, string(runes[start:end]))
		if err != nil {
			return moderation.Verdict{}, err
		}
		if !v.Allowed {
			verdict.Allowed = false
			verdict.Categories = append(verdict.Categories, v.Categories...)
		}
	}

	if !verdict.Allowed {
		g.log.WithField("categories", verdict.Categories).Warn("content blocked by safety gate")
	}
	return verdict, nil
}
