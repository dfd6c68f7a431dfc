package podcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/audio"
	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/providers/tts"
	"github.com/doccast/doccast/internal/utils"
)

// DefaultRenderConcurrency bounds the synthesis fan-out to stay inside
// provider rate limits.
const DefaultRenderConcurrency = 4

// RenderOptions are the caller-facing knobs of one run.
type RenderOptions struct {
	Style            string        `json:"style"`    // educational|casual
	Provider         string        `json:"provider"` // azure|elevenlabs
	MaxSafetyRetries int           `json:"max_safety_retries"`
	AllowFallback    bool          `json:"allow_fallback"` // try the alternate provider when the configured one fails
	TurnGap          time.Duration `json:"turn_gap"`       // silence between turns, 0 = none
}

// TurnResult reports how one turn's synthesis went, for the stage history.
type TurnResult struct {
	Index    int
	Speaker  string
	Provider string
	Attempts int
	Err      error
}

// Renderer converts a validated script into one stitched audio track.
type Renderer struct {
	providers   map[string]tts.Provider
	voices      VoiceMap
	retry       RetryPolicy
	concurrency int
	log         *logrus.Entry
}

func NewRenderer(providers []tts.Provider, voices VoiceMap, retry RetryPolicy, concurrency int, log *logrus.Entry) *Renderer {
	if concurrency <= 0 {
		concurrency = DefaultRenderConcurrency
	}
	m := make(map[string]tts.Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Renderer{providers: m, voices: voices, retry: retry, concurrency: concurrency, log: log}
}

// Render synthesizes every turn (one request per turn, bounded fan-out,
// per-turn retry) and stitches the segments back in script order. If the
// configured provider exhausts retries on any turn and fallback is enabled,
// the whole track is re-rendered once on the alternate provider — segments
// cannot be mixed across providers because their container formats differ.
func (r *Renderer) Render(ctx context.Context, script *models.DialogueScript, personas models.PersonaPair, opts RenderOptions) (*models.AudioTrack, []TurnResult, error) {
	const op = "Renderer.Render"

	provider, ok := r.providers[opts.Provider]
	if !ok {
		return nil, nil, utils.E(utils.CodeConfiguration, op, "unknown tts provider "+opts.Provider, nil)
	}

	segments, results, err := r.renderAll(ctx, provider, script, personas)
	if err != nil && opts.AllowFallback && !utils.IsCode(err, utils.CodeCancelled) {
		alt := r.alternate(opts.Provider)
		if alt != nil {
			r.log.WithField("fallback", alt.Name()).Warn("provider failed, falling back for the whole track")
			var fbResults []TurnResult
			segments, fbResults, err = r.renderAll(ctx, alt, script, personas)
			results = append(results, fbResults...)
		}
	}
	if err != nil {
		return nil, results, err
	}

	data := make([][]byte, len(segments))
	for i, seg := range segments {
		data[i] = seg.Audio
	}
	stitched, err := audio.Stitch(data, segments[0].Format, opts.TurnGap)
	if err != nil {
		return nil, results, utils.E(utils.CodeInternal, op, "stitching segments", err)
	}

	return &models.AudioTrack{
		Format:       segments[0].Format,
		SegmentCount: len(segments),
		Audio:        stitched,
	}, results, nil
}

// renderAll runs one full pass over the script with a single provider.
// Workers complete in arbitrary order; the results slice is indexed by turn
// so completion order never leaks into output order.
func (r *Renderer) renderAll(ctx context.Context, provider tts.Provider, script *models.DialogueScript, personas models.PersonaPair) ([]models.AudioSegment, []TurnResult, error) {
	const op = "Renderer.renderAll"

	n := len(script.Turns)
	segments := make([]models.AudioSegment, n)
	results := make([]TurnResult, n)

	// voices are pure config lookups; resolving them all up front means no
	// worker is ever in flight when this pass errors out
	voices := make([]string, n)
	for i, turn := range script.Turns {
		voice, err := r.voiceFor(turn.Speaker, personas, provider.Name())
		if err != nil {
			return nil, nil, err
		}
		voices[i] = voice
	}

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	dispatched := 0
	for i, turn := range script.Turns {
		// cancellation is checked at dispatch, never mid-synthesis
		if err := ctx.Err(); err != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		dispatched++
		go func(i int, text, speaker, voice string) {
			defer wg.Done()
			defer func() { <-sem }()

			var seg *tts.Segment
			attempts, err := r.retry.Do(ctx, utils.IsTransient, func(ctx context.Context) error {
				var serr error
				seg, serr = provider.Synthesize(ctx, text, voice)
				return serr
			})
			results[i] = TurnResult{Index: i, Speaker: speaker, Provider: provider.Name(), Attempts: attempts, Err: err}
			if err == nil {
				segments[i] = models.AudioSegment{
					Index:    i,
					Speaker:  speaker,
					Provider: provider.Name(),
					Format:   seg.Format,
					Audio:    seg.Audio,
				}
			}
		}(i, turn.Text, turn.Speaker, voices[i])
	}

	// strict barrier: stitching never starts while a turn is in flight
	wg.Wait()

	if dispatched < n {
		return nil, results[:dispatched], utils.E(utils.CodeCancelled, op, "render cancelled", ctx.Err())
	}

	// results are indexed by turn, so this reports the lowest failing turn
	// and the caller can say exactly which sentence could not be rendered
	for _, res := range results {
		if res.Err != nil {
			if utils.IsCode(res.Err, utils.CodeCancelled) {
				return nil, results, res.Err
			}
			return nil, results, utils.E(utils.CodeTTSProvider, op,
				fmt.Sprintf("turn %d (%s) failed after %d attempts", res.Index, res.Speaker, res.Attempts), res.Err)
		}
	}
	return segments, results, nil
}

func (r *Renderer) voiceFor(speaker string, personas models.PersonaPair, provider string) (string, error) {
	var persona models.Persona
	switch speaker {
	case personas.First.Role:
		persona = personas.First
	case personas.Second.Role:
		persona = personas.Second
	default:
		return "", utils.E(utils.CodeInternal, "Renderer.voiceFor", "speaker "+speaker+" not in persona pair", nil)
	}
	return r.voices.Resolve(persona.VoiceID, provider)
}

func (r *Renderer) alternate(name string) tts.Provider {
	for n, p := range r.providers {
		if n != name {
			return p
		}
	}
	return nil
}
