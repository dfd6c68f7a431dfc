package podcast

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/audio"
	"github.com/doccast/doccast/internal/providers/moderation"
	"github.com/doccast/doccast/internal/providers/tts"
	"github.com/doccast/doccast/internal/utils"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 1.0, Jitter: 0}
}

// fakeLLM returns canned completions in order, repeating the last one.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.responses) == 0 {
		return "", utils.E(utils.CodeTransient, "fakeLLM", "no canned response", nil)
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeLLM) Close() error { return nil }

// fakeModeration blocks or fails according to its knobs.
type fakeModeration struct {
	mu       sync.Mutex
	blockAll bool
	failAll  bool
	calls    int
}

func (f *fakeModeration) Analyze(ctx context.Context, text string) (moderation.Verdict, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failAll {
		return moderation.Verdict{}, utils.E(utils.CodeTransient, "fakeModeration", "service unreachable", nil)
	}
	if f.blockAll {
		return moderation.Verdict{Allowed: false, Categories: []string{"Violence"}}, nil
	}
	return moderation.Verdict{Allowed: true}, nil
}

func (f *fakeModeration) Close() error { return nil }

// fakeTTS synthesizes a tiny WAV whose PCM payload is the turn text, so
// ordering is checkable on the stitched track. failures maps text to how many
// times that turn should fail before succeeding.
type fakeTTS struct {
	name     string
	jitter   bool // random small delay to shuffle completion order
	failText map[string]int

	mu    sync.Mutex
	calls int
}

func newFakeTTS(name string) *fakeTTS {
	return &fakeTTS{name: name, failText: map[string]int{}}
}

func (f *fakeTTS) Name() string { return f.name }

func (f *fakeTTS) Close() error { return nil }

func (f *fakeTTS) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice string) (*tts.Segment, error) {
	f.mu.Lock()
	f.calls++
	remaining := f.failText[text]
	if remaining > 0 {
		f.failText[text] = remaining - 1
	}
	f.mu.Unlock()

	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	if remaining > 0 {
		return nil, utils.E(utils.CodeTransient, "fakeTTS", "synthesis flake", nil)
	}
	return &tts.Segment{
		Audio:      audio.WAV([]byte(text), 16000, 1, 2),
		Format:     "wav",
		SampleRate: 16000,
	}, nil
}

// memStore is an in-memory BlobStore; failAppends makes the first N
// AppendLog calls fail.
type memStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	failAppends int
	appendCalls int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[objectName] = data
	s.mu.Unlock()
	return "mem://" + objectName, nil
}

func (s *memStore) AppendLog(ctx context.Context, sessionID string, offset int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.failAppends > 0 {
		s.failAppends--
		return utils.E(utils.CodeTransient, "memStore", "append failed", nil)
	}
	key := fmt.Sprintf("%s/%06d", sessionID, offset)
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// newTestEngine wires an engine out of the fakes with fast retries.
func newTestEngine(llm *fakeLLM, mod moderation.Provider, store *memStore, providers ...tts.Provider) *Engine {
	l := testLogger()
	retry := fastRetry()
	eng, err := NewEngine(Config{
		Gate:     NewSafetyGate(mod, l.WithField("component", "safety_gate")),
		Scripts:  NewScriptGenerator(llm, DefaultMinTurnsPerTopic, l.WithField("component", "script_generator")),
		Renderer: NewRenderer(providers, DefaultVoiceMap(), retry, 3, l.WithField("component", "renderer")),
		Store:    store,
		Retry:    retry,
		Log:      l,
	})
	if err != nil {
		panic(err)
	}
	return eng
}
