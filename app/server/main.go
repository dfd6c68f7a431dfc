package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/doccast/doccast/config"
	"github.com/doccast/doccast/internal/api/handlers"
	"github.com/doccast/doccast/internal/api/middleware"
	"github.com/doccast/doccast/internal/api/routes"
	"github.com/doccast/doccast/internal/events"
	applogger "github.com/doccast/doccast/internal/logger"
	"github.com/doccast/doccast/internal/podcast"
	"github.com/doccast/doccast/internal/providers/llm"
	"github.com/doccast/doccast/internal/providers/moderation"
	"github.com/doccast/doccast/internal/providers/tts"
	mongorepo "github.com/doccast/doccast/internal/repositories/mongo"
	"github.com/doccast/doccast/internal/services"
	"github.com/doccast/doccast/internal/storage"
)

func main() {
	_ = godotenv.Load()

	l := applogger.New()
	ctx := context.Background()

	mongoClient, err := config.NewMongo(ctx)
	if err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	rdb, err := config.NewRedis(ctx)
	if err != nil {
		log.Fatalf("Redis init error: %v", err)
	}

	store, err := storage.NewGCSStore(ctx, os.Getenv("GCS_BUCKET"))
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer store.Close()

	gen, err := newGenerationProvider(ctx)
	if err != nil {
		log.Fatalf("generation provider init error: %v", err)
	}
	defer gen.Close()

	mod, err := moderation.NewAzureContentSafety(moderation.AzureContentSafetyConfigFromEnv())
	if err != nil {
		log.Fatalf("moderation init error: %v", err)
	}

	var speech []tts.Provider
	if az, err := tts.NewAzureSpeech(tts.AzureSpeechConfigFromEnv()); err == nil {
		speech = append(speech, az)
	} else {
		l.WithError(err).Warn("azure speech not configured")
	}
	if el, err := tts.NewElevenLabs(tts.ElevenLabsConfigFromEnv()); err == nil {
		speech = append(speech, el)
	} else {
		l.WithError(err).Warn("elevenlabs not configured")
	}
	if len(speech) == 0 {
		log.Fatal("no tts provider configured")
	}

	retry := podcast.DefaultRetryPolicy()
	cfg := podcast.Config{
		Gate:     podcast.NewSafetyGate(mod, l.WithField("component", "safety_gate")),
		Scripts:  podcast.NewScriptGenerator(gen, podcast.DefaultMinTurnsPerTopic, l.WithField("component", "script_generator")),
		Renderer: podcast.NewRenderer(speech, podcast.DefaultVoiceMap(), retry, podcast.DefaultRenderConcurrency, l.WithField("component", "renderer")),
		Store:    store,
		Sink:     events.NewPublisher(rdb),
		Retry:    retry,
		Log:      l,
	}

	svc, err := services.NewPodcastService(cfg, mongorepo.NewSessionRepo(config.MongoDatabase(mongoClient)), store)
	if err != nil {
		log.Fatalf("service init error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(l))
	routes.RegisterRoutes(r, routes.Deps{
		Session: handlers.NewSessionHandler(svc),
		WS:      handlers.NewWSHandler(svc, rdb),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// newGenerationProvider prefers Azure OpenAI and falls back to Vertex Gemini
// when only Google credentials are present.
func newGenerationProvider(ctx context.Context) (llm.Provider, error) {
	if os.Getenv("AZURE_OPENAI_ENDPOINT") != "" {
		return llm.NewAzureOpenAI(llm.AzureOpenAIConfigFromEnv())
	}
	return llm.NewVertexGemini(ctx,
		os.Getenv("GOOGLE_PROJECT_ID"),
		os.Getenv("GOOGLE_LOCATION"),
		os.Getenv("GEMINI_MODEL"),
	)
}
