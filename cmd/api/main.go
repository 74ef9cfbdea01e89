package main

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"video-scribe-go/internal/config"
	"video-scribe-go/internal/generate"
	"video-scribe-go/internal/logger"
	"video-scribe-go/internal/prompts"
	"video-scribe-go/internal/server"
	"video-scribe-go/internal/speech"
	"video-scribe-go/internal/store"
	"video-scribe-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithField("service", "video-scribe-go")
	log.Info("starting service")

	cfg, err := config.Load("")
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.WithError(err).Fatal("failed to prepare data directories")
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "assets.db"))
	if err != nil {
		log.WithError(err).Fatal("failed to open asset store")
	}
	defer st.Close()

	catalog, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		log.WithError(err).WithField("prompts_path", cfg.PromptsPath).Fatal("failed to load prompt catalog")
	}
	log.WithField("prompt_count", len(catalog)).Info("prompt catalog loaded")

	recognizer := speech.NewOpenAIRecognizer(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.SpeechModel)
	backend := generate.NewOpenAIBackend(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)

	tiers := generate.TierTable{}
	for name, tier := range cfg.Tiers {
		tiers[name] = generate.TierSpec{
			BaseModel:     tier.BaseModel,
			BaseCharLimit: tier.BaseCharLimit,
			ExpandedModel: tier.ExpandedModel,
		}
	}

	srv := server.New(cfg, st,
		transcription.NewService(st, recognizer, cfg.Language),
		generate.NewService(st, backend, tiers),
		catalog,
	)

	httpSrv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     srv.Handler(),
		ReadTimeout: 60 * time.Second,
		// No WriteTimeout: streamed completions are open-ended.
		IdleTimeout: 120 * time.Second,
	}
	log.WithField("addr", cfg.Addr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
