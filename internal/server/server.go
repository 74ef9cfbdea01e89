// Package server exposes the caller-facing HTTP API: asset upload,
// transcription, completions, and the prompt catalog.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"video-scribe-go/internal/config"
	"video-scribe-go/internal/generate"
	"video-scribe-go/internal/logger"
	"video-scribe-go/internal/prompts"
	"video-scribe-go/internal/store"
	"video-scribe-go/internal/transcription"
)

type Server struct {
	cfg        *config.Config
	store      *store.Store
	transcribe *transcription.Service
	completion *generate.Service
	catalog    []prompts.Prompt
}

func New(cfg *config.Config, st *store.Store, ts *transcription.Service, cs *generate.Service, catalog []prompts.Prompt) *Server {
	return &Server{cfg: cfg, store: st, transcribe: ts, completion: cs, catalog: catalog}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /prompts", s.handlePrompts)
	mux.HandleFunc("GET /assets", s.handleListAssets)
	mux.HandleFunc("POST /assets", s.handleUpload)
	mux.HandleFunc("POST /assets/{id}/transcription", s.handleTranscription)
	mux.HandleFunc("POST /completions", s.handleCompletion)

	return mux
}

func requestLog(r *http.Request, handler string) *logrus.Entry {
	return logger.New().WithRequest(r).WithField("handler", handler)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.store.List(r.Context())
	if err != nil {
		requestLog(r, "assets").WithError(err).Error("list assets failed")
		writeError(w, http.StatusInternalServerError, "list assets failed")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}
