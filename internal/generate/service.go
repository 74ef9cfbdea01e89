// Package generate builds completion prompts from stored transcripts and
// relays backend output to the caller, buffered or streamed.
package generate

import (
	"context"
	"fmt"
	"strings"

	"video-scribe-go/internal/logger"
	"video-scribe-go/internal/prompts"
	"video-scribe-go/internal/store"
	"video-scribe-go/internal/types"
)

// Result is one buffered completion.
type Result struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Service is the completion service: transcript lookup, placeholder
// substitution, capacity selection, backend invocation.
type Service struct {
	store   *store.Store
	backend Backend
	tiers   TierTable
}

func NewService(st *store.Store, backend Backend, tiers TierTable) *Service {
	return &Service{store: st, backend: backend, tiers: tiers}
}

// prepare resolves the final prompt and model for a request. It fails before
// any backend contact when the transcript is absent or the tier is unknown.
func (s *Service) prepare(ctx context.Context, req types.CompletionRequest) (Request, error) {
	if req.Temperature < 0 || req.Temperature > 1 {
		return Request{}, fmt.Errorf("temperature %v out of range [0,1]", req.Temperature)
	}

	text, ok, err := s.store.Transcript(ctx, req.AssetID)
	if err != nil {
		return Request{}, err
	}
	if !ok {
		return Request{}, types.ErrTranscriptMissing
	}

	prompt := strings.ReplaceAll(req.PromptTemplate, prompts.Placeholder, text)
	model, err := s.tiers.SelectModel(req.ModelTier, len(prompt))
	if err != nil {
		return Request{}, err
	}

	logger.New().WithComponent("generate").
		WithField("asset_id", req.AssetID).
		WithField("model", model).
		WithField("prompt_chars", len(prompt)).
		Info("prompt prepared")

	return Request{Model: model, Temperature: req.Temperature, Prompt: prompt}, nil
}

// Generate runs one buffered completion.
func (s *Service) Generate(ctx context.Context, req types.CompletionRequest) (Result, error) {
	backendReq, err := s.prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}
	text, err := s.backend.Complete(ctx, backendReq)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Model: backendReq.Model}, nil
}

// GenerateStream starts one streamed completion, returning the selected
// model and the relay channel. Errors before the first chunk are returned
// directly; mid-stream failures arrive as a terminal chunk.
func (s *Service) GenerateStream(ctx context.Context, req types.CompletionRequest) (string, <-chan Chunk, error) {
	backendReq, err := s.prepare(ctx, req)
	if err != nil {
		return "", nil, err
	}
	ch, err := s.backend.CompleteStream(ctx, backendReq)
	if err != nil {
		return "", nil, err
	}
	return backendReq.Model, ch, nil
}
