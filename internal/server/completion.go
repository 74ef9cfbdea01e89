package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"video-scribe-go/internal/types"
)

// streamErrorTrailer carries a mid-stream backend failure to the caller
// after chunks have already been relayed.
const streamErrorTrailer = "X-Stream-Error"

type completionRequest struct {
	AssetID        string  `json:"assetId"`
	PromptTemplate string  `json:"promptTemplate"`
	Temperature    float32 `json:"temperature"`
	ModelTier      string  `json:"modelTier"`
	Stream         bool    `json:"stream"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "completion")

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.AssetID == "" || req.PromptTemplate == "" || req.ModelTier == "" {
		writeError(w, http.StatusBadRequest, "assetId, promptTemplate and modelTier are required")
		return
	}
	if req.Temperature < 0 || req.Temperature > 1 {
		writeError(w, http.StatusBadRequest, "temperature must be within [0,1]")
		return
	}

	coreReq := types.CompletionRequest{
		AssetID:        req.AssetID,
		PromptTemplate: req.PromptTemplate,
		ModelTier:      types.ModelTier(req.ModelTier),
		Temperature:    req.Temperature,
	}

	if req.Stream {
		s.streamCompletion(w, r, coreReq)
		return
	}

	res, err := s.completion.Generate(r.Context(), coreReq)
	if err != nil {
		s.writeCompletionError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, req types.CompletionRequest) {
	log := requestLog(r, "completion").WithField("stream", true)

	model, ch, err := s.completion.GenerateStream(r.Context(), req)
	if err != nil {
		s.writeCompletionError(w, log, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Model", model)
	w.Header().Set("Trailer", streamErrorTrailer)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Relay each chunk as it arrives; never buffer the whole output.
	for chunk := range ch {
		if chunk.Err != nil {
			log.WithError(chunk.Err).Warn("generation stream interrupted")
			w.Header().Set(streamErrorTrailer, chunk.Err.Error())
			return
		}
		if chunk.Delta == "" {
			continue
		}
		if _, err := w.Write([]byte(chunk.Delta)); err != nil {
			// Caller went away; ctx cancellation tears down the backend.
			log.WithError(err).Debug("client disconnected mid-stream")
			return
		}
		flusher.Flush()
	}
}

// writeCompletionError maps completion failures before the first byte:
// missing transcript and unknown assets are caller-correctable
// preconditions, backend failures are 502.
func (s *Server) writeCompletionError(w http.ResponseWriter, log *logrus.Entry, err error) {
	var be *types.BackendError
	switch {
	case errors.Is(err, types.ErrTranscriptMissing):
		writeError(w, http.StatusBadRequest, "transcript not generated yet")
	case errors.Is(err, types.ErrAssetNotFound):
		writeError(w, http.StatusBadRequest, "unknown asset id")
	case errors.Is(err, types.ErrUnknownTier):
		writeError(w, http.StatusBadRequest, "unknown model tier")
	case errors.As(err, &be):
		log.WithError(err).Warn("generation backend failed")
		writeError(w, http.StatusBadGateway, be.Error())
	default:
		log.WithError(err).Error("completion failed")
		writeError(w, http.StatusInternalServerError, "completion failed")
	}
}
