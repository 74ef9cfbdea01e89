package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"video-scribe-go/internal/types"
)

type transcriptionRequest struct {
	Hint string `json:"hint"`
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "transcription")

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "malformed asset id")
		return
	}

	var req transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	text, err := s.transcribe.Transcribe(r.Context(), id, req.Hint)
	if err != nil {
		var be *types.BackendError
		switch {
		case errors.Is(err, types.ErrAssetNotFound):
			writeError(w, http.StatusNotFound, "unknown asset id")
		case errors.As(err, &be):
			log.WithError(err).Warn("speech backend failed")
			writeError(w, http.StatusBadGateway, be.Error())
		default:
			log.WithError(err).Error("transcription failed")
			writeError(w, http.StatusInternalServerError, "transcription failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"transcriptText": text})
}
