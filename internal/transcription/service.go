// Package transcription turns stored audio assets into transcript records.
package transcription

import (
	"context"
	"fmt"
	"os"

	"video-scribe-go/internal/logger"
	"video-scribe-go/internal/speech"
	"video-scribe-go/internal/store"
)

// Service streams stored audio to the speech backend and persists the
// resulting text. Re-transcription is allowed; the latest result wins.
type Service struct {
	store      *store.Store
	recognizer speech.Recognizer
	language   string
	openFile   func(name string) (*os.File, error)
}

func NewService(st *store.Store, rec speech.Recognizer, language string) *Service {
	return &Service{
		store:      st,
		recognizer: rec,
		language:   language,
		openFile:   os.Open,
	}
}

// Transcribe looks up the asset, runs the backend with the caller's hint,
// stores the transcript, and returns it. No partial transcript is ever
// stored: the write happens only after the backend succeeds.
func (s *Service) Transcribe(ctx context.Context, assetID, hint string) (string, error) {
	log := logger.New().WithComponent("transcription").WithField("asset_id", assetID)

	asset, err := s.store.Get(ctx, assetID)
	if err != nil {
		return "", err
	}

	f, err := s.openFile(asset.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open stored audio: %w", err)
	}
	defer f.Close()

	log.Info("starting transcription")
	text, err := s.recognizer.Transcribe(ctx, speech.Request{
		Audio:    f,
		Filename: asset.StoragePath,
		Hint:     hint,
		Language: s.language,
	})
	if err != nil {
		log.WithError(err).Warn("speech backend failed")
		return "", err
	}

	if err := s.store.SetTranscript(ctx, assetID, text); err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	log.WithField("transcript_chars", len(text)).Info("transcription stored")
	return text, nil
}
