// Package speech wraps the remote speech-to-text backend.
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"video-scribe-go/internal/types"
)

// Request carries one audio stream to transcribe. Hint is passed to the
// backend as a vocabulary/style prompt; it is never concatenated into the
// transcript.
type Request struct {
	Audio    io.Reader
	Filename string
	Hint     string
	Language string
}

// Recognizer converts audio to text.
type Recognizer interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// OpenAIRecognizer calls a whisper-style endpoint through the OpenAI API.
type OpenAIRecognizer struct {
	cli   *openai.Client
	model string
}

// NewOpenAIRecognizer builds a recognizer against the given endpoint. An
// empty baseURL targets the public API.
func NewOpenAIRecognizer(apiKey, baseURL, model string) *OpenAIRecognizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIRecognizer{cli: openai.NewClientWithConfig(cfg), model: model}
}

// Transcribe runs deterministic decoding (temperature 0) with a fixed
// language setting.
func (r *OpenAIRecognizer) Transcribe(ctx context.Context, req Request) (string, error) {
	resp, err := r.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:       r.model,
		Reader:      req.Audio,
		FilePath:    req.Filename,
		Prompt:      req.Hint,
		Language:    req.Language,
		Temperature: 0,
	})
	if err != nil {
		return "", &types.BackendError{Backend: "speech", Err: err}
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &types.BackendError{Backend: "speech", Err: fmt.Errorf("empty transcription result")}
	}
	return text, nil
}
