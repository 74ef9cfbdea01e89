package generate

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"video-scribe-go/internal/types"
)

// OpenAIBackend runs completions through an OpenAI-compatible chat endpoint.
type OpenAIBackend struct {
	cli *openai.Client
}

// NewOpenAIBackend builds a backend against the given endpoint. An empty
// baseURL targets the public API.
func NewOpenAIBackend(apiKey, baseURL string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIBackend{cli: openai.NewClientWithConfig(cfg)}
}

func chatRequest(req Request, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
}

func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := b.cli.CreateChatCompletion(ctx, chatRequest(req, false))
	if err != nil {
		return "", &types.BackendError{Backend: "generation", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &types.BackendError{Backend: "generation", Err: fmt.Errorf("no choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) CompleteStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	stream, err := b.cli.CreateChatCompletionStream(ctx, chatRequest(req, true))
	if err != nil {
		return nil, &types.BackendError{Backend: "generation", Err: err}
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Err: &types.BackendError{Backend: "generation", Err: err}}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			select {
			case out <- Chunk{Delta: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
