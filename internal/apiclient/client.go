// Package apiclient is the pipeline's HTTP client for the server API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"video-scribe-go/internal/generate"
	"video-scribe-go/internal/types"
)

// streamErrorTrailer mirrors the server's mid-stream failure trailer.
const streamErrorTrailer = "X-Stream-Error"

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: streamed completions are open-ended.
		http: &http.Client{},
	}
}

// WaitReady polls the health endpoint until the server answers or the
// backoff budget runs out. Pipeline stages themselves never retry; this
// only guards startup ordering.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check status %d", resp.StatusCode)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
}

// Upload transfers a derived audio asset and returns its stored record. The
// extension is checked before any transfer; the server enforces the same
// policy again along with the size limit.
func (c *Client) Upload(ctx context.Context, asset types.MediaAsset) (types.StoredAsset, error) {
	if ext := strings.ToLower(filepath.Ext(asset.Filename)); ext != ".mp3" {
		return types.StoredAsset{}, fmt.Errorf("%w: %s", types.ErrInvalidExtension, ext)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", asset.Filename)
	if err != nil {
		return types.StoredAsset{}, err
	}
	if _, err := fw.Write(asset.Bytes); err != nil {
		return types.StoredAsset{}, err
	}
	if err := mw.Close(); err != nil {
		return types.StoredAsset{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets", &buf)
	if err != nil {
		return types.StoredAsset{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return types.StoredAsset{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusRequestEntityTooLarge:
		return types.StoredAsset{}, types.ErrPayloadTooLarge
	default:
		return types.StoredAsset{}, decodeAPIError(resp)
	}

	var asset2 types.StoredAsset
	if err := json.NewDecoder(resp.Body).Decode(&asset2); err != nil {
		return types.StoredAsset{}, fmt.Errorf("decode upload response: %w", err)
	}
	return asset2, nil
}

// Transcribe requests a transcription for a stored asset.
func (c *Client) Transcribe(ctx context.Context, assetID, hint string) (string, error) {
	payload, err := json.Marshal(map[string]string{"hint": hint})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/assets/%s/transcription", c.baseURL, assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", decodeAPIError(resp)
	}

	var out struct {
		TranscriptText string `json:"transcriptText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return out.TranscriptText, nil
}

type completionPayload struct {
	AssetID        string  `json:"assetId"`
	PromptTemplate string  `json:"promptTemplate"`
	Temperature    float32 `json:"temperature"`
	ModelTier      string  `json:"modelTier"`
	Stream         bool    `json:"stream"`
}

func (c *Client) postCompletion(ctx context.Context, req types.CompletionRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(completionPayload{
		AssetID:        req.AssetID,
		PromptTemplate: req.PromptTemplate,
		Temperature:    req.Temperature,
		ModelTier:      string(req.ModelTier),
		Stream:         stream,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return resp, nil
}

// Generate runs one buffered completion.
func (c *Client) Generate(ctx context.Context, req types.CompletionRequest) (generate.Result, error) {
	resp, err := c.postCompletion(ctx, req, false)
	if err != nil {
		return generate.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return generate.Result{}, decodeAPIError(resp)
	}
	var out generate.Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return generate.Result{}, fmt.Errorf("decode completion response: %w", err)
	}
	return out, nil
}

// GenerateStream runs one streamed completion, relaying server chunks as
// they arrive. A mid-stream server failure surfaces as a terminal chunk
// carrying the error.
func (c *Client) GenerateStream(ctx context.Context, req types.CompletionRequest) (<-chan generate.Chunk, error) {
	resp, err := c.postCompletion(ctx, req, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	out := make(chan generate.Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		buf := make([]byte, 512)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case out <- generate.Chunk{Delta: string(buf[:n])}:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				if msg := resp.Trailer.Get(streamErrorTrailer); msg != "" {
					out <- generate.Chunk{Err: fmt.Errorf("generation interrupted: %s", msg)}
				}
				return
			}
			if err != nil {
				out <- generate.Chunk{Err: fmt.Errorf("read stream: %w", err)}
				return
			}
		}
	}()
	return out, nil
}

// Prompts fetches the server's template catalog.
func (c *Client) Prompts(ctx context.Context) ([]PromptEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prompts", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var out []PromptEntry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode prompts response: %w", err)
	}
	return out, nil
}

// PromptEntry is one catalog row as served by the API.
type PromptEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Template string `json:"template"`
}

// Assets lists the server's stored assets.
func (c *Client) Assets(ctx context.Context) ([]types.StoredAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/assets", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var out []types.StoredAsset
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode assets response: %w", err)
	}
	return out, nil
}
