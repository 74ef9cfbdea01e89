package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"video-scribe-go/internal/types"
)

func TestUploadRejectsWrongExtensionBeforeTransfer(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.Upload(context.Background(), types.MediaAsset{Filename: "clip.mp4"})
	if !errors.Is(err, types.ErrInvalidExtension) {
		t.Fatalf("err = %v, want ErrInvalidExtension", err)
	}
	if requests != 0 {
		t.Fatal("no request may be sent for a wrong extension")
	}
}

func TestUploadDecodesStoredAsset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/assets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc", "name": "talk.mp3"})
	}))
	defer ts.Close()

	c := New(ts.URL)
	asset, err := c.Upload(context.Background(), types.MediaAsset{Filename: "talk.mp3", Bytes: []byte("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.ID != "abc" || asset.Name != "talk.mp3" {
		t.Fatalf("asset = %+v", asset)
	}
}

func TestUploadMapsPayloadTooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"too big"}`, http.StatusRequestEntityTooLarge)
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.Upload(context.Background(), types.MediaAsset{Filename: "talk.mp3"})
	if !errors.Is(err, types.ErrPayloadTooLarge) {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestTranscribe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/abc/transcription" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["hint"] != "keywords" {
			t.Errorf("hint = %q", body["hint"])
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"transcriptText": "hello"})
	}))
	defer ts.Close()

	text, err := New(ts.URL).Transcribe(context.Background(), "abc", "keywords")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello" {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeSurfacesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown asset id"})
	}))
	defer ts.Close()

	_, err := New(ts.URL).Transcribe(context.Background(), "abc", "")
	if err == nil || !strings.Contains(err.Error(), "unknown asset id") {
		t.Fatalf("err = %v, want server message preserved", err)
	}
}

func TestGenerateStreamRelaysAndReportsTrailer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Trailer", streamErrorTrailer)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, c := range []string{"c1", "c2", "c3"} {
			_, _ = w.Write([]byte(c))
			flusher.Flush()
		}
		w.Header().Set(streamErrorTrailer, "rate limited")
	}))
	defer ts.Close()

	ch, err := New(ts.URL).GenerateStream(context.Background(), types.CompletionRequest{
		AssetID: "abc", PromptTemplate: "t", ModelTier: types.TierA,
	})
	if err != nil {
		t.Fatalf("generate stream: %v", err)
	}

	var text strings.Builder
	var terminal error
	for c := range ch {
		if c.Err != nil {
			terminal = c.Err
			continue
		}
		text.WriteString(c.Delta)
	}
	if text.String() != "c1c2c3" {
		t.Fatalf("text = %q, want c1c2c3", text.String())
	}
	if terminal == nil || !strings.Contains(terminal.Error(), "rate limited") {
		t.Fatalf("terminal = %v, want rate limited", terminal)
	}
}

func TestWaitReadyRecoversFromSlowStart(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	if err := New(ts.URL).WaitReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	if hits < 3 {
		t.Fatalf("hits = %d, want at least 3", hits)
	}
}
