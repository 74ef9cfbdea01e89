package transcription

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"video-scribe-go/internal/speech"
	"video-scribe-go/internal/store"
	"video-scribe-go/internal/types"
)

type fakeRecognizer struct {
	text    string
	err     error
	gotHint string
	gotLang string
	calls   int
}

func (f *fakeRecognizer) Transcribe(_ context.Context, req speech.Request) (string, error) {
	f.calls++
	f.gotHint = req.Hint
	f.gotLang = req.Language
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestService(t *testing.T, rec speech.Recognizer) (*Service, *store.Store, types.StoredAsset) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "assets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	audioPath := filepath.Join(dir, "talk-abc.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	asset, err := st.Put(context.Background(), "talk.mp3", audioPath)
	if err != nil {
		t.Fatalf("put asset: %v", err)
	}
	return NewService(st, rec, "en"), st, asset
}

func TestTranscribeStoresResult(t *testing.T) {
	rec := &fakeRecognizer{text: "hello from the video"}
	svc, st, asset := newTestService(t, rec)

	text, err := svc.Transcribe(context.Background(), asset.ID, "keywords: hello")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello from the video" {
		t.Fatalf("text = %q", text)
	}
	if rec.gotHint != "keywords: hello" || rec.gotLang != "en" {
		t.Fatalf("recognizer got hint=%q lang=%q", rec.gotHint, rec.gotLang)
	}

	stored, ok, err := st.Transcript(context.Background(), asset.ID)
	if err != nil || !ok {
		t.Fatalf("transcript lookup: ok=%v err=%v", ok, err)
	}
	if stored != text {
		t.Fatalf("stored = %q, want %q", stored, text)
	}
}

func TestTranscribeUnknownAsset(t *testing.T) {
	rec := &fakeRecognizer{text: "unused"}
	svc, _, _ := newTestService(t, rec)

	_, err := svc.Transcribe(context.Background(), "missing-id", "")
	if !errors.Is(err, types.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if rec.calls != 0 {
		t.Fatal("recognizer must not be called for unknown assets")
	}
}

func TestTranscribeBackendFailureStoresNothing(t *testing.T) {
	backendErr := &types.BackendError{Backend: "speech", Err: errors.New("quota exceeded")}
	rec := &fakeRecognizer{err: backendErr}
	svc, st, asset := newTestService(t, rec)

	_, err := svc.Transcribe(context.Background(), asset.ID, "")
	var be *types.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BackendError", err)
	}

	_, ok, err := st.Transcript(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("transcript lookup: %v", err)
	}
	if ok {
		t.Fatal("no transcript may be stored after backend failure")
	}
}
