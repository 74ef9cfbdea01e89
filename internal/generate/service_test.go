package generate

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"video-scribe-go/internal/prompts"
	"video-scribe-go/internal/store"
	"video-scribe-go/internal/types"
)

func testTiers() TierTable {
	return TierTable{
		types.TierA: {BaseModel: "base-a", BaseCharLimit: 100, ExpandedModel: "big-a"},
		types.TierB: {BaseModel: "base-b", BaseCharLimit: 200, ExpandedModel: "big-b"},
	}
}

type fakeBackend struct {
	gotReq  Request
	text    string
	err     error
	chunks  []Chunk
	calls   int
	started bool
}

func (f *fakeBackend) Complete(_ context.Context, req Request) (string, error) {
	f.calls++
	f.gotReq = req
	return f.text, f.err
}

func (f *fakeBackend) CompleteStream(_ context.Context, req Request) (<-chan Chunk, error) {
	f.calls++
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	f.started = true
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for _, c := range f.chunks {
			out <- c
		}
	}()
	return out, nil
}

func newTestService(t *testing.T, backend Backend, transcript string) (*Service, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "assets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	asset, err := st.Put(context.Background(), "talk.mp3", "/tmp/talk-abc.mp3")
	if err != nil {
		t.Fatalf("put asset: %v", err)
	}
	if transcript != "" {
		if err := st.SetTranscript(context.Background(), asset.ID, transcript); err != nil {
			t.Fatalf("set transcript: %v", err)
		}
	}
	return NewService(st, backend, testTiers()), asset.ID
}

func TestSelectModelBoundary(t *testing.T) {
	tiers := testTiers()
	cases := []struct {
		name      string
		tier      types.ModelTier
		promptLen int
		want      string
	}{
		{"under limit", types.TierA, 99, "base-a"},
		{"at limit stays base", types.TierA, 100, "base-a"},
		{"over limit expands", types.TierA, 101, "big-a"},
		{"tierB under", types.TierB, 200, "base-b"},
		{"tierB over", types.TierB, 201, "big-b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tiers.SelectModel(tc.tier, tc.promptLen)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if got != tc.want {
				t.Fatalf("model = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSelectModelUnknownTier(t *testing.T) {
	if _, err := testTiers().SelectModel("tierZ", 10); !errors.Is(err, types.ErrUnknownTier) {
		t.Fatalf("err = %v, want ErrUnknownTier", err)
	}
}

func TestGenerateSubstitutesAllPlaceholders(t *testing.T) {
	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"none", "no placeholder here", "no placeholder here"},
		{"one", "summary of " + prompts.Placeholder, "summary of hello"},
		{"many", prompts.Placeholder + " and " + prompts.Placeholder, "hello and hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{text: "ok"}
			svc, assetID := newTestService(t, backend, "hello")

			_, err := svc.Generate(context.Background(), types.CompletionRequest{
				AssetID:        assetID,
				PromptTemplate: tc.template,
				ModelTier:      types.TierA,
				Temperature:    0.5,
			})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if backend.gotReq.Prompt != tc.want {
				t.Fatalf("prompt = %q, want %q", backend.gotReq.Prompt, tc.want)
			}
		})
	}
}

func TestGeneratePicksExpandedModelForLongPrompt(t *testing.T) {
	backend := &fakeBackend{text: "ok"}
	svc, assetID := newTestService(t, backend, strings.Repeat("x", 150))

	res, err := svc.Generate(context.Background(), types.CompletionRequest{
		AssetID:        assetID,
		PromptTemplate: prompts.Placeholder,
		ModelTier:      types.TierA,
		Temperature:    0,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Model != "big-a" || backend.gotReq.Model != "big-a" {
		t.Fatalf("model = %q/%q, want big-a", res.Model, backend.gotReq.Model)
	}
}

func TestGenerateMissingTranscriptNeverHitsBackend(t *testing.T) {
	backend := &fakeBackend{text: "unused"}
	svc, assetID := newTestService(t, backend, "")

	_, err := svc.Generate(context.Background(), types.CompletionRequest{
		AssetID:        assetID,
		PromptTemplate: prompts.Placeholder,
		ModelTier:      types.TierA,
		Temperature:    0.5,
	})
	if !errors.Is(err, types.ErrTranscriptMissing) {
		t.Fatalf("err = %v, want ErrTranscriptMissing", err)
	}
	if backend.calls != 0 {
		t.Fatal("backend must not be contacted without a transcript")
	}
}

func TestGenerateRejectsTemperatureOutOfRange(t *testing.T) {
	backend := &fakeBackend{}
	svc, assetID := newTestService(t, backend, "hello")

	for _, temp := range []float32{-0.1, 1.1} {
		_, err := svc.Generate(context.Background(), types.CompletionRequest{
			AssetID:        assetID,
			PromptTemplate: "t",
			ModelTier:      types.TierA,
			Temperature:    temp,
		})
		if err == nil {
			t.Fatalf("temperature %v accepted", temp)
		}
	}
	if backend.calls != 0 {
		t.Fatal("backend must not be contacted for invalid temperature")
	}
}

func TestGenerateStreamRelaysChunksInOrder(t *testing.T) {
	streamErr := &types.BackendError{Backend: "generation", Err: errors.New("rate limited")}
	backend := &fakeBackend{chunks: []Chunk{
		{Delta: "c1"}, {Delta: "c2"}, {Delta: "c3"}, {Err: streamErr},
	}}
	svc, assetID := newTestService(t, backend, "hello")

	model, ch, err := svc.GenerateStream(context.Background(), types.CompletionRequest{
		AssetID:        assetID,
		PromptTemplate: prompts.Placeholder,
		ModelTier:      types.TierA,
		Temperature:    0.5,
	})
	if err != nil {
		t.Fatalf("generate stream: %v", err)
	}
	if model != "base-a" {
		t.Fatalf("model = %q, want base-a", model)
	}

	var deltas []string
	var terminal error
	for c := range ch {
		if c.Err != nil {
			terminal = c.Err
			continue
		}
		deltas = append(deltas, c.Delta)
	}
	if got := strings.Join(deltas, ","); got != "c1,c2,c3" {
		t.Fatalf("deltas = %q, want c1,c2,c3", got)
	}
	if !errors.Is(terminal, streamErr) {
		t.Fatalf("terminal err = %v, want %v", terminal, streamErr)
	}
}

func TestGenerateStreamMissingTranscript(t *testing.T) {
	backend := &fakeBackend{chunks: []Chunk{{Delta: "never"}}}
	svc, assetID := newTestService(t, backend, "")

	_, _, err := svc.GenerateStream(context.Background(), types.CompletionRequest{
		AssetID:        assetID,
		PromptTemplate: "t",
		ModelTier:      types.TierA,
		Temperature:    0,
	})
	if !errors.Is(err, types.ErrTranscriptMissing) {
		t.Fatalf("err = %v, want ErrTranscriptMissing", err)
	}
	if backend.started {
		t.Fatal("stream must not start without a transcript")
	}
}
