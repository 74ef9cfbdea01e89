// Package pipeline drives one video through convert, upload, and
// transcription as a strictly forward state machine. A controller is bound
// to a single input asset; retrying a failed run means building a new
// controller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"video-scribe-go/internal/convert"
	"video-scribe-go/internal/logger"
	"video-scribe-go/internal/types"
)

// State is one pipeline stage. States only ever advance.
type State string

const (
	StateWaiting      State = "waiting"
	StateConverting   State = "converting"
	StateUploading    State = "uploading"
	StateTranscribing State = "transcribing"
	StateDone         State = "done"
)

// Index returns the state's position in the forward order, for callers that
// need to compare progress.
func (s State) Index() int {
	switch s {
	case StateWaiting:
		return 0
	case StateConverting:
		return 1
	case StateUploading:
		return 2
	case StateTranscribing:
		return 3
	case StateDone:
		return 4
	default:
		return -1
	}
}

// ErrRunConsumed is returned when Run is called more than once.
var ErrRunConsumed = errors.New("pipeline run already consumed")

// MediaConverter derives the audio asset. Satisfied by convert.Converter.
type MediaConverter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Result, error)
}

// Uploader and Transcriber are the server-facing stages. Satisfied by
// apiclient.Client.
type Uploader interface {
	Upload(ctx context.Context, asset types.MediaAsset) (types.StoredAsset, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, assetID, hint string) (string, error)
}

// Observer receives state changes and conversion progress. Callbacks run on
// the Run goroutine; keep them fast.
type Observer struct {
	OnState    func(state State)
	OnProgress func(fraction float64)
}

// Result is a completed run.
type Result struct {
	Asset      types.StoredAsset
	Transcript string
}

// Controller owns the run's state. Failure freezes the controller in the
// failing stage; it never reverts to waiting.
type Controller struct {
	converter   MediaConverter
	uploader    Uploader
	transcriber Transcriber
	input       types.MediaAsset
	hint        string
	observer    Observer

	mu       sync.RWMutex
	state    State
	stageErr error
	result   Result
}

func NewController(conv MediaConverter, up Uploader, tr Transcriber, input types.MediaAsset, hint string, obs Observer) *Controller {
	return &Controller{
		converter:   conv,
		uploader:    up,
		transcriber: tr,
		input:       input,
		hint:        hint,
		observer:    obs,
		state:       StateWaiting,
	}
}

// State returns the current stage.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the stage error of a failed run, nil otherwise.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stageErr
}

// InputLocked reports whether caller-facing inputs (such as the
// transcription hint) must be treated as locked by the presentation layer.
func (c *Controller) InputLocked() bool {
	return c.State() != StateWaiting
}

// advance moves to the next stage, validating the forward-only order.
func (c *Controller) advance(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next.Index() != c.state.Index()+1 {
		return fmt.Errorf("invalid transition: %s -> %s", c.state, next)
	}
	c.state = next
	if c.observer.OnState != nil {
		c.observer.OnState(next)
	}
	return nil
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.stageErr = err
	state := c.state
	c.mu.Unlock()
	return fmt.Errorf("%s: %w", state, err)
}

// Run executes the three stages sequentially. Each stage's success is a
// precondition for the next; there is no auto-retry. Run consumes the
// controller: a second call fails regardless of the first call's outcome.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	log := logger.New().WithComponent("pipeline").WithField("input", c.input.Filename)

	if c.State() != StateWaiting {
		return Result{}, ErrRunConsumed
	}

	if err := c.advance(StateConverting); err != nil {
		return Result{}, err
	}
	log.Info("converting")
	converted, err := c.converter.Convert(ctx, convert.Request{
		Input:      c.input,
		OnProgress: c.observer.OnProgress,
	})
	if err != nil {
		return Result{}, c.fail(err)
	}

	if err := c.advance(StateUploading); err != nil {
		return Result{}, err
	}
	log.WithField("audio_bytes", len(converted.Audio.Bytes)).Info("uploading")
	asset, err := c.uploader.Upload(ctx, converted.Audio)
	if err != nil {
		return Result{}, c.fail(err)
	}

	if err := c.advance(StateTranscribing); err != nil {
		return Result{}, err
	}
	log.WithField("asset_id", asset.ID).Info("transcribing")
	transcript, err := c.transcriber.Transcribe(ctx, asset.ID, c.hint)
	if err != nil {
		return Result{}, c.fail(err)
	}

	if err := c.advance(StateDone); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.result = Result{Asset: asset, Transcript: transcript}
	res := c.result
	c.mu.Unlock()
	log.Info("pipeline done")
	return res, nil
}
