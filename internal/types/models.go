package types

import (
	"errors"
	"fmt"
)

// MediaAsset is a transient blob of media bytes plus its declared type.
// It is owned by the caller until handed to the converter or the upload
// client.
type MediaAsset struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Bytes    []byte `json:"-"`
}

// StoredAsset is one uploaded audio file as recorded by the server. ID is
// opaque and immutable once assigned; Name keeps the original filename for
// display while StoragePath points at the disambiguated file on disk.
type StoredAsset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StoragePath string `json:"storage_path,omitempty"`
}

// ModelTier names a class of generation model with a base and an
// expanded-context variant.
type ModelTier string

const (
	TierA ModelTier = "tierA"
	TierB ModelTier = "tierB"
)

// CompletionRequest describes one generation call against a stored asset's
// transcript.
type CompletionRequest struct {
	AssetID        string    `json:"asset_id"`
	PromptTemplate string    `json:"prompt_template"`
	ModelTier      ModelTier `json:"model_tier"`
	Temperature    float32   `json:"temperature"`
}

// Precondition errors: user-correctable, surfaced as 4xx, never reach a
// backend.
var (
	ErrUnsupportedInput  = errors.New("unsupported input container")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrTranscriptMissing = errors.New("transcript not generated yet")
	ErrUnknownTier       = errors.New("unknown model tier")
)

// BackendError wraps a speech-to-text or generation service failure, keeping
// the backend's own message for the caller.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
