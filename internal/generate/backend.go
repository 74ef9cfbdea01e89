package generate

import "context"

// Request is one generation call: the already-substituted prompt sent as a
// single user message to the selected model.
type Request struct {
	Model       string
	Temperature float32
	Prompt      string
}

// Chunk is one relayed piece of a streamed generation. A non-nil Err is
// terminal: the producer closes the channel right after sending it, and any
// chunks relayed before it stay delivered.
type Chunk struct {
	Delta string
	Err   error
}

// Backend is the remote generation service.
type Backend interface {
	// Complete returns the full response text in one piece.
	Complete(ctx context.Context, req Request) (string, error)
	// CompleteStream returns a channel of chunks in backend arrival order.
	// Cancelling ctx stops the relay and releases the backend connection.
	CompleteStream(ctx context.Context, req Request) (<-chan Chunk, error)
}
