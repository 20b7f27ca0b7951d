// Package upstream defines the capability contract the routing core uses to
// talk to a remote chat-completion service, without knowing which one.
package upstream

import "context"

// Role is the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPart is one piece of a message's content when the content is an
// ordered sequence rather than a plain string.
type ContentPart struct {
	Type     string `json:"type"` // "text" or "image"
	Text     string `json:"text,omitempty"`
	ImageRef string `json:"image_url,omitempty"`
}

// Message is one entry in the validated conversation passed to an adapter.
type Message struct {
	Role    Role          `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// Options carries pass-through generation parameters. Zero values mean
// "unset"; pointers are used where the distinction between unset and
// zero matters to the remote API.
type Options struct {
	Model            string
	Temperature      *float64
	TopP             *float64
	MaxTokens        int
	Stop             []string
	Tools            []byte // raw JSON tool definitions as the client sent them
	ToolChoice       []byte // raw JSON; neither bundled adapter sends Tools or ToolChoice upstream
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

// Chunk is one non-empty piece of streamed text.
type Chunk struct {
	Text string
}

// FinalResponse is the result of a non-streaming Complete call.
type FinalResponse struct {
	Content string
}

// Stream is a pull-based, non-restartable sequence of chunks. Next blocks
// until the next chunk is available, the sequence ends (io.EOF-like via
// ok=false, err=nil), or it fails. Close releases the underlying
// connection; it must be safe to call Close before fully draining Next,
// and safe to call more than once.
type Stream interface {
	Next(ctx context.Context) (chunk Chunk, ok bool, err error)
	Close() error
}

// Adapter is the capability every upstream provider exposes to the core.
// The core is polymorphic over this interface only; it never type-switches
// on a concrete provider.
type Adapter interface {
	// Stream opens a lazy sequence of text chunks for one request.
	Stream(ctx context.Context, messages []Message, opts Options) (Stream, error)

	// Complete returns a non-streaming final response, for clients that
	// disabled streaming. An adapter without a native non-streaming path
	// may implement this by draining Stream internally.
	Complete(ctx context.Context, messages []Message, opts Options) (*FinalResponse, error)
}
