// Package llm invokes chat-completion models for attribute extraction.
//
// Two backends implement the Invoker contract: AWS Bedrock through the
// Converse API and the Anthropic Messages API. Client wraps a backend with
// the throttling-aware retry loop shared by every pipeline stage, so callers
// see a single Converse call that either returns text or a classified
// InvokeError.
package llm

import (
	"context"

	"github.com/haasonsaas/quarry/pkg/models"
)

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is one rasterized page attached to a message.
type Image struct {
	// Format is the encoded container format, "jpeg" or "png".
	Format string

	// Bytes is the raw encoded image.
	Bytes []byte
}

// Block is one content block of a message. Exactly one field is set.
type Block struct {
	Text  string
	Image *Image
}

// TextBlock builds a text content block.
func TextBlock(text string) Block { return Block{Text: text} }

// ImageBlock builds an image content block.
func ImageBlock(format string, data []byte) Block {
	return Block{Image: &Image{Format: format, Bytes: data}}
}

// Message is one conversational turn, oldest first in Request.Messages.
type Message struct {
	Role    Role
	Content []Block
}

// UserMessage builds a user turn from content blocks.
func UserMessage(blocks ...Block) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// AssistantMessage builds an assistant turn from content blocks.
func AssistantMessage(blocks ...Block) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// Request is one completion request.
type Request struct {
	// ModelID is the provider model identifier. Client fills it from
	// Params.ModelID, then from the configured default, when empty.
	ModelID string

	// System is the system prompt. Empty means none is sent.
	System string

	// Messages is the conversation to complete.
	Messages []Message

	// Params carries the caller's inference knobs. Unset knobs fall back
	// to the provider defaults in this package.
	Params models.ModelParams
}

// Usage is the token consumption reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is a completed request.
type Response struct {
	// Text is the reply's single text block, or "" when the model
	// returned no text content.
	Text string

	// Usage is the provider-reported token consumption.
	Usage Usage

	// StopReason is the provider's stop reason, verbatim.
	StopReason string

	// Retries counts the throttled attempts that preceded this response.
	// Zero when the first attempt succeeded.
	Retries int
}

// Invoker sends one completion request to a model backend.
//
// Implementations return *InvokeError for provider failures so callers can
// distinguish throttling from permanent errors.
type Invoker interface {
	Converse(ctx context.Context, req Request) (Response, error)
}
