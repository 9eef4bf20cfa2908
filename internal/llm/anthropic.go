package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/pkg/models"
)

// AnthropicInvoker calls the Anthropic Messages API directly, for
// deployments without Bedrock access.
type AnthropicInvoker struct {
	client anthropic.Client
}

// NewAnthropicInvoker builds the Anthropic backend. The SDK's internal retry
// layer is disabled; throttling retries belong to Client.
func NewAnthropicInvoker(cfg config.LLMConfig) (*AnthropicInvoker, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			TLSHandshakeTimeout: cfg.ConnectTimeout,
		},
	}
	options := []option.RequestOption{
		option.WithAPIKey(cfg.Anthropic.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.Anthropic.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	return &AnthropicInvoker{client: anthropic.NewClient(options...)}, nil
}

// Converse implements Invoker against the Messages API.
func (a *AnthropicInvoker) Converse(ctx context.Context, req Request) (Response, error) {
	params, err := buildMessageParams(req)
	if err != nil {
		return Response{}, &InvokeError{
			Kind:     models.ErrLLMInvocationFailed,
			Provider: "anthropic",
			Model:    req.ModelID,
			Err:      err,
		}
	}
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, wrapInvokeError("anthropic", req.ModelID, err)
	}
	return translateMessage("anthropic", req.ModelID, msg)
}

func buildMessageParams(req Request) (anthropic.MessageNewParams, error) {
	if req.ModelID == "" {
		return anthropic.MessageNewParams{}, errors.New("model identifier is required")
	}
	inf := resolveInference(req.ModelID, req.Params)

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch {
			case block.Image != nil:
				mediaType, err := anthropicMediaType(block.Image.Format)
				if err != nil {
					return anthropic.MessageNewParams{}, err
				}
				encoded := base64.StdEncoding.EncodeToString(block.Image.Bytes)
				blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, encoded))
			case block.Text != "":
				blocks = append(blocks, anthropic.NewTextBlock(block.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, errors.New("at least one message is required")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.ModelID),
		Messages:    messages,
		MaxTokens:   int64(inf.maxTokens),
		Temperature: anthropic.Float(inf.temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: req.System},
		}
	}
	if inf.topP != nil {
		params.TopP = anthropic.Float(*inf.topP)
	}
	// The Messages API rejects top_k alongside extended thinking.
	if inf.topK != nil && inf.thinkingBudget <= 0 {
		params.TopK = anthropic.Int(int64(*inf.topK))
	}
	if inf.thinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(inf.thinkingBudget))
	}
	return params, nil
}

func anthropicMediaType(format string) (string, error) {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg", nil
	case "png":
		return "image/png", nil
	case "gif":
		return "image/gif", nil
	case "webp":
		return "image/webp", nil
	}
	return "", fmt.Errorf("unsupported image format %q", format)
}

// translateMessage maps a Messages API reply onto Response. Thinking and tool
// blocks are skipped, mirroring the Bedrock translation.
func translateMessage(provider, model string, msg *anthropic.Message) (Response, error) {
	if msg == nil {
		return Response{}, &InvokeError{
			Kind:     models.ErrLLMInvocationFailed,
			Provider: provider,
			Model:    model,
			Err:      errors.New("empty message response"),
		}
	}
	resp := Response{
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) > 1 {
		return Response{}, errMultipleTextBlocks(provider, model, len(texts))
	}
	if len(texts) == 1 {
		resp.Text = texts[0]
	}
	return resp, nil
}
