package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/pkg/models"
)

// ConverseAPI is the subset of *bedrockruntime.Client the backend needs.
// Tests substitute a scripted fake.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockInvoker calls models hosted on AWS Bedrock through the Converse API.
type BedrockInvoker struct {
	runtime ConverseAPI
}

// NewBedrockInvoker builds the Bedrock backend. Connect and request timeouts
// come from cfg. The SDK's own retryer is disabled: throttling retries belong
// to Client so they stay observable.
func NewBedrockInvoker(awsCfg aws.Config, cfg config.LLMConfig) *BedrockInvoker {
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			TLSHandshakeTimeout: cfg.ConnectTimeout,
		},
	}
	runtime := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
		o.HTTPClient = httpClient
		o.Retryer = aws.NopRetryer{}
	})
	return &BedrockInvoker{runtime: runtime}
}

// NewBedrockInvokerWithRuntime wires an existing runtime client.
func NewBedrockInvokerWithRuntime(runtime ConverseAPI) *BedrockInvoker {
	return &BedrockInvoker{runtime: runtime}
}

// Converse implements Invoker against the Bedrock Converse API.
func (b *BedrockInvoker) Converse(ctx context.Context, req Request) (Response, error) {
	input, err := buildConverseInput(req)
	if err != nil {
		return Response{}, &InvokeError{
			Kind:     models.ErrLLMInvocationFailed,
			Provider: "bedrock",
			Model:    req.ModelID,
			Err:      err,
		}
	}
	out, err := b.runtime.Converse(ctx, input)
	if err != nil {
		return Response{}, wrapInvokeError("bedrock", req.ModelID, err)
	}
	return translateConverseOutput("bedrock", req.ModelID, out)
}

func buildConverseInput(req Request) (*bedrockruntime.ConverseInput, error) {
	if req.ModelID == "" {
		return nil, errors.New("model identifier is required")
	}
	inf := resolveInference(req.ModelID, req.Params)

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := make([]brtypes.ContentBlock, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch {
			case block.Image != nil:
				format, err := bedrockImageFormat(block.Image.Format)
				if err != nil {
					return nil, err
				}
				content = append(content, &brtypes.ContentBlockMemberImage{
					Value: brtypes.ImageBlock{
						Format: format,
						Source: &brtypes.ImageSourceMemberBytes{Value: block.Image.Bytes},
					},
				})
			case block.Text != "":
				content = append(content, &brtypes.ContentBlockMemberText{Value: block.Text})
			}
		}
		if len(content) == 0 {
			continue
		}
		role := brtypes.ConversationRoleUser
		if msg.Role == RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{Role: role, Content: content})
	}
	if len(messages) == 0 {
		return nil, errors.New("at least one message is required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(req.ModelID),
		Messages:        messages,
		InferenceConfig: converseInferenceConfig(inf),
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if fields := extraModelFields(inf); fields != nil {
		input.AdditionalModelRequestFields = document.NewLazyDocument(fields)
	}
	return input, nil
}

func converseInferenceConfig(inf inference) *brtypes.InferenceConfiguration {
	maxTokens := min(inf.maxTokens, math.MaxInt32)
	cfg := &brtypes.InferenceConfiguration{
		MaxTokens:     aws.Int32(int32(maxTokens)), // #nosec G115 -- bounded by min above
		Temperature:   aws.Float32(float32(inf.temperature)),
		StopSequences: []string{},
	}
	if inf.topP != nil {
		cfg.TopP = aws.Float32(float32(*inf.topP))
	}
	return cfg
}

// extraModelFields carries the claude-only knobs the Converse schema has no
// first-class fields for.
func extraModelFields(inf inference) map[string]any {
	if inf.topK == nil && inf.thinkingBudget <= 0 {
		return nil
	}
	fields := make(map[string]any, 2)
	if inf.topK != nil {
		fields["top_k"] = *inf.topK
	}
	if inf.thinkingBudget > 0 {
		fields["thinking"] = map[string]any{
			"type":          "enabled",
			"budget_tokens": inf.thinkingBudget,
		}
	}
	return fields
}

func bedrockImageFormat(format string) (brtypes.ImageFormat, error) {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return brtypes.ImageFormatJpeg, nil
	case "png":
		return brtypes.ImageFormatPng, nil
	case "gif":
		return brtypes.ImageFormatGif, nil
	case "webp":
		return brtypes.ImageFormatWebp, nil
	}
	return "", fmt.Errorf("unsupported image format %q", format)
}

// translateConverseOutput maps a Converse reply onto Response. Reasoning and
// tool blocks are skipped; only text carries the answer. An empty reply is
// not an error, more than one text block is.
func translateConverseOutput(provider, model string, out *bedrockruntime.ConverseOutput) (Response, error) {
	if out == nil {
		return Response{}, &InvokeError{
			Kind:     models.ErrLLMInvocationFailed,
			Provider: provider,
			Model:    model,
			Err:      errors.New("empty converse output"),
		}
	}
	resp := Response{StopReason: string(out.StopReason)}
	if out.Usage != nil {
		resp.Usage = Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return resp, nil
	}
	var texts []string
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			texts = append(texts, text.Value)
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
