package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anthropics/anthropic-sdk-go"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/haasonsaas/quarry/pkg/models"
)

// InvokeError is a provider failure classified for the pipeline: throttling
// that the retry loop may absorb, or a permanent invocation failure.
type InvokeError struct {
	// Kind is the domain classification, one of models.ErrLLMThrottled,
	// models.ErrLLMInvocationFailed or models.ErrMultipleTextBlocks.
	Kind models.ErrorKind

	// Provider names the backend, "bedrock" or "anthropic".
	Provider string

	// Model is the model identifier the request targeted.
	Model string

	// Code is the provider's own error code when one was surfaced, such as
	// "ThrottlingException" or "rate_limit_error".
	Code string

	// Err is the underlying cause.
	Err error
}

func (e *InvokeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Model, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Model, e.Err)
}

func (e *InvokeError) Unwrap() error { return e.Err }

// Throttled reports whether the failure was a rate limit.
func (e *InvokeError) Throttled() bool { return e.Kind == models.ErrLLMThrottled }

// Info converts the failure into the per-document error envelope. The
// block-count message is surfaced verbatim so callers see the exact count.
func (e *InvokeError) Info() *models.ErrorInfo {
	if e.Kind == models.ErrMultipleTextBlocks && e.Err != nil {
		return &models.ErrorInfo{Kind: e.Kind, Message: e.Err.Error()}
	}
	return &models.ErrorInfo{Kind: e.Kind, Message: e.Error()}
}

// throttleCodes are the provider error codes treated as rate limiting.
var throttleCodes = map[string]bool{
	"ThrottlingException":         true,
	"TooManyRequestsException":    true,
	"ServiceUnavailableException": true,
}

// IsThrottle reports whether err is a rate-limiting condition from either
// backend: an already-classified InvokeError, a smithy API error with a
// throttling code, or an HTTP 429.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	var invokeErr *InvokeError
	if errors.As(err, &invokeErr) {
		return invokeErr.Throttled()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttleCodes[apiErr.ErrorCode()] {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusTooManyRequests {
		return true
	}
	var anthroErr *anthropic.Error
	if errors.As(err, &anthroErr) && anthroErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return false
}

// wrapInvokeError classifies a raw provider failure.
func wrapInvokeError(provider, model string, err error) *InvokeError {
	var invokeErr *InvokeError
	if errors.As(err, &invokeErr) {
		return invokeErr
	}
	kind := models.ErrLLMInvocationFailed
	if IsThrottle(err) {
		kind = models.ErrLLMThrottled
	}
	return &InvokeError{Kind: kind, Provider: provider, Model: model, Code: errorCode(err), Err: err}
}

// errMultipleTextBlocks reports a reply that still contains more than one
// text block after reasoning content is filtered out.
func errMultipleTextBlocks(provider, model string, count int) *InvokeError {
	return &InvokeError{
		Kind:     models.ErrMultipleTextBlocks,
		Provider: provider,
		Model:    model,
		Err:      fmt.Errorf("Model has returned %d text blocks in the response.", count),
	}
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorCode extracts the provider's error code, if any.
func errorCode(err error) string {
	var invokeErr *InvokeError
	if errors.As(err, &invokeErr) && invokeErr.Code != "" {
		return invokeErr.Code
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	var anthroErr *anthropic.Error
	if errors.As(err, &anthroErr) {
		var payload anthropicErrorPayload
		if raw := anthroErr.RawJSON(); raw != "" {
			if json.Unmarshal([]byte(raw), &payload) == nil && payload.Error.Type != "" {
				return payload.Error.Type
			}
		}
		return strconv.Itoa(anthroErr.StatusCode)
	}
	return ""
}

// ErrorInfoFrom maps any invocation failure onto the per-document error
// envelope. Errors that already carry an envelope pass through unchanged.
func ErrorInfoFrom(err error) *models.ErrorInfo {
	var invokeErr *InvokeError
	if errors.As(err, &invokeErr) {
		return invokeErr.Info()
	}
	var info *models.ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	return models.Errorf(models.ErrLLMInvocationFailed, "%v", err)
}
