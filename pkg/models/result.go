package models

import "fmt"

// ErrorKind is the domain-level classification of a per-document failure.
type ErrorKind string

const (
	ErrMalformedRequest    ErrorKind = "MalformedRequest"
	ErrArtifactUnavailable ErrorKind = "ArtifactUnavailable"
	ErrUnsupportedFormat   ErrorKind = "UnsupportedFormat"
	ErrParsingStageFailed  ErrorKind = "ParsingStageFailed"
	ErrLLMThrottled        ErrorKind = "LLMThrottled"
	ErrLLMInvocationFailed ErrorKind = "LLMInvocationFailed"
	ErrResponseUnparseable ErrorKind = "ResponseUnparseable"
	ErrMultipleTextBlocks  ErrorKind = "MultipleTextBlocks"
	ErrInternalTimeout     ErrorKind = "InternalTimeout"
)

// ErrorInfo is the error envelope carried inside a DocumentResult. It also
// implements error so pipeline stages can return it directly.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds an ErrorInfo with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *ErrorInfo {
	return &ErrorInfo{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// DocumentResult is the outcome for one input document. Exactly one of
// Error or the Answer+RawAnswer pair is populated.
type DocumentResult struct {
	FileKey          string         `json:"file_key"`
	OriginalFileName string         `json:"original_file_name"`
	Answer           map[string]any `json:"answer"`
	RawAnswer        string         `json:"raw_answer"`
	ChunksProcessed  int            `json:"chunks_processed,omitempty"`
	Error            *ErrorInfo     `json:"error,omitempty"`
}

// Succeeded reports whether the document produced an answer.
func (d DocumentResult) Succeeded() bool {
	return d.Error == nil
}

// ErrorResult builds a failed DocumentResult for the given input reference.
func ErrorResult(fileKey, originalName string, err *ErrorInfo) DocumentResult {
	return DocumentResult{FileKey: fileKey, OriginalFileName: originalName, Error: err}
}

// BatchResult aggregates per-document outcomes. Documents has the same
// length and order as the request's documents.
type BatchResult struct {
	RunID     string           `json:"run_id"`
	Documents []DocumentResult `json:"documents"`
}

// UploadGrant is a time-limited permission to upload one object.
type UploadGrant struct {
	// URL is the form-POST target.
	URL string `json:"url"`
	// Fields must be sent verbatim with the upload. Fields["key"] is the
	// canonical artifact reference for subsequent requests.
	Fields map[string]string `json:"fields"`
}
