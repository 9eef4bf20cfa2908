package models

import (
	"encoding/json"
	"testing"
)

func TestDocumentResult_JSONFieldNames(t *testing.T) {
	res := DocumentResult{
		FileKey:          "originals/a.pdf",
		OriginalFileName: "a.pdf",
		Answer:           map[string]any{"name": "Alice"},
		RawAnswer:        `<json>{"name": "Alice"}</json>`,
		ChunksProcessed:  2,
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"file_key", "original_file_name", "answer", "raw_answer", "chunks_processed"} {
		if _, ok := m[key]; !ok {
			t.Errorf("marshaled result missing %q: %s", key, data)
		}
	}
	if _, ok := m["error"]; ok {
		t.Error("error should be omitted on success")
	}
}

func TestDocumentResult_Succeeded(t *testing.T) {
	ok := DocumentResult{Answer: map[string]any{}, RawAnswer: "x"}
	if !ok.Succeeded() {
		t.Error("result without error should succeed")
	}
	failed := ErrorResult("k", "n", Errorf(ErrLLMThrottled, "retry budget exhausted"))
	if failed.Succeeded() {
		t.Error("result with error should not succeed")
	}
	if failed.FileKey != "k" || failed.OriginalFileName != "n" {
		t.Errorf("ErrorResult identity = %q/%q, want k/n", failed.FileKey, failed.OriginalFileName)
	}
}

func TestErrorInfo_Error(t *testing.T) {
	err := Errorf(ErrUnsupportedFormat, "extension %q not supported", ".tiff")
	want := `UnsupportedFormat: extension ".tiff" not supported`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorKind_Constants(t *testing.T) {
	tests := []struct {
		constant ErrorKind
		expected string
	}{
		{ErrMalformedRequest, "MalformedRequest"},
		{ErrArtifactUnavailable, "ArtifactUnavailable"},
		{ErrUnsupportedFormat, "UnsupportedFormat"},
		{ErrParsingStageFailed, "ParsingStageFailed"},
		{ErrLLMThrottled, "LLMThrottled"},
		{ErrLLMInvocationFailed, "LLMInvocationFailed"},
		{ErrResponseUnparseable, "ResponseUnparseable"},
		{ErrMultipleTextBlocks, "MultipleTextBlocks"},
		{ErrInternalTimeout, "InternalTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}
