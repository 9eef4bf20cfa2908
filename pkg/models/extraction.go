// Package models defines the core data types for Quarry.
package models

import (
	"fmt"
	"strings"
)

// ParsingMode selects the pipeline a document is routed through.
type ParsingMode string

const (
	// ParsingModeTextLLM loads (or produces) plain text and prompts the model with it.
	ParsingModeTextLLM ParsingMode = "TEXT_LLM"
	// ParsingModeImageLLM rasterizes the document and prompts the model with page images.
	ParsingModeImageLLM ParsingMode = "IMAGE_LLM"
	// ParsingModeOCRThenTextLLM runs the external OCR stage first, then the text pipeline.
	ParsingModeOCRThenTextLLM ParsingMode = "OCR_THEN_TEXT_LLM"
	// ParsingModeManagedIDP delegates extraction to the managed document-automation service.
	ParsingModeManagedIDP ParsingMode = "MANAGED_IDP"
)

// IsValid reports whether the mode is one of the supported pipelines.
func (m ParsingMode) IsValid() bool {
	switch m {
	case ParsingModeTextLLM, ParsingModeImageLLM, ParsingModeOCRThenTextLLM, ParsingModeManagedIDP:
		return true
	}
	return false
}

// AttributeType constrains the value an attribute may take. The zero value
// means the model decides ("auto").
type AttributeType string

const (
	AttributeAuto    AttributeType = "auto"
	AttributeText    AttributeType = "text"
	AttributeNumber  AttributeType = "number"
	AttributeBoolean AttributeType = "boolean"
)

// IsValid reports whether the type is in the accepted vocabulary.
// An empty type is valid and treated as auto.
func (t AttributeType) IsValid() bool {
	switch t {
	case "", AttributeAuto, AttributeText, AttributeNumber, AttributeBoolean:
		return true
	}
	return false
}

// AttributeSpec names one attribute to extract from a document.
// Order is significant: attributes appear in the prompt in request order.
type AttributeSpec struct {
	// Name is the key under which the extracted value is returned.
	Name string `json:"name"`

	// Description tells the model what to look for.
	Description string `json:"description"`

	// Type optionally constrains the value ("text", "number", "boolean").
	Type AttributeType `json:"type,omitempty"`
}

// FewShotExample is one worked example supplied with a request. It takes one
// of three shapes: a registry reference (Name only), a textual pair
// (Input + Output), or a multimodal pair (Documents + Markings).
type FewShotExample struct {
	// Name references a stored example in the few-shot registry.
	Name string `json:"name,omitempty"`

	// Input is the example document text (any JSON value; rendered
	// 4-space-indented into the prompt).
	Input any `json:"input,omitempty"`

	// Output is the expected extraction for Input.
	Output any `json:"output,omitempty"`

	// Documents are artifact references to the example's source files.
	Documents []string `json:"documents,omitempty"`

	// Markings is the artifact reference of the marking JSON describing
	// the expected output for Documents.
	Markings string `json:"markings,omitempty"`
}

// FewShotShape classifies which of the three example shapes is populated.
type FewShotShape int

const (
	ShapeUnknown FewShotShape = iota
	ShapeReference
	ShapeTextual
	ShapeMultimodal
)

// Shape classifies the example. Content fields win over the registry name so
// a resolved reference keeps its shape.
func (f FewShotExample) Shape() FewShotShape {
	switch {
	case len(f.Documents) > 0 && f.Markings != "":
		return ShapeMultimodal
	case f.Input != nil && f.Output != nil:
		return ShapeTextual
	case f.Name != "":
		return ShapeReference
	}
	return ShapeUnknown
}

// ModelParams carries the inference configuration for the LLM call.
// Zero values are replaced by provider defaults at invocation time.
type ModelParams struct {
	// ModelID is the provider model identifier, e.g.
	// "anthropic.claude-sonnet-4-20250514-v1:0". Empty means the
	// configured default model.
	ModelID string `json:"model_id,omitempty"`

	// Temperature defaults to 0.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxOutputTokens caps the generated tokens. Defaults to 4096.
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`

	// TopP defaults to 1.
	TopP *float64 `json:"top_p,omitempty"`

	// TopK applies only to model families that accept it.
	TopK *int `json:"top_k,omitempty"`

	// ThinkingBudget enables extended reasoning with the given token
	// budget on families that support it. 0 disables.
	ThinkingBudget int `json:"thinking_budget,omitempty"`
}

// DefaultChunkSize is the page count per chunk in the image pipeline.
const DefaultChunkSize = 10

// ExtractionRequest is the inbound batch request.
type ExtractionRequest struct {
	// Documents are artifact references: bare keys, s3:// URIs, or
	// presigned URLs.
	Documents []string `json:"documents"`

	// Attributes to extract, in prompt order. Names must be unique.
	Attributes []AttributeSpec `json:"attributes"`

	// Instructions are optional document-level instructions spliced into
	// the prompt.
	Instructions string `json:"instructions,omitempty"`

	// FewShots are optional worked examples.
	FewShots []FewShotExample `json:"few_shots,omitempty"`

	// ParsingMode routes the documents. Empty means TEXT_LLM.
	ParsingMode ParsingMode `json:"parsing_mode,omitempty"`

	// ModelParams configure the LLM call.
	ModelParams ModelParams `json:"model_params"`

	// ChunkSize is the page count per image chunk. 0 means DefaultChunkSize.
	ChunkSize int `json:"chunk_size,omitempty"`

	// ParallelChunks controls image-chunk concurrency. Nil means true.
	ParallelChunks *bool `json:"parallel_chunks,omitempty"`
}

// Normalize fills defaulted fields in place.
func (r *ExtractionRequest) Normalize() {
	if r.ParsingMode == "" {
		r.ParsingMode = ParsingModeTextLLM
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = DefaultChunkSize
	}
	if r.ParallelChunks == nil {
		t := true
		r.ParallelChunks = &t
	}
}

// Validate checks the request shape. All problems are reported in one error.
func (r *ExtractionRequest) Validate() error {
	var problems []string
	if len(r.Documents) == 0 {
		problems = append(problems, "documents must not be empty")
	}
	for i, d := range r.Documents {
		if strings.TrimSpace(d) == "" {
			problems = append(problems, fmt.Sprintf("documents[%d] is blank", i))
		}
	}
	if len(r.Attributes) == 0 {
		problems = append(problems, "attributes must not be empty")
	}
	seen := make(map[string]bool, len(r.Attributes))
	for i, a := range r.Attributes {
		if strings.TrimSpace(a.Name) == "" {
			problems = append(problems, fmt.Sprintf("attributes[%d].name is empty", i))
		}
		if strings.TrimSpace(a.Description) == "" {
			problems = append(problems, fmt.Sprintf("attributes[%d].description is empty", i))
		}
		if !a.Type.IsValid() {
			problems = append(problems, fmt.Sprintf("attributes[%d].type %q not in {auto, text, number, boolean}", i, a.Type))
		}
		if a.Name != "" && seen[a.Name] {
			problems = append(problems, fmt.Sprintf("attributes[%d].name %q duplicated", i, a.Name))
		}
		seen[a.Name] = true
	}
	if r.ParsingMode != "" && !r.ParsingMode.IsValid() {
		problems = append(problems, fmt.Sprintf("parsing_mode %q unknown", r.ParsingMode))
	}
	for i, fs := range r.FewShots {
		if fs.Shape() == ShapeUnknown {
			problems = append(problems, fmt.Sprintf("few_shots[%d] must set name, input+output, or documents+markings", i))
		}
	}
	if r.ChunkSize < 0 {
		problems = append(problems, "chunk_size must be positive")
	}
	if p := r.ModelParams.Temperature; p != nil && (*p < 0 || *p > 1) {
		problems = append(problems, "model_params.temperature must be in [0, 1]")
	}
	if r.ModelParams.MaxOutputTokens < 0 {
		problems = append(problems, "model_params.max_output_tokens must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return &ErrorInfo{Kind: ErrMalformedRequest, Message: strings.Join(problems, "; ")}
}
