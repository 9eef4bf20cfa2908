package models

import (
	"strings"
	"testing"
)

func validRequest() ExtractionRequest {
	return ExtractionRequest{
		Documents: []string{"originals/contract.pdf"},
		Attributes: []AttributeSpec{
			{Name: "party", Description: "contracting party"},
		},
		ParsingMode: ParsingModeTextLLM,
	}
}

func TestExtractionRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ExtractionRequest)
		wantErr  bool
		contains string
	}{
		{
			name:   "valid",
			mutate: func(r *ExtractionRequest) {},
		},
		{
			name:     "no documents",
			mutate:   func(r *ExtractionRequest) { r.Documents = nil },
			wantErr:  true,
			contains: "documents must not be empty",
		},
		{
			name:     "blank document",
			mutate:   func(r *ExtractionRequest) { r.Documents = []string{"  "} },
			wantErr:  true,
			contains: "documents[0] is blank",
		},
		{
			name:     "no attributes",
			mutate:   func(r *ExtractionRequest) { r.Attributes = nil },
			wantErr:  true,
			contains: "attributes must not be empty",
		},
		{
			name: "empty attribute name",
			mutate: func(r *ExtractionRequest) {
				r.Attributes = []AttributeSpec{{Name: "", Description: "x"}}
			},
			wantErr:  true,
			contains: "attributes[0].name is empty",
		},
		{
			name: "empty attribute description",
			mutate: func(r *ExtractionRequest) {
				r.Attributes = []AttributeSpec{{Name: "date", Description: ""}}
			},
			wantErr:  true,
			contains: "attributes[0].description is empty",
		},
		{
			name: "unknown attribute type",
			mutate: func(r *ExtractionRequest) {
				r.Attributes = []AttributeSpec{{Name: "date", Description: "d", Type: "datetime"}}
			},
			wantErr:  true,
			contains: `attributes[0].type "datetime"`,
		},
		{
			name: "duplicate attribute name",
			mutate: func(r *ExtractionRequest) {
				r.Attributes = []AttributeSpec{
					{Name: "date", Description: "a"},
					{Name: "date", Description: "b"},
				}
			},
			wantErr:  true,
			contains: `attributes[1].name "date" duplicated`,
		},
		{
			name:     "unknown parsing mode",
			mutate:   func(r *ExtractionRequest) { r.ParsingMode = "PDF_LLM" },
			wantErr:  true,
			contains: `parsing_mode "PDF_LLM" unknown`,
		},
		{
			name: "shapeless few shot",
			mutate: func(r *ExtractionRequest) {
				r.FewShots = []FewShotExample{{Markings: "few_shots/m.json"}}
			},
			wantErr:  true,
			contains: "few_shots[0]",
		},
		{
			name: "temperature out of range",
			mutate: func(r *ExtractionRequest) {
				temp := 1.5
				r.ModelParams.Temperature = &temp
			},
			wantErr:  true,
			contains: "temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !strings.Contains(err.Error(), tt.contains) {
					t.Errorf("Validate() = %q, want substring %q", err.Error(), tt.contains)
				}
				var info *ErrorInfo
				ok := false
				if info, ok = err.(*ErrorInfo); !ok {
					t.Fatalf("Validate() error type = %T, want *ErrorInfo", err)
				}
				if info.Kind != ErrMalformedRequest {
					t.Errorf("Kind = %q, want %q", info.Kind, ErrMalformedRequest)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestExtractionRequest_ValidateAggregates(t *testing.T) {
	req := ExtractionRequest{}
	err := req.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	msg := err.Error()
	for _, want := range []string{"documents must not be empty", "attributes must not be empty"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate() = %q, missing %q", msg, want)
		}
	}
}

func TestExtractionRequest_Normalize(t *testing.T) {
	req := ExtractionRequest{}
	req.Normalize()
	if req.ParsingMode != ParsingModeTextLLM {
		t.Errorf("ParsingMode = %q, want %q", req.ParsingMode, ParsingModeTextLLM)
	}
	if req.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", req.ChunkSize, DefaultChunkSize)
	}
	if req.ParallelChunks == nil || !*req.ParallelChunks {
		t.Error("ParallelChunks should default to true")
	}
}

func TestExtractionRequest_NormalizeKeepsExplicit(t *testing.T) {
	off := false
	req := ExtractionRequest{
		ParsingMode:    ParsingModeImageLLM,
		ChunkSize:      3,
		ParallelChunks: &off,
	}
	req.Normalize()
	if req.ParsingMode != ParsingModeImageLLM {
		t.Errorf("ParsingMode = %q, want %q", req.ParsingMode, ParsingModeImageLLM)
	}
	if req.ChunkSize != 3 {
		t.Errorf("ChunkSize = %d, want 3", req.ChunkSize)
	}
	if *req.ParallelChunks {
		t.Error("ParallelChunks flipped to true")
	}
}

func TestFewShotExample_Shape(t *testing.T) {
	tests := []struct {
		name string
		ex   FewShotExample
		want FewShotShape
	}{
		{"reference", FewShotExample{Name: "invoice"}, ShapeReference},
		{"textual", FewShotExample{Input: "text", Output: map[string]any{"k": "v"}}, ShapeTextual},
		{
			"multimodal",
			FewShotExample{Documents: []string{"few_shots/a.pdf"}, Markings: "few_shots/a.json"},
			ShapeMultimodal,
		},
		{
			"resolved reference keeps content shape",
			FewShotExample{Name: "invoice", Input: "text", Output: map[string]any{"k": "v"}},
			ShapeTextual,
		},
		{"empty", FewShotExample{}, ShapeUnknown},
		{"markings without documents", FewShotExample{Markings: "few_shots/a.json"}, ShapeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ex.Shape(); got != tt.want {
				t.Errorf("Shape() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParsingMode_IsValid(t *testing.T) {
	for _, m := range []ParsingMode{ParsingModeTextLLM, ParsingModeImageLLM, ParsingModeOCRThenTextLLM, ParsingModeManagedIDP} {
		if !m.IsValid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if ParsingMode("TEXT").IsValid() {
		t.Error(`"TEXT" should not be valid`)
	}
}
