package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/quarry/pkg/models"
)

func TestRenderTextualShots(t *testing.T) {
	shots := []models.FewShotExample{
		{
			Input:  map[string]any{"text": "ACME invoice 12"},
			Output: map[string]any{"vendor": "ACME"},
		},
		{Name: "registry-ref"},
		{
			Name:      "marked",
			Documents: []string{"few_shots/a.pdf"},
			Markings:  "few_shots/a.json",
		},
	}

	rendered, err := renderTextualShots(shots)
	if err != nil {
		t.Fatalf("renderTextualShots: %v", err)
	}
	if len(rendered) != 1 {
		t.Fatalf("got %d rendered shots, want 1 (textual only)", len(rendered))
	}
	if want := "{\n    \"text\": \"ACME invoice 12\"\n}"; rendered[0].input != want {
		t.Errorf("input = %q, want %q", rendered[0].input, want)
	}
	if !strings.Contains(rendered[0].output, "\"vendor\": \"ACME\"") {
		t.Errorf("output = %q, want rendered vendor", rendered[0].output)
	}
}

func TestMarkedOutputList(t *testing.T) {
	marking := []any{
		map[string]any{"file": "other.pdf", "output": map[string]any{"total": 1.0}},
		map[string]any{"file": "nested/dir/invoice.pdf", "output": map[string]any{"total": 2.0}},
	}

	output, err := markedOutput(marking, "few_shots/invoice.pdf")
	if err != nil {
		t.Fatalf("markedOutput: %v", err)
	}
	if output["total"] != 2.0 {
		t.Errorf("output = %#v, want the invoice.pdf entry", output)
	}
}

func TestMarkedOutputListMissing(t *testing.T) {
	marking := []any{
		map[string]any{"file": "other.pdf", "output": map[string]any{}},
	}

	_, err := markedOutput(marking, "few_shots/invoice.pdf")
	info := wantKind(t, err, models.ErrMalformedRequest)
	if info.Message != "File key not found in marking file." {
		t.Errorf("message = %q", info.Message)
	}
}

func TestMarkedOutputSingleEntry(t *testing.T) {
	marking := map[string]any{"file": "s3://bucket/invoice.pdf", "output": map[string]any{"total": 7.0}}

	output, err := markedOutput(marking, "few_shots/invoice.pdf")
	if err != nil {
		t.Fatalf("markedOutput: %v", err)
	}
	if output["total"] != 7.0 {
		t.Errorf("output = %#v", output)
	}
}

func TestMarkedOutputSingleEntryMismatch(t *testing.T) {
	marking := map[string]any{"file": "receipt.pdf", "output": map[string]any{}}

	_, err := markedOutput(marking, "few_shots/invoice.pdf")
	info := wantKind(t, err, models.ErrMalformedRequest)
	if info.Message != "File key in marking file does not match the provided file." {
		t.Errorf("message = %q", info.Message)
	}
}

func TestMarkedAssistantText(t *testing.T) {
	got, err := markedAssistantText(map[string]any{"total": 5.0})
	if err != nil {
		t.Fatalf("markedAssistantText: %v", err)
	}
	want := "<thinking>\nI was able to find all the requested attributes\n</thinking>\n<json>\n{\"total\":5}\n</json>\n"
	if got != want {
		t.Errorf("assistant text = %q, want %q", got, want)
	}
}

func TestMarkingSchema(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"single entry", `{"file": "a.pdf", "output": {"total": 1}}`, false},
		{"entry list", `[{"file": "a.pdf", "output": {}}, {"file": "b.pdf", "output": {}}]`, false},
		{"missing output", `{"file": "a.pdf"}`, true},
		{"file not a string", `{"file": 3, "output": {}}`, true},
		{"output not an object", `{"file": "a.pdf", "output": []}`, true},
		{"bare scalar", `"marking"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var value any
			if err := json.Unmarshal([]byte(tt.payload), &value); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			err := markingSchema.Validate(value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
