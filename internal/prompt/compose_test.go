package prompt

import (
	"strings"
	"testing"

	"github.com/haasonsaas/quarry/pkg/models"
)

const testTemplate = `Intro line.

Attributes to be extracted:
<attributes>
{attributes}
</attributes>

<document_level_instructions_placeholder>

<document_text_extracted_from_images>
{document}
</document_text_extracted_from_images>

Output:
`

func TestBuild_MissingSentinel(t *testing.T) {
	_, err := Build("no marker here {attributes}", 0, "")
	if err == nil {
		t.Fatal("Build() = nil error, want failure for template without sentinel")
	}
	if !strings.Contains(err.Error(), "Attributes to be extracted:") {
		t.Errorf("error %q should name the missing line", err)
	}
}

func TestBuild_NoFewShotsNoInstructions(t *testing.T) {
	got, err := Build(testTemplate, 0, "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if strings.Contains(got, "<example>") {
		t.Error("prompt without few-shots must not contain example blocks")
	}
	if strings.Contains(got, instructionsPlaceholder) {
		t.Error("instructions placeholder must be removed")
	}
	if strings.Contains(got, "You must follow these additional instructions:") {
		t.Error("instructions block must not appear without instructions")
	}
	if !strings.Contains(got, "{document}") || !strings.Contains(got, "{attributes}") {
		t.Error("fill variables must survive assembly")
	}
}

func TestBuild_FewShotBlocks(t *testing.T) {
	got, err := Build(testTemplate, 2, "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n := strings.Count(got, "<example>"); n != 2 {
		t.Errorf("example block count = %d, want 2", n)
	}
	for _, variable := range []string{"{few_shot_input_0}", "{few_shot_output_0}", "{few_shot_input_1}", "{few_shot_output_1}"} {
		if !strings.Contains(got, variable) {
			t.Errorf("prompt missing %s", variable)
		}
	}
	// The real document section comes after the examples.
	lastExample := strings.LastIndex(got, "</example>")
	docPos := strings.Index(got, "{document}")
	if docPos < lastExample {
		t.Error("document section must follow the example blocks")
	}
}

func TestBuild_InstructionsExpandEverywhere(t *testing.T) {
	got, err := Build(testTemplate, 1, "Dates use ISO 8601.")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if strings.Contains(got, instructionsPlaceholder) {
		t.Error("placeholder must be replaced when instructions are present")
	}
	// Once in the example block, once in the base template.
	if n := strings.Count(got, "You must follow these additional instructions:"); n != 2 {
		t.Errorf("instructions block count = %d, want 2", n)
	}
	if !strings.Contains(got, "{instructions}") {
		t.Error("instructions variable must survive for Fill")
	}
}

func TestFill(t *testing.T) {
	got := Fill("a {x} b {y} c {unknown}", map[string]string{
		"x": "1",
		"y": "2",
	})
	want := "a 1 b 2 c {unknown}"
	if got != want {
		t.Errorf("Fill() = %q, want %q", got, want)
	}
}

func TestFill_ValueWithBraces(t *testing.T) {
	got := Fill("doc: {document}", map[string]string{"document": `{"k": 1}`})
	if got != `doc: {"k": 1}` {
		t.Errorf("Fill() = %q", got)
	}
}

func TestRenderAttributes(t *testing.T) {
	specs := []models.AttributeSpec{
		{Name: "name", Description: "person name"},
		{Name: "age", Description: "age in years", Type: models.AttributeNumber},
		{Name: "city", Description: "home city", Type: models.AttributeAuto},
	}
	got := RenderAttributes(specs)
	want := "1. name: person name\n2. age: age in years (must be number).\n3. city: home city\n"
	if got != want {
		t.Errorf("RenderAttributes() = %q, want %q", got, want)
	}
}

func TestRenderAttributes_TypeCaseInsensitive(t *testing.T) {
	got := RenderAttributes([]models.AttributeSpec{
		{Name: "total", Description: "invoice total", Type: "Number"},
	})
	if !strings.Contains(got, "(must be number).") {
		t.Errorf("RenderAttributes() = %q, want lowered type suffix", got)
	}
}

func TestJSONForPrompt(t *testing.T) {
	got, err := JSONForPrompt(map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("JSONForPrompt() error = %v", err)
	}
	want := "{\n    \"name\": \"Alice\"\n}"
	if got != want {
		t.Errorf("JSONForPrompt() = %q, want %q", got, want)
	}
}

func TestJSONForPrompt_String(t *testing.T) {
	got, err := JSONForPrompt("plain text")
	if err != nil {
		t.Fatalf("JSONForPrompt() error = %v", err)
	}
	if got != `"plain text"` {
		t.Errorf("JSONForPrompt() = %q, want quoted string", got)
	}
}
