// Package prompt composes extraction prompts from templates, attribute
// specs, few-shot examples, and caller instructions.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/quarry/pkg/models"
)

// sentinel is the line the few-shot blocks are inserted in front of. A user
// template without it cannot be assembled.
const sentinel = "Attributes to be extracted:"

// instructionsPlaceholder marks where document-level instructions go. It
// appears in the base template and in every few-shot block.
const instructionsPlaceholder = "<document_level_instructions_placeholder>"

// fewShotBlock is the per-example scaffold. The two %d verbs take the
// example index.
const fewShotBlock = `<example>
<document_text_extracted_from_images>
{few_shot_input_%d}
</document_text_extracted_from_images>

Attributes to be extracted:
<attributes>
{attributes}
</attributes>

<document_level_instructions_placeholder>

Output:
{few_shot_output_%d}
</example>

`

// instructionsBlock replaces the placeholder when instructions are present.
const instructionsBlock = `You must follow these additional instructions:
<instructions>
{instructions}
</instructions>
`

// Build assembles the user prompt scaffold: the template's header, one
// few-shot block per example, and the template's tail starting at the
// sentinel line. When instructions is non-blank every placeholder occurrence
// is expanded to the instructions block, otherwise the placeholder lines are
// removed. Variables ({attributes}, {document}, {instructions},
// {few_shot_input_N}, {few_shot_output_N}) remain for Fill.
func Build(template string, numFewShots int, instructions string) (string, error) {
	pos := strings.Index(template, sentinel)
	if pos < 0 {
		return "", fmt.Errorf("user template does not contain the %q line", sentinel)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(template[:pos], " \t\r\n"))
	for i := 0; i < numFewShots; i++ {
		b.WriteString("\n")
		fmt.Fprintf(&b, fewShotBlock, i, i)
	}
	b.WriteString("\n")
	b.WriteString(template[pos:])

	assembled := b.String()
	if strings.TrimSpace(instructions) != "" {
		assembled = strings.ReplaceAll(assembled, instructionsPlaceholder, instructionsBlock)
	} else {
		assembled = strings.ReplaceAll(assembled, "\n"+instructionsPlaceholder+"\n", "\n")
	}
	return assembled, nil
}

// Fill substitutes {name} occurrences with the given values. Unknown
// placeholders are left untouched.
func Fill(template string, vars map[string]string) string {
	for name, value := range vars {
		template = strings.ReplaceAll(template, "{"+name+"}", value)
	}
	return template
}

// RenderAttributes formats the attribute list for the {attributes} variable:
// a numbered "name: description" line per attribute, with a type constraint
// suffix when the type is not auto.
func RenderAttributes(specs []models.AttributeSpec) string {
	var b strings.Builder
	for i, a := range specs {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, a.Name, a.Description)
		if t := strings.ToLower(string(a.Type)); t != "" && t != "auto" {
			fmt.Fprintf(&b, " (must be %s).", t)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// JSONForPrompt renders a few-shot input or output value as 4-space-indented
// JSON for in-prompt readability.
func JSONForPrompt(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("render few-shot value: %w", err)
	}
	return string(data), nil
}
