package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/internal/prompt"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// exampleMaxPages caps the page count of a multimodal example document.
const exampleMaxPages = 20

// markingSchemaJSON describes a marking file: one entry, or a list of
// entries, each naming the marked file and its expected output object.
const markingSchemaJSON = `{
    "$schema": "https://json-schema.org/draft/2020-12/schema",
    "oneOf": [
        {"$ref": "#/$defs/marking"},
        {"type": "array", "items": {"$ref": "#/$defs/marking"}}
    ],
    "$defs": {
        "marking": {
            "type": "object",
            "required": ["file", "output"],
            "properties": {
                "file": {"type": "string"},
                "output": {"type": "object"}
            }
        }
    }
}`

var markingSchema = jsonschema.MustCompileString("marking.json", markingSchemaJSON)

// renderedShot is a textual few-shot example rendered for the prompt
// variables.
type renderedShot struct {
	input  string
	output string
}

// renderTextualShots renders the input/output examples as indented JSON.
// Examples of other shapes have no textual representation and are skipped.
func renderTextualShots(shots []models.FewShotExample) ([]renderedShot, error) {
	rendered := make([]renderedShot, 0, len(shots))
	for _, shot := range shots {
		if shot.Shape() != models.ShapeTextual {
			continue
		}
		input, err := prompt.JSONForPrompt(shot.Input)
		if err != nil {
			return nil, models.Errorf(models.ErrMalformedRequest, "few-shot example %q input: %v", shot.Name, err)
		}
		output, err := prompt.JSONForPrompt(shot.Output)
		if err != nil {
			return nil, models.Errorf(models.ErrMalformedRequest, "few-shot example %q output: %v", shot.Name, err)
		}
		rendered = append(rendered, renderedShot{input: input, output: output})
	}
	return rendered, nil
}

// exampleMessages renders one multimodal example as a user/assistant turn
// pair: the example pages with the shared prompt text, then the marked
// answer in the response format the model is asked to produce.
func exampleMessages(ctx context.Context, gw store.Gateway, raster Rasterizer, example models.FewShotExample, promptText string) ([]llm.Message, error) {
	if len(example.Documents) == 0 || example.Markings == "" {
		return nil, models.Errorf(models.ErrMalformedRequest,
			"multimodal example %q needs a document and a marking file", example.Name)
	}

	docKey := example.Documents[0]
	docData, err := readArtifact(ctx, gw, docKey)
	if err != nil {
		return nil, err
	}
	pages, err := raster.Pages(ctx, docKey, docData)
	if err != nil {
		return nil, err
	}
	if len(pages) > exampleMaxPages {
		pages = pages[:exampleMaxPages]
	}
	if len(pages) == 0 {
		return nil, errNoImages()
	}

	output, err := loadMarkedOutput(ctx, gw, example.Markings, docKey)
	if err != nil {
		return nil, err
	}
	answer, err := markedAssistantText(output)
	if err != nil {
		return nil, models.Errorf(models.ErrMalformedRequest, "marking file %s: %v", example.Markings, err)
	}

	blocks := make([]llm.Block, 0, len(pages)+1)
	for _, p := range pages {
		blocks = append(blocks, llm.ImageBlock(p.Format, p.Data))
	}
	blocks = append(blocks, llm.TextBlock(promptText))
	return []llm.Message{
		llm.UserMessage(blocks...),
		llm.AssistantMessage(llm.TextBlock(answer)),
	}, nil
}

// loadMarkedOutput fetches a marking file, validates its shape, and returns
// the output object marked for the given example document.
func loadMarkedOutput(ctx context.Context, gw store.Gateway, markingKey, docKey string) (map[string]any, error) {
	data, err := readArtifact(ctx, gw, markingKey)
	if err != nil {
		return nil, err
	}
	var marking any
	if err := json.Unmarshal(data, &marking); err != nil {
		return nil, models.Errorf(models.ErrMalformedRequest, "marking file %s: %v", markingKey, err)
	}
	if err := markingSchema.Validate(marking); err != nil {
		return nil, models.Errorf(models.ErrMalformedRequest, "marking file %s: %v", markingKey, err)
	}
	return markedOutput(marking, docKey)
}

// markedOutput finds the marking entry whose file matches the example
// document by base name. A single-entry marking must match; in a list the
// entry is searched for.
func markedOutput(marking any, docKey string) (map[string]any, error) {
	base := path.Base(docKey)
	switch m := marking.(type) {
	case []any:
		for _, item := range m {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			file, _ := entry["file"].(string)
			if path.Base(file) == base {
				output, _ := entry["output"].(map[string]any)
				return output, nil
			}
		}
	case map[string]any:
		file, _ := m["file"].(string)
		if path.Base(file) != base {
			return nil, models.Errorf(models.ErrMalformedRequest, "File key in marking file does not match the provided file.")
		}
		output, _ := m["output"].(map[string]any)
		return output, nil
	}
	return nil, models.Errorf(models.ErrMalformedRequest, "File key not found in marking file.")
}

// markedAssistantText wraps a marked output as the assistant turn of the
// example, matching the thinking-then-json format requested from the model.
func markedAssistantText(output map[string]any) (string, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<thinking>\nI was able to find all the requested attributes\n</thinking>\n<json>\n%s\n</json>\n", data), nil
}
