package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/aws/aws-sdk-go-v2/aws"
	bda "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdatypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"

	"github.com/haasonsaas/quarry/pkg/models"
)

const (
	blueprintClass      = "custom-document-class"
	blueprintTimeLayout = "2006-01-02-15-04-05"
)

// blueprintField is one attribute in the shape the automation service
// expects. Every attribute is requested as an inferred string.
type blueprintField struct {
	Type          string `json:"type"`
	InferenceType string `json:"inferenceType"`
	Instruction   string `json:"instruction"`
}

// blueprintProperties renders the attribute list as the schema's
// properties object, preserving request order.
func blueprintProperties(attrs []models.AttributeSpec) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		field, err := json.Marshal(blueprintField{
			Type:          "string",
			InferenceType: "inferred",
			Instruction:   attr.Description,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(field)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// blueprintName derives a stable name from the rendered properties so
// the same attribute set always lands on the same blueprint.
func blueprintName(properties []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(properties)
	return fmt.Sprintf("quarry-blueprint-%d", h.Sum64())
}

// blueprintSchema wraps the properties in the document envelope the
// automation service validates against.
func blueprintSchema(description string, properties []byte) ([]byte, error) {
	return json.Marshal(struct {
		Schema      string          `json:"$schema"`
		Description string          `json:"description"`
		Class       string          `json:"class"`
		Type        string          `json:"type"`
		Definitions map[string]any  `json:"definitions"`
		Properties  json.RawMessage `json:"properties"`
	}{
		Schema:      "http://json-schema.org/draft-07/schema#",
		Description: description,
		Class:       blueprintClass,
		Type:        "object",
		Definitions: map[string]any{},
		Properties:  properties,
	})
}

func (r *Runner) blueprintDescription() string {
	return "quarry-blueprint-last-updated-" + r.now().UTC().Format(blueprintTimeLayout)
}

// syncBlueprint updates the blueprint named name, creating it first when
// it does not exist yet. Returns the blueprint ARN.
func (r *Runner) syncBlueprint(ctx context.Context, name string, schema []byte) (string, error) {
	arn, err := r.findBlueprint(ctx, name)
	if err != nil {
		return "", fmt.Errorf("list blueprints: %w", err)
	}
	doc := string(schema)

	if arn == "" {
		out, err := r.blueprints.CreateBlueprint(ctx, &bda.CreateBlueprintInput{
			BlueprintName:  aws.String(name),
			Type:           bdatypes.TypeDocument,
			BlueprintStage: bdatypes.BlueprintStageLive,
			Schema:         aws.String(doc),
		})
		if err != nil {
			return "", fmt.Errorf("create blueprint %s: %w", name, err)
		}
		if out.Blueprint == nil {
			return "", fmt.Errorf("create blueprint %s: empty response", name)
		}
		if r.logger != nil {
			r.logger.Info(ctx, "created automation blueprint", "name", name)
		}
		return aws.ToString(out.Blueprint.BlueprintArn), nil
	}

	out, err := r.blueprints.UpdateBlueprint(ctx, &bda.UpdateBlueprintInput{
		BlueprintArn:   aws.String(arn),
		BlueprintStage: bdatypes.BlueprintStageLive,
		Schema:         aws.String(doc),
	})
	if err != nil {
		return "", fmt.Errorf("update blueprint %s: %w", name, err)
	}
	if out.Blueprint == nil {
		return "", fmt.Errorf("update blueprint %s: empty response", name)
	}
	if r.logger != nil {
		r.logger.Info(ctx, "updated automation blueprint", "name", name)
	}
	return aws.ToString(out.Blueprint.BlueprintArn), nil
}

// findBlueprint walks all stages looking for a blueprint with the given
// name. Returns "" when none exists.
func (r *Runner) findBlueprint(ctx context.Context, name string) (string, error) {
	input := &bda.ListBlueprintsInput{BlueprintStageFilter: bdatypes.BlueprintStageFilterAll}
	for {
		page, err := r.blueprints.ListBlueprints(ctx, input)
		if err != nil {
			return "", err
		}
		for _, bp := range page.Blueprints {
			if aws.ToString(bp.BlueprintName) == name {
				return aws.ToString(bp.BlueprintArn), nil
			}
		}
		if page.NextToken == nil {
			return "", nil
		}
		input.NextToken = page.NextToken
	}
}
