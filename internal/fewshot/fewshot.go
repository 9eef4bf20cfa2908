// Package fewshot stores named worked examples so extraction requests
// can reference them instead of inlining the full example payload.
package fewshot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/haasonsaas/quarry/pkg/models"
)

// ErrNotFound reports that no example is stored under a name.
var ErrNotFound = errors.New("example not found")

// Example is one stored worked example. It carries the same content as
// an inline request example plus its registration time.
type Example struct {
	// Name is the registry key.
	Name string `json:"name" dynamodbav:"name"`

	// Input and Output form a textual example.
	Input  any `json:"input,omitempty" dynamodbav:"input,omitempty"`
	Output any `json:"output,omitempty" dynamodbav:"output,omitempty"`

	// Documents and Markings form a multimodal example.
	Documents []string `json:"documents,omitempty" dynamodbav:"documents,omitempty"`
	Markings  string   `json:"markings,omitempty" dynamodbav:"markings,omitempty"`

	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// FewShot converts the stored example into the request form.
func (e Example) FewShot() models.FewShotExample {
	return models.FewShotExample{
		Name:      e.Name,
		Input:     e.Input,
		Output:    e.Output,
		Documents: e.Documents,
		Markings:  e.Markings,
	}
}

// Registry stores named examples.
type Registry interface {
	// Put registers or replaces an example under its name.
	Put(ctx context.Context, example Example) error

	// Get returns the example stored under name, or ErrNotFound.
	Get(ctx context.Context, name string) (Example, error)

	// List returns all stored examples ordered by name.
	List(ctx context.Context) ([]Example, error)
}

// validateExample checks that a stored example will be usable when a
// request references it: it needs a name and one of the two content
// shapes.
func validateExample(e Example) error {
	if strings.TrimSpace(e.Name) == "" {
		return models.Errorf(models.ErrMalformedRequest, "example name must not be empty")
	}
	switch e.FewShot().Shape() {
	case models.ShapeTextual, models.ShapeMultimodal:
		return nil
	}
	return models.Errorf(models.ErrMalformedRequest, "example %q needs input+output or documents+markings", e.Name)
}
