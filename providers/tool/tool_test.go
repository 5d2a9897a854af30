package tool

import (
	"context"
	"errors"
	"testing"
)

type searchInput struct {
	Query string `json:"query" jsonschema:"description=Search query,required"`
	Limit int    `json:"limit,omitempty"`
}

type searchOutput struct {
	Results []string `json:"results"`
}

// TestNewToolSchemaAndDispatch verifies schema derivation from the input type
// and that the handler decodes model-supplied arguments into it.
func TestNewToolSchemaAndDispatch(t *testing.T) {
	var gotInput searchInput
	definition := NewTool("search", func(ctx context.Context, input searchInput) (searchOutput, error) {
		gotInput = input
		return searchOutput{Results: []string{"a", "b"}}, nil
	}, WithDescription("Searches things."))

	if definition.Name != "search" || definition.Description != "Searches things." {
		t.Errorf("unexpected metadata: %+v", definition)
	}
	if definition.Parameters == nil || definition.Parameters.Properties["query"] == nil {
		t.Fatalf("expected derived parameter schema, got %+v", definition.Parameters)
	}
	if definition.Parameters.Properties["query"].Description != "Search query" {
		t.Errorf("jsonschema tag not applied: %+v", definition.Parameters.Properties["query"])
	}

	output, err := definition.Handler(context.Background(), map[string]any{"query": "go", "limit": 3})
	if err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if gotInput.Query != "go" || gotInput.Limit != 3 {
		t.Errorf("arguments not decoded into the input type: %+v", gotInput)
	}
	if results := output.(searchOutput).Results; len(results) != 2 {
		t.Errorf("unexpected output: %+v", output)
	}
}

// TestNewToolPropagatesFunctionError verifies that function errors reach the
// caller for capture into the tool result.
func TestNewToolPropagatesFunctionError(t *testing.T) {
	definition := NewTool("failing", func(ctx context.Context, input searchInput) (searchOutput, error) {
		return searchOutput{}, errors.New("index offline")
	})

	_, err := definition.Handler(context.Background(), map[string]any{"query": "x"})
	if err == nil || err.Error() != "index offline" {
		t.Errorf("expected propagated error, got %v", err)
	}
}

// TestBuiltin verifies that builtin declarations carry no handler.
func TestBuiltin(t *testing.T) {
	definition := Builtin("web_search", "Provider-side web search", nil)
	if definition.Handler != nil {
		t.Error("builtin tools must not have a local handler")
	}
}
