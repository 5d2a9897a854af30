package jsonschema

import (
	"slices"
	"testing"
)

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty"`
}

type person struct {
	Name    string             `json:"name" jsonschema:"description=Full name,required"`
	Age     int                `json:"age,omitempty"`
	Kind    string             `json:"kind,omitempty" jsonschema:"enum=student,enum=staff"`
	Tags    []string           `json:"tags,omitempty"`
	Home    *address           `json:"home,omitempty"`
	Scores  map[string]float64 `json:"scores,omitempty"`
	private string
	Skipped string `json:"-"`
}

// TestGenerateJSONSchemaStruct verifies field mapping, tags, and nesting.
func TestGenerateJSONSchemaStruct(t *testing.T) {
	schema := GenerateJSONSchema[person]()

	if schema.Type != "object" {
		t.Fatalf("expected object schema, got %q", schema.Type)
	}
	if len(schema.Properties) != 6 {
		t.Errorf("expected 6 properties, got %d: %v", len(schema.Properties), schema.Properties)
	}
	if _, present := schema.Properties["Skipped"]; present {
		t.Error("json:\"-\" field must be excluded")
	}

	name := schema.Properties["name"]
	if name.Type != "string" || name.Description != "Full name" {
		t.Errorf("unexpected name schema: %+v", name)
	}
	if !slices.Contains(schema.Required, "name") {
		t.Errorf("name must be required, got %v", schema.Required)
	}
	if slices.Contains(schema.Required, "age") {
		t.Errorf("omitempty field must not be required, got %v", schema.Required)
	}

	if kind := schema.Properties["kind"]; len(kind.Enum) != 2 || kind.Enum[0] != "student" {
		t.Errorf("enum tag not applied: %+v", kind)
	}
	if tags := schema.Properties["tags"]; tags.Type != "array" || tags.Items.Type != "string" {
		t.Errorf("unexpected slice schema: %+v", tags)
	}
	if home := schema.Properties["home"]; home.Type != "object" || home.Properties["city"].Type != "string" {
		t.Errorf("nested struct not walked: %+v", home)
	}
	if scores := schema.Properties["scores"]; scores.Type != "object" || scores.AdditionalProperties.(*Schema).Type != "number" {
		t.Errorf("unexpected map schema: %+v", scores)
	}
}

// TestGenerateJSONSchemaPrimitives verifies scalar kinds.
func TestGenerateJSONSchemaPrimitives(t *testing.T) {
	if s := GenerateJSONSchema[int](); s.Type != "integer" {
		t.Errorf("int: %+v", s)
	}
	if s := GenerateJSONSchema[float32](); s.Type != "number" {
		t.Errorf("float32: %+v", s)
	}
	if s := GenerateJSONSchema[bool](); s.Type != "boolean" {
		t.Errorf("bool: %+v", s)
	}
	if s := GenerateJSONSchema[string](); s.Type != "string" {
		t.Errorf("string: %+v", s)
	}
}

type node struct {
	Value    string  `json:"value"`
	Children []*node `json:"children,omitempty"`
}

// TestGenerateJSONSchemaRecursive verifies self-referential types terminate.
func TestGenerateJSONSchemaRecursive(t *testing.T) {
	schema := GenerateJSONSchema[node]()

	children := schema.Properties["children"]
	if children.Type != "array" {
		t.Fatalf("unexpected children schema: %+v", children)
	}
	// The recursive element degrades to a bare object instead of looping.
	if children.Items.Type != "object" || children.Items.Properties != nil {
		t.Errorf("expected a bare object at the recursion point, got %+v", children.Items)
	}
}
