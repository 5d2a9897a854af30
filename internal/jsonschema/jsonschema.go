// Package jsonschema derives JSON Schema documents from Go types via
// reflection. Schemas describe tool parameters and structured-output formats
// advertised to language models.
package jsonschema

import (
	"reflect"
	"strings"
)

// Schema represents the subset of JSON Schema used for defining tool
// arguments and structured responses: types, properties, required fields,
// enums, and nested items.
type Schema struct {
	// Type specifies the data type (e.g., "object", "array", "string", "number")
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the arguments, each with its own schema
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether undeclared properties are allowed
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	// Enum contains the list of allowed values for the parameter
	Enum []any `json:"enum,omitempty"`
}

// GenerateJSONSchema builds a JSON schema for the type T. Struct fields are
// mapped through their json tags; the optional jsonschema tag adds
// description, required, and enum constraints:
//
//	type Input struct {
//	    Query string `json:"query" jsonschema:"description=Search query,required"`
//	    Kind  string `json:"kind"  jsonschema:"enum=web,enum=news"`
//	}
func GenerateJSONSchema[T any]() *Schema {
	return generate(reflect.TypeFor[T](), map[reflect.Type]bool{})
}

// generate walks t recursively. visiting guards against self-referential
// types: a field whose type is already on the walk path degrades to a bare
// "object" schema instead of recursing forever.
func generate(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	switch t.Kind() {
	case reflect.Pointer:
		return generate(t.Elem(), visiting)

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: generate(t.Elem(), visiting)}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: generate(t.Elem(), visiting)}

	case reflect.Struct:
		if visiting[t] {
			return &Schema{Type: "object"}
		}
		visiting[t] = true
		defer delete(visiting, t)
		return generateStruct(t, visiting)

	default:
		// interface{}, chan, func, etc.: no constraint we can express.
		return &Schema{}
	}
}

func generateStruct(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := parseJSONTag(field)
		if skip {
			continue
		}

		fieldSchema := generate(field.Type, visiting)
		required := applyFieldTag(fieldSchema, field.Tag.Get("jsonschema"))

		// A field is required when the tag says so, or when it is a plain
		// value field without omitempty.
		if required || (!omitEmpty && field.Type.Kind() != reflect.Pointer) {
			schema.Required = append(schema.Required, name)
		}

		schema.Properties[name] = fieldSchema
	}

	return schema
}

// parseJSONTag resolves the effective property name for a struct field,
// returning skip=true for fields excluded via json:"-".
func parseJSONTag(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, option := range parts[1:] {
		if option == "omitempty" {
			omitEmpty = true
		}
	}

	return name, omitEmpty, false
}

// applyFieldTag parses the jsonschema struct tag into the field schema and
// reports whether the field was marked required. Supported tokens:
// "description=...", "required", and repeated "enum=..." values.
func applyFieldTag(schema *Schema, tag string) (required bool) {
	if tag == "" {
		return false
	}

	for _, token := range strings.Split(tag, ",") {
		switch {
		case token == "required":
			required = true
		case strings.HasPrefix(token, "description="):
			schema.Description = strings.TrimPrefix(token, "description=")
		case strings.HasPrefix(token, "enum="):
			schema.Enum = append(schema.Enum, strings.TrimPrefix(token, "enum="))
		}
	}

	return required
}
