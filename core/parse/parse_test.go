package parse

import (
	"testing"
)

type pet struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// TestParseStringAsPrimitives verifies direct conversion for scalar targets.
func TestParseStringAsPrimitives(t *testing.T) {
	if got, err := ParseStringAs[string]("hello"); err != nil || got != "hello" {
		t.Errorf("string: %q, %v", got, err)
	}
	if got, err := ParseStringAs[int]("42"); err != nil || got != 42 {
		t.Errorf("int: %d, %v", got, err)
	}
	if got, err := ParseStringAs[bool]("true"); err != nil || !got {
		t.Errorf("bool: %v, %v", got, err)
	}
	if got, err := ParseStringAs[float64]("3.5"); err != nil || got != 3.5 {
		t.Errorf("float: %v, %v", got, err)
	}
	if _, err := ParseStringAs[int]("not a number"); err == nil {
		t.Error("expected an error for a non-numeric int")
	}
}

// TestParseStringAsStruct verifies JSON unmarshaling into a typed target.
func TestParseStringAsStruct(t *testing.T) {
	got, err := ParseStringAs[pet](`{"name": "Rex", "age": 3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Rex" || got.Age != 3 {
		t.Errorf("unexpected result: %+v", got)
	}
}

// TestParseStringAsRepairsJSON verifies the repair path handles the
// almost-JSON language models produce: single quotes, trailing commas,
// unquoted keys.
func TestParseStringAsRepairsJSON(t *testing.T) {
	got, err := ParseStringAs[pet](`{name: 'Rex', age: 3,}`)
	if err != nil {
		t.Fatalf("repair path failed: %v", err)
	}
	if got.Name != "Rex" || got.Age != 3 {
		t.Errorf("unexpected result: %+v", got)
	}
}

// TestParseStringAsMap verifies parsing into a generic argument map.
func TestParseStringAsMap(t *testing.T) {
	got, err := ParseStringAs[map[string]any](`{"city": "Oslo"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["city"] != "Oslo" {
		t.Errorf("unexpected result: %v", got)
	}
}

// TestJSONValue verifies best-effort parsing of arbitrary JSON values.
func TestJSONValue(t *testing.T) {
	value, err := JSONValue(`{"ok": true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asMap, ok := value.(map[string]any); !ok || asMap["ok"] != true {
		t.Errorf("unexpected value: %#v", value)
	}

	value, err = JSONValue(`[1, 2, 3]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asSlice, ok := value.([]any); !ok || len(asSlice) != 3 {
		t.Errorf("unexpected value: %#v", value)
	}

	// Markdown fencing is a classic model habit the repair pass strips.
	value, err = JSONValue("```json\n{\"ok\": true}\n```")
	if err != nil {
		t.Fatalf("fenced JSON not repaired: %v", err)
	}
	if asMap, ok := value.(map[string]any); !ok || asMap["ok"] != true {
		t.Errorf("unexpected value: %#v", value)
	}
}
