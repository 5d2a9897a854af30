package utils

import (
	"strings"
	"testing"
)

// TestTruncateString verifies truncation and the pass-through of short input.
func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("short strings must pass through, got %q", got)
	}

	long := strings.Repeat("x", 600)
	got := TruncateString(long, 0)
	if !strings.HasPrefix(got, strings.Repeat("x", DefaultMaxStringLength)) {
		t.Errorf("expected default-length prefix, got %d chars", len(got))
	}
	if !strings.Contains(got, "total: 600 chars") {
		t.Errorf("expected original length in suffix, got %q", got)
	}

	if got := TruncateString("abcdef", 3); !strings.HasPrefix(got, "abc...") {
		t.Errorf("explicit limit not honoured: %q", got)
	}
}

// TestMergeBody verifies extras overlay the typed body and win on conflicts.
func TestMergeBody(t *testing.T) {
	body := struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}{Model: "gpt-4o-mini", Stream: true}

	merged, err := MergeBody(body, map[string]any{"model": "override", "seed": 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	asMap, ok := merged.(map[string]any)
	if !ok {
		t.Fatalf("expected a map, got %T", merged)
	}
	if asMap["model"] != "override" {
		t.Errorf("extra key did not win: %v", asMap["model"])
	}
	if asMap["stream"] != true || asMap["seed"] != 7 {
		t.Errorf("unexpected merge result: %v", asMap)
	}
}

// TestMergeBodyNoExtras verifies the body passes through untouched when there
// is nothing to merge.
func TestMergeBodyNoExtras(t *testing.T) {
	body := struct {
		Model string `json:"model"`
	}{Model: "m"}

	merged, err := MergeBody(body, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, isMap := merged.(map[string]any); isMap {
		t.Error("expected the original body back, not a map")
	}
}
