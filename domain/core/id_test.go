package core

import (
	"errors"
	"testing"
	"time"
)

// TestDeriveIDDeterministic tests that identical parts produce identical ids
func TestDeriveIDDeterministic(t *testing.T) {
	a := DeriveID("lab", "run-1", "rev-2")
	b := DeriveID("lab", "run-1", "rev-2")
	if a != b {
		t.Errorf("Expected identical ids, got %s vs %s", a, b)
	}
	if a.IsEmpty() {
		t.Error("Expected non-empty id")
	}
}

// TestDeriveIDDistinct tests that part boundaries are significant
func TestDeriveIDDistinct(t *testing.T) {
	if DeriveID("lab", "ab", "c") == DeriveID("lab", "a", "bc") {
		t.Error("Expected part boundaries to change the id")
	}
	if DeriveID("lab", "x") == DeriveID("truth", "x") {
		t.Error("Expected kind to change the id")
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-123", RunID("run-123"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if test.hasError && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for input '%s', got %v", test.input, err)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestTimestampJSONIsStable(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	ts := NewTimestamp(time.Date(2024, 3, 1, 12, 30, 15, 999, loc))
	out, err := ts.MarshalJSON()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(out) != `"2024-03-01T11:30:15Z"` {
		t.Errorf("Unexpected encoding %s", out)
	}
}

func TestSnapshotIDDependsOnFingerprint(t *testing.T) {
	a := NewSnapshotID("run", "rev", NewHash([]byte("a")))
	b := NewSnapshotID("run", "rev", NewHash([]byte("b")))
	if a == b {
		t.Error("Expected different fingerprints to give different snapshot ids")
	}
}
