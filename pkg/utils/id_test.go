package utils

import (
	"strings"
	"testing"
)

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatalf("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}
}

func TestGenerateRunIDFormat(t *testing.T) {
	id := GenerateRunID()
	if !strings.HasPrefix(id, "sweep-") {
		t.Fatalf("expected sweep- prefix, got %s", id)
	}
	if GenerateRunID() == id {
		t.Fatalf("expected distinct run ids")
	}
}
