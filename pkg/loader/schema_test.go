package loader

import (
	"encoding/json"
	"testing"
)

func TestDocumentSchema(t *testing.T) {
	b, err := DocumentSchema()
	if err != nil {
		t.Fatalf("DocumentSchema() error = %v", err)
	}

	var schema struct {
		Title      string                     `json:"title"`
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(b, &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	for _, field := range []string{"title", "content", "labels", "history"} {
		if _, ok := schema.Properties[field]; !ok {
			t.Fatalf("expected property %q in %s", field, b)
		}
	}
	found := false
	for _, r := range schema.Required {
		if r == "title" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected title to be required, got %v", schema.Required)
	}
}
