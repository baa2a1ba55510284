package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWriterFormats(t *testing.T) {
	var buf bytes.Buffer

	w, err := writer(&buf, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	l := NewLogger(w)
	l.Info().Str("component", "test").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "test" || line["message"] != "hello" {
		t.Errorf("unexpected fields: %v", line)
	}

	if _, err := writer(&buf, ""); err != nil {
		t.Errorf("expected console default, got %v", err)
	}
	if _, err := writer(&buf, "xml"); err == nil {
		t.Error("expected unknown format error")
	}
}
