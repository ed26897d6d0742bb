package scraper

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

func nextDataPage(payload string) string {
	return `<html><head></head><body><script id="__NEXT_DATA__" type="application/json">` +
		payload + `</script></body></html>`
}

func TestExtract_Page(t *testing.T) {
	raws, err := NewExtractor().Extract(loadFixture(t, "search_page1.html"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(raws))
	}

	id, _ := raws[0].Get("id")
	if id != json.Number("1001") {
		t.Fatalf("first id = %v, want 1001", id)
	}
	loc, _ := raws[1].Get("location")
	if loc != "A|B, Oslo" {
		t.Fatalf("second location = %v", loc)
	}
}

func TestExtract_EmptyDocs(t *testing.T) {
	raws, err := NewExtractor().Extract(loadFixture(t, "search_empty.html"))
	if err != nil {
		t.Fatalf("empty docs is not an error: %v", err)
	}
	if len(raws) != 0 {
		t.Fatalf("expected 0 listings, got %d", len(raws))
	}
}

func TestExtract_FormatMismatch(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"no payload script", loadFixture(t, "search_no_payload.html")},
		{"plain text", "not html at all"},
		{"invalid json", nextDataPage(`{"props": {`)},
		{"root is array", nextDataPage(`[1, 2]`)},
		{"renamed key", nextDataPage(`{"props":{"pageProps":{"results":{"docs":[]}}}}`)},
		{"docs not array", nextDataPage(`{"props":{"pageProps":{"search":{"docs":{"id":1}}}}}`)},
		{"doc not object", nextDataPage(`{"props":{"pageProps":{"search":{"docs":[{"id":1}, 7]}}}}`)},
		{"wrong script type", `<script id="__NEXT_DATA__" type="text/javascript">{}</script>`},
		{"two payloads", nextDataPage(`{}`) + nextDataPage(`{}`)},
	}

	for _, tt := range tests {
		_, err := NewExtractor().Extract(tt.markup)
		if !errors.Is(err, ErrFormatMismatch) {
			t.Errorf("%s: expected ErrFormatMismatch, got %v", tt.name, err)
		}
		var fm *FormatMismatchError
		if !errors.As(err, &fm) {
			t.Errorf("%s: expected *FormatMismatchError, got %T", tt.name, err)
		}
	}
}
