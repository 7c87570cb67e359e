package imagegen

import (
	"net/url"
	"strings"
	"testing"
)

func TestURLEscapesPrompt(t *testing.T) {
	g := NewWithSeed(42)
	got := g.URL("a cat in space / with stars?")

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("generated URL does not parse: %v", err)
	}
	if parsed.Host != "image.pollinations.ai" {
		t.Errorf("host = %q", parsed.Host)
	}
	if strings.Contains(got, " ") {
		t.Errorf("URL contains unescaped space: %q", got)
	}
	q := parsed.Query()
	for key, want := range map[string]string{
		"nologo": "true", "private": "true", "enhanced": "true", "model": "flux", "seed": "42",
	} {
		if q.Get(key) != want {
			t.Errorf("query %s = %q, want %q", key, q.Get(key), want)
		}
	}
}

func TestURLVariesBySeed(t *testing.T) {
	a := NewWithSeed(1).URL("sunset")
	b := NewWithSeed(2).URL("sunset")
	if a == b {
		t.Error("different seeds produced identical URLs")
	}
}

func TestCaption(t *testing.T) {
	got := Caption("a red fort at dusk")
	want := `Here is the image for: "a red fort at dusk"`
	if got != want {
		t.Errorf("Caption = %q, want %q", got, want)
	}
}
