package speech

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text passes through",
			in:   "Hello there, how are you?",
			want: "Hello there, how are you?",
		},
		{
			name: "code fence dropped",
			in:   "Run this:\n```go\nfmt.Println(\"hi\")\n```\nand you are done.",
			want: "Run this:. and you are done.",
		},
		{
			name: "inline code keeps content",
			in:   "Use the `ls` command.",
			want: "Use the ls command.",
		},
		{
			name: "link keeps label only",
			in:   "See [the docs](https://example.com/docs) for details.",
			want: "See the docs for details.",
		},
		{
			name: "bare url dropped",
			in:   "Visit https://example.com today.",
			want: "Visit today.",
		},
		{
			name: "markdown markers stripped",
			in:   "This is **bold** and _italic_ and ## a heading",
			want: "This is bold and italic and a heading",
		},
		{
			name: "brand spelled out",
			in:   "I am Hara AI 1.0, nice to meet you.",
			want: "I am Hara A.I. 1 point 0, nice to meet you.",
		},
		{
			name: "brand without version",
			in:   "Hara AI can help with that.",
			want: "Hara A.I. can help with that.",
		},
		{
			name: "standalone version respelled",
			in:   "Version 1.0 is out.",
			want: "Version 1 point 0 is out.",
		},
		{
			name: "horizontal rule removed",
			in:   "Above\n---\nBelow",
			want: "Above. Below",
		},
		{
			name: "newlines become pauses",
			in:   "First line\nSecond line\n\nThird line",
			want: "First line. Second line. Third line",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmoji(t *testing.T) {
	got, err := Normalize("Great job! 🎉😊")
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsRune(got, '🎉') || strings.ContainsRune(got, '😊') {
		t.Errorf("emoji survived cleanup: %q", got)
	}
}

func TestNormalizeNothingSpeakable(t *testing.T) {
	for _, in := range []string{"", "   ", "```\ncode only\n```", "https://example.com", "#"} {
		if _, err := Normalize(in); !errors.Is(err, ErrNoSpeakableContent) {
			t.Errorf("Normalize(%q) error = %v, want ErrNoSpeakableContent", in, err)
		}
	}
}

func TestIsHinglish(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"kya haal hai", true},
		{"aap kaise ho", true},
		{"theek hai, batao", true},
		{"how is the weather today", false},
		{"the kayak is here", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHinglish(tt.in); got != tt.want {
			t.Errorf("IsHinglish(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
