// Package imagegen produces images for "draw me ..." style requests by
// building a Pollinations URL for the prompt. No request is made here;
// the URL is stored on the message and fetched when rendered.
package imagegen

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
)

const endpoint = "https://image.pollinations.ai/prompt/"

// Generator builds image URLs. The seed source is injectable so tests
// get stable URLs.
type Generator struct {
	seed func() int
}

func New() *Generator {
	return &Generator{seed: func() int { return rand.Intn(1_000_000) }}
}

// NewWithSeed fixes the seed. Tests use it; production code does not.
func NewWithSeed(seed int) *Generator {
	return &Generator{seed: func() int { return seed }}
}

// URL returns the image URL for a prompt. The seed makes repeated
// generations of the same prompt produce different images.
func (g *Generator) URL(prompt string) string {
	escaped := url.PathEscape(strings.TrimSpace(prompt))
	return fmt.Sprintf("%s%s?nologo=true&private=true&enhanced=true&model=flux&seed=%d", endpoint, escaped, g.seed())
}

// Caption is the assistant text that accompanies a generated image.
func Caption(prompt string) string {
	return fmt.Sprintf("Here is the image for: \"%s\"", prompt)
}
