package chat

import "regexp"

// reImageIntent matches requests to produce a picture rather than prose.
// It covers the English verb-then-noun order, the possessive pattern
// "tasveer of / photo ka", and the Hinglish noun-then-verb order where
// "banao"/"dikhao" trails the noun ("ek sher ki tasveer banao").
var reImageIntent = regexp.MustCompile(`(?i)(draw|generate|create|make|banao|dikhao|imagine|visualize).*(image|photo|picture|pic|art|tasveer|sketch|wallpaper)|(image|photo|picture|pic|tasveer|sketch|wallpaper)\s+(of|ka|ki|ke)|(image|photo|picture|pic|tasveer|sketch|wallpaper)\b.*\b(banao|dikhao)`)

// isImageIntent reports whether the message asks for image generation.
func isImageIntent(text string) bool {
	return reImageIntent.MatchString(text)
}
