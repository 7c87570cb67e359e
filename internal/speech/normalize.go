package speech

import (
	"regexp"
	"strings"
)

const minSpeakableLen = 2

var (
	reCodeFence  = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reURL        = regexp.MustCompile(`https?://\S+`)
	reMarkup     = regexp.MustCompile(`[*#_~>]`)
	reBrandFull  = regexp.MustCompile(`(?i)hara\s*ai\s*1\.0`)
	reBrand      = regexp.MustCompile(`(?i)hara\s*ai`)
	reVersion    = regexp.MustCompile(`\b1\.0\b`)
	reEmoji      = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{2600}-\x{27BF}\x{1F1E6}-\x{1F1FF}]`)
	reRule       = regexp.MustCompile(`[-=]{3,}`)
	reNewlines   = regexp.MustCompile(`[\r\n]+`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Normalize rewrites Markdown into plain prose suitable for synthesis.
// Code fences and bare URLs are dropped entirely, links keep only their
// label, and the product name is respelled so the voice reads it as
// "Hara A.I." instead of a single garbled word. Returns
// ErrNoSpeakableContent when nothing speakable remains.
func Normalize(text string) (string, error) {
	s := reCodeFence.ReplaceAllString(text, "")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reURL.ReplaceAllString(s, " ")
	s = reMarkup.ReplaceAllString(s, "")
	s = reBrandFull.ReplaceAllString(s, "Hara A.I. 1 point 0")
	s = reBrand.ReplaceAllString(s, "Hara A.I.")
	s = reVersion.ReplaceAllString(s, "1 point 0")
	s = reEmoji.ReplaceAllString(s, "")
	s = reRule.ReplaceAllString(s, "")
	s = reNewlines.ReplaceAllString(s, ". ")
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len([]rune(s)) < minSpeakableLen {
		return "", ErrNoSpeakableContent
	}
	return s, nil
}

var reHinglish = regexp.MustCompile(`(?i)\b(hai|kya|kyu|kaise|nahi|ha|haan|theek|mein|aur|tum|aap|hum|ka|ki|ke|ko|se|par|wala|wali|ho|tha|thi|raha|rahi|bhi|lekin|magar|agar|sun|suno|dekho|batao|karo|kar|sakte|sakta)\b`)

// IsHinglish reports whether the text contains romanised Hindi words.
// The synthesis prompt switches to a Hindi-capable voice style when true.
func IsHinglish(text string) bool {
	return reHinglish.MatchString(text)
}
