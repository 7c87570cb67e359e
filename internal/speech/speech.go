// Package speech prepares assistant replies for spoken output and plays
// the resulting audio.
//
// Replies arrive as Markdown. Normalize strips everything a voice should
// not read aloud (code fences, URLs, emphasis markers, emoji) and rewrites
// the product name so text-to-speech pronounces it naturally. DecodePCM16
// converts the raw PCM stream returned by the synthesis model into float
// samples, and Manager serialises playback so at most one clip is audible
// at a time.
package speech

import "errors"

// ErrNoSpeakableContent reports that normalization removed everything,
// typically because the reply was only code blocks or links.
var ErrNoSpeakableContent = errors.New("speech: no speakable content after cleanup")

// ErrUnsupported reports that the active backend cannot synthesise audio.
// Callers fall back to a local synthesizer when they see it.
var ErrUnsupported = errors.New("speech: synthesis not supported by this backend")

// SampleRate is the sample rate of audio returned by the synthesis model.
const SampleRate = 24000

// Clip is decoded mono audio ready for playback.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration reports the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}
